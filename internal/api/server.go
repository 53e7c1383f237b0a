// Package api exposes the anchor engine over HTTP: JSON status and record
// endpoints plus a server-sent-events stream of engine notifications.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/reanchor/internal/config"
	"github.com/banshee-data/reanchor/internal/monitoring"
	"github.com/banshee-data/reanchor/internal/relocate"
	storage "github.com/banshee-data/reanchor/internal/relocate/storage/sqlite"
)

// Event is one SSE payload. Exactly one of the optional fields is set,
// matching Type.
type Event struct {
	Type      string                 `json:"type"` // mapping_state | anchor_placed | placement_error | loading
	State     *relocate.MappingState `json:"state,omitempty"`
	Anchor    *relocate.PlacedAnchor `json:"anchor,omitempty"`
	RecordID  string                 `json:"record_id,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Loading   *bool                  `json:"loading,omitempty"`
	UnixNanos int64                  `json:"unix_ns"`
}

// Server is the HTTP surface over one relocalization session.
type Server struct {
	session *relocate.Session
	records *storage.RecordStore
	cfg     *config.TuningConfig

	mu      sync.Mutex
	clients map[chan Event]struct{}
}

// NewServer creates the HTTP surface and registers itself as a session
// listener. records may be nil when no session database is open.
func NewServer(session *relocate.Session, records *storage.RecordStore, cfg *config.TuningConfig) *Server {
	s := &Server{
		session: session,
		records: records,
		cfg:     cfg,
		clients: make(map[chan Event]struct{}),
	}
	session.AddListener(s)
	return s
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/surfaces", s.handleSurfaces)
	mux.HandleFunc("/api/anchors", s.handleAnchors)
	mux.HandleFunc("/api/pending", s.handlePending)
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/events", s.handleEvents)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	now := time.Now()
	stats := relocate.ComputeSurfaceStatistics(
		s.session.Tracker().Observations(), s.cfg.GetSurfaceQualityFloor(), now)

	writeJSON(w, map[string]any{
		"state":    s.session.State(),
		"mapped":   s.session.IsMapped(),
		"surfaces": stats,
		"placed":   s.session.Entities().Count(),
		"pending":  s.session.Queue().Len(),
	})
}

func (s *Server) handleSurfaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	now := time.Now()
	observations := s.session.Tracker().Observations()

	type surfaceView struct {
		*relocate.SurfaceObservation
		Quality float64 `json:"quality"`
	}
	out := make([]surfaceView, 0, len(observations))
	for _, obs := range observations {
		out = append(out, surfaceView{SurfaceObservation: obs, Quality: obs.QualityScore(now)})
	}
	writeJSON(w, out)
}

func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.session.Entities().All())
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.session.Queue().Pending())
}

// handleRecords persists a saved anchor record and submits it to the
// placement pipeline.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var record relocate.SavedAnchorRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, fmt.Sprintf("invalid record JSON: %v", err), http.StatusBadRequest)
		return
	}

	if s.records != nil {
		if err := s.records.InsertRecord(r.Context(), &record); err != nil {
			http.Error(w, fmt.Sprintf("failed to store record: %v", err), http.StatusInternalServerError)
			return
		}
	}

	s.session.SubmitRecord(&record, time.Now())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"id": record.ID}); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.cfg)
}

// handleEvents streams engine notifications as server-sent events, in the
// order the underlying transitions occurred.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := make(chan Event, 64)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

// broadcast fans an event out to all SSE clients without blocking the
// engine; a slow client drops events rather than stalling placements.
func (s *Server) broadcast(event Event) {
	event.UnixNanos = time.Now().UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- event:
		default:
			monitoring.Logf("api: dropping %s event for slow SSE client", event.Type)
		}
	}
}

// MappingStateChanged implements relocate.Listener.
func (s *Server) MappingStateChanged(state relocate.MappingState) {
	s.broadcast(Event{Type: "mapping_state", State: &state})
}

// AnchorPlaced implements relocate.Listener.
func (s *Server) AnchorPlaced(anchor relocate.PlacedAnchor) {
	s.broadcast(Event{Type: "anchor_placed", Anchor: &anchor})
}

// PlacementError implements relocate.Listener.
func (s *Server) PlacementError(recordID string, err error) {
	s.broadcast(Event{Type: "placement_error", RecordID: recordID, Error: err.Error()})
}

// LoadingChanged implements relocate.Listener.
func (s *Server) LoadingChanged(loading bool) {
	s.broadcast(Event{Type: "loading", Loading: &loading})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

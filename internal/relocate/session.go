package relocate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/reanchor/internal/monitoring"
)

// RecordSource supplies saved anchor records filtered by geographic
// proximity. The sqlite record store implements it; a remote store adapter
// would too.
type RecordSource interface {
	ListNear(ctx context.Context, loc Geolocation, radiusMeters float64) ([]*SavedAnchorRecord, error)
}

// SessionConfig configures a relocalization session.
type SessionConfig struct {
	Strategy ScanningStrategy
	Retry    RetryQueueConfig

	// Dispatch marshals a commit onto the scene-owning context (the only
	// permitted mutator of the entity store and the visible scene graph).
	// Nil runs commits inline, which is only correct when the caller
	// already is the scene-owning context.
	Dispatch func(func())

	// Relocalizer optionally refines a saved pose before the geometric
	// search runs. Nil disables visual relocalization.
	Relocalizer VisualRelocalizer
}

// DefaultSessionConfig returns a standard-strategy session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Strategy: StandardStrategy(),
		Retry:    DefaultRetryQueueConfig(),
	}
}

// Session owns the full placement pipeline for one sensing session: the
// surface tracker, mapping state, search engine, retry queue and entity
// store. Sensor callbacks arrive serialized from the sensing subsystem;
// record submissions may come from any context.
type Session struct {
	cfg    SessionConfig
	search *SearchEngine

	tracker *SurfaceTracker
	store   *EntityStore
	queue   *RetryQueue

	mu              sync.Mutex
	planes          map[string]Plane
	triangles       []Triangle
	state           MappingState
	trackingHealthy bool
	listeners       []Listener
}

// NewSession creates a session in the Initializing phase.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		cfg:             cfg,
		search:          NewSearchEngine(),
		tracker:         NewSurfaceTracker(),
		store:           NewEntityStore(),
		planes:          make(map[string]Plane),
		state:           MappingState{Phase: MappingInitializing},
		trackingHealthy: true,
	}
	s.queue = NewRetryQueue(cfg.Retry, s.retryAttempt)
	return s
}

// AddListener registers a notification listener. Listeners are invoked
// synchronously in registration order, and state-change notifications are
// delivered in the order the underlying transitions occurred.
func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) snapshotListeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// SurfaceObserved handles a surface add or update callback from the
// sensing subsystem, then re-evaluates mapping state.
func (s *Session) SurfaceObserved(plane Plane, now time.Time) {
	s.tracker.Observe(plane.ID, plane.Area(), plane.OrientationAlignment(), now)

	s.mu.Lock()
	s.planes[plane.ID] = plane
	s.mu.Unlock()

	s.reevaluate()
}

// SurfaceRemoved handles a surface removal callback, then re-evaluates
// mapping state.
func (s *Session) SurfaceRemoved(surfaceID string) {
	s.tracker.Remove(surfaceID)

	s.mu.Lock()
	delete(s.planes, surfaceID)
	s.mu.Unlock()

	s.reevaluate()
}

// MeshUpdated replaces the dense mesh geometry (precision mode). Mesh
// feeds the search only; it does not affect mapping state.
func (s *Session) MeshUpdated(triangles []Triangle) {
	copied := make([]Triangle, len(triangles))
	copy(copied, triangles)

	s.mu.Lock()
	s.triangles = copied
	s.mu.Unlock()
}

// SetTrackingHealthy records the sensing subsystem's health signal.
// Placement attempts are deferred to the queue while unhealthy.
func (s *Session) SetTrackingHealthy(healthy bool) {
	s.mu.Lock()
	s.trackingHealthy = healthy
	s.mu.Unlock()
}

// reevaluate recomputes mapping state from the current observations and
// notifies on transition. Entering Ready triggers a one-time flush of all
// pending placements; re-deriving Ready again is a no-op.
func (s *Session) reevaluate() {
	newState := EvaluateMappingState(s.tracker.TrackedCount(), s.tracker.TotalTrackedArea(), s.cfg.Strategy)

	s.mu.Lock()
	old := s.state
	if newState == old {
		s.mu.Unlock()
		return
	}
	s.state = newState
	s.mu.Unlock()

	monitoring.Logf("Session: mapping state %s -> %s", old, newState)
	for _, l := range s.snapshotListeners() {
		l.MappingStateChanged(newState)
	}

	if newState.Phase == MappingReady && old.Phase != MappingReady {
		s.queue.Flush()
	}
}

// State returns the current mapping state.
func (s *Session) State() MappingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsMapped reports whether the environment is mapped well enough to trust
// placements right now.
func (s *Session) IsMapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase == MappingReady && s.trackingHealthy
}

// Snapshot builds a point-in-time copy of the sensed geometry for the
// search. Planes are ordered by id so confidence ties resolve
// deterministically.
func (s *Session) Snapshot() *SceneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &SceneSnapshot{
		Planes:    make([]Plane, 0, len(s.planes)),
		Triangles: s.triangles,
	}
	for _, p := range s.planes {
		snap.Planes = append(snap.Planes, p)
	}
	sort.Slice(snap.Planes, func(i, j int) bool { return snap.Planes[i].ID < snap.Planes[j].ID })
	return snap
}

// SubmitRecord runs one saved record through the placement pipeline.
// Unrecoverable records are reported and dropped; an unmapped environment
// or an unconfident attempt defers the record to the retry queue.
func (s *Session) SubmitRecord(record *SavedAnchorRecord, now time.Time) {
	if err := record.Validate(); err != nil {
		monitoring.Logf("Session: dropping unrecoverable record %s: %v", record.ID, err)
		for _, l := range s.snapshotListeners() {
			l.PlacementError(record.ID, err)
		}
		return
	}

	if s.store.Contains(record.ID) {
		monitoring.Logf("Session: record %s already placed, ignoring", record.ID)
		return
	}

	if !s.IsMapped() {
		s.queue.Enqueue(record, 0, now)
		return
	}

	confidence, committed := s.attemptPlacement(record, 0, now)
	if !committed {
		s.queue.Enqueue(record, confidence, now)
	}
}

// retryAttempt is the queue's AttemptFunc. A retry succeeds only when its
// confidence clears the acceptance threshold and strictly exceeds the
// entry's previous best.
func (s *Session) retryAttempt(entry *PendingPlacement) (float64, bool) {
	if s.store.Contains(entry.Record.ID) {
		// Placed by the immediate path while queued; just drop the entry.
		return entry.BestConfidence, true
	}
	if !s.IsMapped() {
		return 0, false
	}
	return s.attemptPlacement(entry.Record, entry.BestConfidence, time.Now())
}

// attemptPlacement runs search → validate → reconcile → commit for one
// record. The commit is marshalled to the scene-owning context. Returns
// the confidence reached and whether a commit was issued; confidence must
// clear the acceptance threshold and strictly exceed mustExceed.
func (s *Session) attemptPlacement(record *SavedAnchorRecord, mustExceed float64, now time.Time) (float64, bool) {
	target := record.Transform.Translation()

	// Visual relocalization stub: a successful refinement moves the search
	// target into the new session frame.
	if s.cfg.Relocalizer != nil {
		if refined, _, err := s.cfg.Relocalizer.Relocalize(context.Background(), record); err == nil {
			target = refined.Translation()
		}
	}

	result, ok := s.search.Search(target, s.Snapshot())
	if !ok {
		return 0, false
	}

	confidence := ValidatePlacement(result.Transform, target)
	if confidence < AcceptanceThreshold || confidence <= mustExceed {
		return confidence, false
	}

	final := ReconcileOrientation(result.Transform, record.Transform)
	if o := record.OrientationOverride; o != nil {
		final = TransformFromQuat(quatFromArray(*o), final.Translation())
	}

	scale := 1.0
	if record.Scale != nil {
		scale = *record.Scale
	}

	anchor := PlacedAnchor{
		ID:            record.ID,
		Transform:     final,
		ContentID:     record.ContentID,
		Scale:         scale,
		Confidence:    confidence,
		PlacedAtNanos: now.UnixNano(),
	}

	s.dispatch(func() {
		if s.store.Commit(anchor) {
			for _, l := range s.snapshotListeners() {
				l.AnchorPlaced(anchor)
			}
		}
	})

	return confidence, true
}

// dispatch marshals f onto the scene-owning context.
func (s *Session) dispatch(f func()) {
	if s.cfg.Dispatch != nil {
		s.cfg.Dispatch(f)
		return
	}
	f()
}

// LoadRecords fetches records near loc from src and submits each one,
// toggling the loading notification around the fetch.
func (s *Session) LoadRecords(ctx context.Context, src RecordSource, loc Geolocation, radiusMeters float64, now time.Time) error {
	for _, l := range s.snapshotListeners() {
		l.LoadingChanged(true)
	}
	records, err := src.ListNear(ctx, loc, radiusMeters)
	for _, l := range s.snapshotListeners() {
		l.LoadingChanged(false)
	}
	if err != nil {
		return err
	}

	for _, record := range records {
		s.SubmitRecord(record, now)
	}
	return nil
}

// Reset cancels the retry timer and clears all queued and committed state.
// This is the only teardown path; partial resets are not supported.
func (s *Session) Reset() {
	s.queue.Clear()
	s.store.Clear()
	s.tracker.Clear()

	s.mu.Lock()
	s.planes = make(map[string]Plane)
	s.triangles = nil
	s.state = MappingState{Phase: MappingInitializing}
	s.mu.Unlock()

	monitoring.Logf("Session: reset")
	for _, l := range s.snapshotListeners() {
		l.MappingStateChanged(MappingState{Phase: MappingInitializing})
	}
}

// Tracker exposes the surface tracker for introspection surfaces.
func (s *Session) Tracker() *SurfaceTracker { return s.tracker }

// Entities exposes the entity store for introspection surfaces.
func (s *Session) Entities() *EntityStore { return s.store }

// Queue exposes the retry queue for introspection surfaces.
func (s *Session) Queue() *RetryQueue { return s.queue }

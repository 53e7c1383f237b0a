package relocate

import (
	"sort"
	"sync"

	"github.com/banshee-data/reanchor/internal/monitoring"
)

// PlacedAnchor is a committed, visible placement bound to its final
// transform and the saved record's id.
type PlacedAnchor struct {
	ID            string    `json:"id"`
	Transform     Transform `json:"transform"`
	ContentID     string    `json:"content_id"`
	Scale         float64   `json:"scale"`
	Confidence    float64   `json:"confidence"`
	PlacedAtNanos int64     `json:"placed_at_ns"`
}

// EntityStore deduplicates and tracks committed placements by stable id.
// It is the lifecycle owner of placed entities: a given record id is
// committed at most once, and both the immediate-placement path and the
// retry path funnel through Commit's single check.
//
// Only the scene-owning context may mutate the store; the mutex covers
// cross-context readers (the HTTP surface, tests).
type EntityStore struct {
	mu       sync.RWMutex
	entities map[string]*PlacedAnchor
}

// NewEntityStore creates an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		entities: make(map[string]*PlacedAnchor),
	}
}

// Commit stores the anchor if its id is not already present. Duplicate
// commits are idempotent: they log and return false without replacing the
// stored entity.
func (s *EntityStore) Commit(anchor PlacedAnchor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[anchor.ID]; exists {
		monitoring.Logf("EntityStore: anchor %s already placed, ignoring duplicate commit", anchor.ID)
		return false
	}

	copied := anchor
	s.entities[anchor.ID] = &copied
	return true
}

// Get returns the placed anchor for id, or nil.
func (s *EntityStore) Get(id string) *PlacedAnchor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anchor, ok := s.entities[id]
	if !ok {
		return nil
	}
	copied := *anchor
	return &copied
}

// Contains reports whether id has been committed.
func (s *EntityStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// Remove drops one placed anchor. Removing an unknown id is a no-op.
func (s *EntityStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, id)
}

// Clear drops all placed anchors. Used on session reset.
func (s *EntityStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]*PlacedAnchor)
}

// Count returns the number of placed anchors.
func (s *EntityStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// All returns copies of all placed anchors, sorted by id for deterministic
// output.
func (s *EntityStore) All() []PlacedAnchor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PlacedAnchor, 0, len(s.entities))
	for _, anchor := range s.entities {
		out = append(out, *anchor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

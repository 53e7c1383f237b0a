// Package relocate implements re-establishment of saved anchor placements
// inside a live 3D sensing session. Saved anchor poses were captured
// relative to a transient tracking origin and a specific detected surface;
// in a later session the engine finds a plausibly corresponding surface in
// the newly sensed geometry, scores the correspondence, and either commits
// the placement or defers it for bounded retry.
package relocate

import (
	"sync"
	"time"
)

// Quality score weights and saturation bounds for surface observations.
// The score saturates once area ≥ 0.3 m², stability ≥ 10 updates and
// timeSeen ≥ 3 s.
const (
	QualityAreaWeight        = 0.4
	QualityOrientationWeight = 0.3
	QualityStabilityWeight   = 0.2
	QualityTimeSeenWeight    = 0.1

	QualityAreaSaturation      = 0.3 // m²
	QualityStabilitySaturation = 10  // consecutive updates
	QualityTimeSeenSaturation  = 3.0 // seconds
)

// SurfaceObservation tracks the running quality signals for one detected
// surface in the live session.
type SurfaceObservation struct {
	SurfaceID            string
	Area                 float64 // m²
	OrientationAlignment float64 // alignment with "up", 0-1
	Stability            int     // consecutive updates observed
	FirstSeenNanos       int64
	LastUpdateNanos      int64
}

// TimeSeenSecs returns how long the surface has been tracked, in seconds.
func (o *SurfaceObservation) TimeSeenSecs(now time.Time) float64 {
	dt := float64(now.UnixNano()-o.FirstSeenNanos) / 1e9
	if dt < 0 {
		return 0
	}
	return dt
}

// QualityScore computes the composite quality score (0=poor, 1=excellent)
// for the observation. Each term is clamped to its saturation bound before
// weighting, so the score is monotonically non-decreasing in area,
// stability and time seen.
func (o *SurfaceObservation) QualityScore(now time.Time) float64 {
	areaTerm := o.Area / QualityAreaSaturation
	if areaTerm > 1 {
		areaTerm = 1
	}

	stabilityTerm := float64(o.Stability) / QualityStabilitySaturation
	if stabilityTerm > 1 {
		stabilityTerm = 1
	}

	timeTerm := o.TimeSeenSecs(now) / QualityTimeSeenSaturation
	if timeTerm > 1 {
		timeTerm = 1
	}

	return QualityAreaWeight*areaTerm +
		QualityOrientationWeight*o.OrientationAlignment +
		QualityStabilityWeight*stabilityTerm +
		QualityTimeSeenWeight*timeTerm
}

// SurfaceTracker maintains a running quality score per detected surface.
// It is the input side of the environment mapping state machine: callers
// re-evaluate mapping state after each mutation. The tracker itself has no
// side effects beyond its internal map.
//
// Sensor callbacks arrive serialized from the sensing subsystem; the mutex
// exists for cross-context readers (the retry queue asking "is the
// environment mapped"), not for the update stream.
type SurfaceTracker struct {
	mu       sync.RWMutex
	surfaces map[string]*SurfaceObservation
}

// NewSurfaceTracker creates an empty tracker.
func NewSurfaceTracker() *SurfaceTracker {
	return &SurfaceTracker{
		surfaces: make(map[string]*SurfaceObservation),
	}
}

// Observe updates or creates the observation for surfaceID. Stability is
// incremented only when an observation already exists; a new surface starts
// at stability 1 with zero time seen.
func (st *SurfaceTracker) Observe(surfaceID string, area, orientationAlignment float64, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	nowNanos := now.UnixNano()
	if obs, ok := st.surfaces[surfaceID]; ok {
		obs.Area = area
		obs.OrientationAlignment = orientationAlignment
		obs.Stability++
		obs.LastUpdateNanos = nowNanos
		return
	}

	st.surfaces[surfaceID] = &SurfaceObservation{
		SurfaceID:            surfaceID,
		Area:                 area,
		OrientationAlignment: orientationAlignment,
		Stability:            1,
		FirstSeenNanos:       nowNanos,
		LastUpdateNanos:      nowNanos,
	}
}

// Remove drops the observation for surfaceID. Removing an unknown surface
// is a no-op.
func (st *SurfaceTracker) Remove(surfaceID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.surfaces, surfaceID)
}

// Clear drops all observations. Used on session reset.
func (st *SurfaceTracker) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.surfaces = make(map[string]*SurfaceObservation)
}

// TrackedCount returns the number of currently tracked surfaces.
func (st *SurfaceTracker) TrackedCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.surfaces)
}

// TotalTrackedArea returns the summed area of all tracked surfaces in m².
func (st *SurfaceTracker) TotalTrackedArea() float64 {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var total float64
	for _, obs := range st.surfaces {
		total += obs.Area
	}
	return total
}

// ConfidentCount returns the number of surfaces whose quality score is at
// or above floor.
func (st *SurfaceTracker) ConfidentCount(floor float64, now time.Time) int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	count := 0
	for _, obs := range st.surfaces {
		if obs.QualityScore(now) >= floor {
			count++
		}
	}
	return count
}

// Observations returns a copy of all current observations.
func (st *SurfaceTracker) Observations() []*SurfaceObservation {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*SurfaceObservation, 0, len(st.surfaces))
	for _, obs := range st.surfaces {
		copied := *obs
		out = append(out, &copied)
	}
	return out
}

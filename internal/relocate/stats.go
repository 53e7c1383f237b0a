package relocate

import "time"

// SurfaceStatistics holds aggregate quality statistics for the currently
// tracked surfaces. Used by the introspection surfaces (HTTP status, the
// monitor charts and the report tool).
type SurfaceStatistics struct {
	TrackedCount   int     `json:"tracked_count"`
	TotalArea      float64 `json:"total_area_m2"`
	AvgQuality     float64 `json:"avg_quality"`
	MinQuality     float64 `json:"min_quality"`
	MaxQuality     float64 `json:"max_quality"`
	ConfidentCount int     `json:"confident_count"` // quality ≥ floor
	QualityFloor   float64 `json:"quality_floor"`
}

// ComputeSurfaceStatistics calculates aggregate statistics from a set of
// surface observations.
func ComputeSurfaceStatistics(observations []*SurfaceObservation, floor float64, now time.Time) *SurfaceStatistics {
	stats := &SurfaceStatistics{
		TrackedCount: len(observations),
		QualityFloor: floor,
	}
	if len(observations) == 0 {
		return stats
	}

	var sum float64
	for i, obs := range observations {
		stats.TotalArea += obs.Area

		q := obs.QualityScore(now)
		sum += q
		if i == 0 || q < stats.MinQuality {
			stats.MinQuality = q
		}
		if q > stats.MaxQuality {
			stats.MaxQuality = q
		}
		if q >= floor {
			stats.ConfidentCount++
		}
	}
	stats.AvgQuality = sum / float64(len(observations))

	return stats
}

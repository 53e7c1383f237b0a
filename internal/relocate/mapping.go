package relocate

import "fmt"

// MappingPhase is the coarse readiness phase of the sensed environment.
type MappingPhase string

const (
	MappingInitializing MappingPhase = "initializing"
	MappingScanning     MappingPhase = "scanning"
	MappingReady        MappingPhase = "ready"
	MappingInsufficient MappingPhase = "insufficient_features"
)

// MappingState is the coarse readiness signal derived from the current set
// of surface observations and the active scanning strategy. It is never
// stored independently: every transition is a re-evaluation.
type MappingState struct {
	Phase    MappingPhase `json:"phase"`
	Progress float64      `json:"progress"` // 0-1, meaningful while scanning
}

// String returns a compact human-readable form, e.g. "scanning(0.40)".
func (s MappingState) String() string {
	if s.Phase == MappingScanning {
		return fmt.Sprintf("%s(%.2f)", s.Phase, s.Progress)
	}
	return string(s.Phase)
}

// ScanningStrategy controls how much sensed geometry is required before the
// environment counts as mapped. Precision mode (depth-assisted sensing)
// trusts fewer, smaller surfaces for the same confidence.
type ScanningStrategy struct {
	Name                 string
	MinSurfaces          int     // surfaces required before Ready
	RequiredCoverage     float64 // total tracked area required, m²
	MinConfidentSurfaces int     // surfaces above the quality floor for full confidence
	Precision            bool    // depth-assisted mode
}

// StandardStrategy returns the camera-only scanning strategy.
func StandardStrategy() ScanningStrategy {
	return ScanningStrategy{
		Name:                 "standard",
		MinSurfaces:          3,
		RequiredCoverage:     1.5,
		MinConfidentSurfaces: 2,
		Precision:            false,
	}
}

// PrecisionStrategy returns the depth-assisted scanning strategy.
func PrecisionStrategy() ScanningStrategy {
	return ScanningStrategy{
		Name:                 "precision",
		MinSurfaces:          2,
		RequiredCoverage:     0.5,
		MinConfidentSurfaces: 1,
		Precision:            true,
	}
}

// EvaluateMappingState derives the mapping state from the current tracked
// surface count and total area under the given strategy. It is a pure
// function: identical inputs always yield identical states, and callers
// re-run it after every surface add, update or remove.
//
// Ready is not sticky: removing surfaces near the threshold boundary can
// oscillate the state back to scanning.
func EvaluateMappingState(trackedCount int, totalArea float64, strategy ScanningStrategy) MappingState {
	if trackedCount == 0 {
		return MappingState{Phase: MappingInsufficient}
	}

	if trackedCount >= strategy.MinSurfaces &&
		(totalArea >= strategy.RequiredCoverage || strategy.Precision) {
		return MappingState{Phase: MappingReady, Progress: 1}
	}

	var progress float64
	if strategy.Precision {
		progress = float64(trackedCount) / float64(strategy.MinSurfaces)
	} else {
		progress = totalArea / strategy.RequiredCoverage
	}
	if progress > 1 {
		progress = 1
	}

	return MappingState{Phase: MappingScanning, Progress: progress}
}

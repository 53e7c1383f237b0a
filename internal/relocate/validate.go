package relocate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Placement validation constants.
const (
	// MaxVerticalDelta is the hard vertical-difference bound for a
	// candidate, meters.
	MaxVerticalDelta = 0.5
	// AcceptanceThreshold is the system-wide confidence required to commit
	// a placement. It balances false placements (sticking an anchor to an
	// unrelated surface) against excessive deferral.
	AcceptanceThreshold = 0.7
	// HeightKeepTolerance is the vertical discrepancy under which the
	// original saved height is kept during orientation reconciliation,
	// meters.
	HeightKeepTolerance = 0.3

	// Validation confidence weights.
	validateDistanceWeight = 0.7
	validateVerticalWeight = 0.3
)

// ValidatePlacement scores a candidate surface intersection against the
// originally saved point. Hard rejects (confidence 0) a candidate farther
// than MaxPlacementDistance or with vertical difference beyond
// MaxVerticalDelta; otherwise the confidence blends total distance and
// vertical agreement. A candidate at the exact saved point scores 1.0.
func ValidatePlacement(candidate Transform, target r3.Vec) float64 {
	pos := candidate.Translation()

	dist := r3.Norm(r3.Sub(pos, target))
	if dist > MaxPlacementDistance {
		return 0
	}

	verticalDiff := math.Abs(pos.Z - target.Z)
	if verticalDiff > MaxVerticalDelta {
		return 0
	}

	return validateDistanceWeight*(1-dist/MaxPlacementDistance) +
		validateVerticalWeight*(1-verticalDiff/MaxVerticalDelta)
}

// ReconcileOrientation merges the accepted candidate transform with the
// original saved transform. The original rotation survives (orientation of
// a flat sticker-like object is a deliberate user choice) while the
// translation tracks the newly sensed surface — except that a height
// discrepancy within HeightKeepTolerance is treated as relocalization
// noise and the original height is kept.
func ReconcileOrientation(candidate, original Transform) Transform {
	newPos := candidate.Translation()
	origPos := original.Translation()

	if math.Abs(newPos.Z-origPos.Z) <= HeightKeepTolerance {
		newPos.Z = origPos.Z
	}

	return TransformFromQuat(original.RotationQuat(), newPos)
}

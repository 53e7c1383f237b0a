package relocate

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestSearch_DirectHitFullConfidence(t *testing.T) {
	// Target point sits on a large floor patch: the straight-down ray from
	// the elevated origin lands at zero distance, so confidence is exactly
	// the full ray weight.
	snap := &SceneSnapshot{
		Planes: []Plane{NewHorizontalPlane("floor", r3.Vec{}, 5, 5)},
	}

	engine := NewSearchEngine()
	result, ok := engine.Search(r3.Vec{}, snap)
	if !ok {
		t.Fatal("expected a hit on the floor")
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want exactly 1.0", result.Confidence)
	}
	if result.SurfaceID != "floor" {
		t.Errorf("surface id = %q, want floor", result.SurfaceID)
	}
	if got := result.Transform.Translation(); !vecsClose(got, r3.Vec{}, 1e-9) {
		t.Errorf("hit position = %v, want origin", got)
	}
}

func TestSearch_ConfidenceNeverExceedsRayWeight(t *testing.T) {
	// Offset floor so only tilted rays can reach it; every hit's confidence
	// must stay at or below its ray weight.
	snap := &SceneSnapshot{
		Planes: []Plane{NewHorizontalPlane("floor", r3.Vec{X: 0.4, Z: -0.5}, 0.3, 0.3)},
	}

	engine := NewSearchEngine()
	result, ok := engine.Search(r3.Vec{}, snap)
	if !ok {
		t.Fatal("expected a hit")
	}
	if result.Confidence > 1.0 {
		t.Errorf("confidence %v exceeds maximum ray weight", result.Confidence)
	}
	if result.Confidence <= 0 {
		t.Errorf("confidence %v should be positive for a hit within reach", result.Confidence)
	}
}

func TestSearch_NoSurfacesWithinReach(t *testing.T) {
	engine := NewSearchEngine()

	// Empty scene.
	if _, ok := engine.Search(r3.Vec{}, &SceneSnapshot{}); ok {
		t.Error("empty snapshot should yield no result")
	}

	// Floor far below the reach limit.
	snap := &SceneSnapshot{
		Planes: []Plane{NewHorizontalPlane("deep", r3.Vec{Z: -10}, 5, 5)},
	}
	if _, ok := engine.Search(r3.Vec{}, snap); ok {
		t.Error("surface beyond max distance should yield no result")
	}
}

func TestSearch_PrefersCloserSurface(t *testing.T) {
	// Two stacked floors; the straight-down ray must land on the upper one.
	snap := &SceneSnapshot{
		Planes: []Plane{
			NewHorizontalPlane("lower", r3.Vec{Z: -2}, 5, 5),
			NewHorizontalPlane("upper", r3.Vec{Z: -0.25}, 5, 5),
		},
	}

	engine := NewSearchEngine()
	result, ok := engine.Search(r3.Vec{}, snap)
	if !ok {
		t.Fatal("expected a hit")
	}
	if result.SurfaceID != "upper" {
		t.Errorf("hit surface = %q, want upper", result.SurfaceID)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	// Two patches placed symmetrically so tilted rays hit both with equal
	// confidence; repeated searches must return the same winner.
	snap := &SceneSnapshot{
		Planes: []Plane{
			NewHorizontalPlane("east", r3.Vec{X: 0.4, Z: -0.5}, 0.2, 0.2),
			NewHorizontalPlane("west", r3.Vec{X: -0.4, Z: -0.5}, 0.2, 0.2),
		},
	}

	engine := NewSearchEngine()
	first, ok := engine.Search(r3.Vec{}, snap)
	if !ok {
		t.Fatal("expected a hit")
	}
	for i := 0; i < 20; i++ {
		again, ok := engine.Search(r3.Vec{}, snap)
		if !ok || again != first {
			t.Fatalf("search result varied across runs: %+v vs %+v", again, first)
		}
	}
}

func TestSearch_MeshTriangles(t *testing.T) {
	// A single mesh triangle spanning the origin, no planes.
	snap := &SceneSnapshot{
		Triangles: []Triangle{{
			A: r3.Vec{X: -1, Y: -1},
			B: r3.Vec{X: 2, Y: -1},
			C: r3.Vec{X: 0, Y: 2},
		}},
	}

	engine := NewSearchEngine()
	result, ok := engine.Search(r3.Vec{}, snap)
	if !ok {
		t.Fatal("expected a mesh hit")
	}
	if result.SurfaceID != "" {
		t.Errorf("mesh hit surface id = %q, want empty", result.SurfaceID)
	}
	if result.Confidence != 1.0 {
		t.Errorf("zero-distance mesh hit confidence = %v, want 1.0", result.Confidence)
	}

	// Hit normal faces back up toward the ray origin.
	zAxis := r3.Vec{X: result.Transform[2], Y: result.Transform[6], Z: result.Transform[10]}
	if zAxis.Z <= 0 {
		t.Errorf("mesh hit normal %v should point upward", zAxis)
	}
}

func TestPlaneAreaAndAlignment(t *testing.T) {
	p := NewHorizontalPlane("p", r3.Vec{}, 0.5, 0.25)
	if got := p.Area(); got != 0.5 {
		t.Errorf("area = %v, want 0.5", got)
	}
	if got := p.OrientationAlignment(); got != 1.0 {
		t.Errorf("horizontal alignment = %v, want 1.0", got)
	}

	tilted := p
	tilted.Normal = r3.Vec{X: 1}
	if got := tilted.OrientationAlignment(); got != 0 {
		t.Errorf("vertical alignment = %v, want 0", got)
	}
}

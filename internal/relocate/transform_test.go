package relocate

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func vecsClose(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func TestIdentityTransform(t *testing.T) {
	id := IdentityTransform()
	if !id.IsValid() {
		t.Error("identity transform should be valid")
	}

	p := r3.Vec{X: 1.5, Y: -2, Z: 0.25}
	if got := id.Apply(p); got != p {
		t.Errorf("identity.Apply(%v) = %v", p, got)
	}
}

func TestTranslationTransform(t *testing.T) {
	pos := r3.Vec{X: 1, Y: 2, Z: 3}
	tr := TranslationTransform(pos)

	if !tr.IsValid() {
		t.Error("translation transform should be valid")
	}
	if got := tr.Translation(); got != pos {
		t.Errorf("Translation() = %v, want %v", got, pos)
	}
	if got := tr.Apply(r3.Vec{}); got != pos {
		t.Errorf("Apply(origin) = %v, want %v", got, pos)
	}
}

func TestIsValid_RejectsDegenerate(t *testing.T) {
	var zero Transform
	if zero.IsValid() {
		t.Error("zero matrix should be invalid")
	}

	// Scaled rotation submatrix: determinant far from 1.
	scaled := IdentityTransform()
	scaled[0], scaled[5], scaled[10] = 2, 2, 2
	if scaled.IsValid() {
		t.Error("scaled matrix should be invalid")
	}

	// Bad homogeneous row.
	badRow := IdentityTransform()
	badRow[12] = 0.5
	if badRow.IsValid() {
		t.Error("matrix with non-zero bottom row should be invalid")
	}

	// Reflection: determinant -1.
	mirror := IdentityTransform()
	mirror[0] = -1
	if mirror.IsValid() {
		t.Error("reflection should be invalid")
	}
}

func TestQuatRoundTrip(t *testing.T) {
	// A rotation of 90° about Z.
	angle := math.Pi / 2
	q := quat.Number{Real: math.Cos(angle / 2), Kmag: math.Sin(angle / 2)}
	pos := r3.Vec{X: 0.5, Y: -1, Z: 2}

	tr := TransformFromQuat(q, pos)
	if !tr.IsValid() {
		t.Fatal("quaternion-built transform should be valid")
	}

	// X axis maps to Y under a +90° Z rotation.
	got := tr.Apply(r3.Vec{X: 1})
	want := r3.Vec{X: pos.X, Y: pos.Y + 1, Z: pos.Z}
	if !vecsClose(got, want, 1e-9) {
		t.Errorf("rotated X axis = %v, want %v", got, want)
	}

	// Extract the quaternion back out; sign may flip as q and -q encode the
	// same rotation.
	back := tr.RotationQuat()
	if back.Real < 0 {
		back = quat.Scale(-1, back)
	}
	if math.Abs(back.Real-q.Real) > 1e-9 || math.Abs(back.Kmag-q.Kmag) > 1e-9 ||
		math.Abs(back.Imag) > 1e-9 || math.Abs(back.Jmag) > 1e-9 {
		t.Errorf("round-tripped quaternion = %+v, want %+v", back, q)
	}
}

func TestTransformFromQuat_NormalisesInput(t *testing.T) {
	// Denormalised input encoding the same 90° Z rotation.
	angle := math.Pi / 2
	q := quat.Scale(3, quat.Number{Real: math.Cos(angle / 2), Kmag: math.Sin(angle / 2)})

	tr := TransformFromQuat(q, r3.Vec{})
	if !tr.IsValid() {
		t.Error("transform from denormalised quaternion should still be a proper rotation")
	}
}

func TestTransformFromNormal(t *testing.T) {
	origin := r3.Vec{X: 1, Y: 2, Z: 0.5}

	up := TransformFromNormal(origin, r3.Vec{Z: 1})
	if !up.IsValid() {
		t.Fatal("transform from up normal should be valid")
	}
	if got := up.Translation(); got != origin {
		t.Errorf("translation = %v, want %v", got, origin)
	}

	// Local Z axis must point along the normal.
	zAxis := r3.Vec{X: up[2], Y: up[6], Z: up[10]}
	if !vecsClose(zAxis, r3.Vec{Z: 1}, 1e-9) {
		t.Errorf("local Z axis = %v, want +Z", zAxis)
	}

	// Deterministic: identical inputs yield identical matrices.
	again := TransformFromNormal(origin, r3.Vec{Z: 1})
	if up != again {
		t.Error("TransformFromNormal should be deterministic")
	}

	// Normal nearly parallel to the X reference axis exercises the fallback
	// reference and must still produce a proper rotation.
	side := TransformFromNormal(origin, r3.Vec{X: 1, Z: 0.01})
	if !side.IsValid() {
		t.Error("transform from near-X normal should be valid")
	}
}

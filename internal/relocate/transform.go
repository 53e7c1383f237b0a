package relocate

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a 4x4 rigid transform stored row-major:
// m00,m01,m02,m03, m10,... The upper-left 3x3 is the rotation, the last
// column is the translation.
//
// Persisted anchor records use the external storage collaborator's layout
// (16 floats, column-major); conversion happens only at that boundary, in
// the storage package.
type Transform [16]float64

// MatrixValidationTolerance is the tolerance for checking rotation
// submatrix validity.
const MatrixValidationTolerance = 0.01

// IdentityTransform returns the identity rigid transform.
func IdentityTransform() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// TranslationTransform returns an identity-rotation transform at p.
func TranslationTransform(p r3.Vec) Transform {
	t := IdentityTransform()
	t.SetTranslation(p)
	return t
}

// Translation returns the translation component.
func (t Transform) Translation() r3.Vec {
	return r3.Vec{X: t[3], Y: t[7], Z: t[11]}
}

// SetTranslation replaces the translation component.
func (t *Transform) SetTranslation(p r3.Vec) {
	t[3] = p.X
	t[7] = p.Y
	t[11] = p.Z
}

// Apply transforms point p into the target frame.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// IsValid checks that the transform is a proper rigid transform:
// orthonormal rotation submatrix (det ≈ 1) and last row [0 0 0 1].
func (t Transform) IsValid() bool {
	r00, r01, r02 := t[0], t[1], t[2]
	r10, r11, r12 := t[4], t[5], t[6]
	r20, r21, r22 := t[8], t[9], t[10]

	// Determinant ≈ 1 (proper rotation, not reflection)
	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}

	if t[12] != 0 || t[13] != 0 || t[14] != 0 || math.Abs(t[15]-1.0) > 0.001 {
		return false
	}

	return true
}

// RotationQuat extracts the rotation submatrix as a unit quaternion.
// Uses the Shepperd method, branching on the largest diagonal term for
// numerical stability.
func (t Transform) RotationQuat() quat.Number {
	m00, m01, m02 := t[0], t[1], t[2]
	m10, m11, m12 := t[4], t[5], t[6]
	m20, m21, m22 := t[8], t[9], t[10]

	trace := m00 + m11 + m22
	var q quat.Number
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1.0) * 2
		q.Real = 0.25 * s
		q.Imag = (m21 - m12) / s
		q.Jmag = (m02 - m20) / s
		q.Kmag = (m10 - m01) / s
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1.0+m00-m11-m22) * 2
		q.Real = (m21 - m12) / s
		q.Imag = 0.25 * s
		q.Jmag = (m01 + m10) / s
		q.Kmag = (m02 + m20) / s
	case m11 > m22:
		s := math.Sqrt(1.0+m11-m00-m22) * 2
		q.Real = (m02 - m20) / s
		q.Imag = (m01 + m10) / s
		q.Jmag = 0.25 * s
		q.Kmag = (m12 + m21) / s
	default:
		s := math.Sqrt(1.0+m22-m00-m11) * 2
		q.Real = (m10 - m01) / s
		q.Imag = (m02 + m20) / s
		q.Jmag = (m12 + m21) / s
		q.Kmag = 0.25 * s
	}
	return q
}

// TransformFromQuat builds a rigid transform from a unit quaternion rotation
// and a translation. The quaternion is normalised before conversion so a
// slightly denormalised input still yields a proper rotation.
func TransformFromQuat(q quat.Number, translation r3.Vec) Transform {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return TranslationTransform(translation)
	}
	w, x, y, z := q.Real/n, q.Imag/n, q.Jmag/n, q.Kmag/n

	return Transform{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), translation.X,
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), translation.Y,
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), translation.Z,
		0, 0, 0, 1,
	}
}

// quatFromArray converts a stored w,x,y,z quaternion to quat.Number.
func quatFromArray(a [4]float64) quat.Number {
	return quat.Number{Real: a[0], Imag: a[1], Jmag: a[2], Kmag: a[3]}
}

// TransformFromNormal builds a transform whose local Z axis points along the
// surface normal, positioned at origin. The in-plane axes are chosen
// deterministically from a fixed reference so repeated calls with the same
// normal agree.
func TransformFromNormal(origin, normal r3.Vec) Transform {
	z := r3.Unit(normal)

	// Pick a reference axis not parallel to the normal.
	ref := r3.Vec{X: 1, Y: 0, Z: 0}
	if math.Abs(r3.Dot(ref, z)) > 0.9 {
		ref = r3.Vec{X: 0, Y: 1, Z: 0}
	}

	x := r3.Unit(r3.Cross(ref, z))
	y := r3.Cross(z, x)

	return Transform{
		x.X, y.X, z.X, origin.X,
		x.Y, y.Y, z.Y, origin.Y,
		x.Z, y.Z, z.Z, origin.Z,
		0, 0, 0, 1,
	}
}

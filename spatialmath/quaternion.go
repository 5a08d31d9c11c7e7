// Package spatialmath defines the rigid transform algebra used by the frame graph: poses built
// from a translation and a unit rotation quaternion, composition, inversion and comparison.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// defaultEpsilon is the tolerance used when comparing translations and quaternion components.
const defaultEpsilon = 1e-5

// If a quaternion's modulus is below this value it is treated as degenerate.
const degenerateNorm = 1e-12

var identityQuat = quat.Number{Real: 1}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Normalize scales q to unit length. Degenerate or non-finite quaternions normalize to the
// identity rotation so that a single bad input can not spread NaNs through a composed chain.
func Normalize(q quat.Number) quat.Number {
	if quat.IsNaN(q) || quat.IsInf(q) {
		return identityQuat
	}
	abs := quat.Abs(q)
	if abs < degenerateNorm {
		return identityQuat
	}
	if abs == 1 {
		return q
	}
	return quat.Scale(1/abs, q)
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage, q == -q, and
// this function will *not* account for this. Use OrientationAlmostEqual unless you're certain this is what you want.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// OrientationAlmostEqual returns whether two quaternions describe approximately the same rotation,
// accounting for the double cover.
func OrientationAlmostEqual(a, b quat.Number) bool {
	return OrientationAlmostEqualEps(a, b, defaultEpsilon)
}

// OrientationAlmostEqualEps is OrientationAlmostEqual with a caller supplied tolerance.
func OrientationAlmostEqualEps(a, b quat.Number, tol float64) bool {
	return QuaternionAlmostEqual(a, b, tol) || QuaternionAlmostEqual(a, Flip(b), tol)
}

// OrientationBetween returns the rotation taking o1 to o2.
func OrientationBetween(o1, o2 quat.Number) quat.Number {
	return Normalize(quat.Mul(o2, quat.Conj(o1)))
}

// RotatePoint rotates the point p by the unit quaternion q.
func RotatePoint(q quat.Number, p r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: p.X, Jmag: p.Y, Kmag: p.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// QuatToR4AA converts a quat to an R4 axis angle in the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR4AA(q quat.Number) R4AA {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < 1e-6 {
		return R4AA{Theta: angle, RX: 0, RY: 0, RZ: 1}
	}
	return R4AA{Theta: angle, RX: q.Imag / denom, RY: q.Jmag / denom, RZ: q.Kmag / denom}
}

// RotationAngle returns the magnitude, in radians within [0, pi], of the rotation q represents.
func RotationAngle(q quat.Number) float64 {
	q = Normalize(q)
	w := math.Min(math.Abs(q.Real), 1)
	return 2 * math.Acos(w)
}

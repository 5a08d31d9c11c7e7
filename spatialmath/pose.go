package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a translation and a unit rotation quaternion. For a frame graph edge
// the pose maps coordinates expressed in the child frame into the parent frame.
//
// A Pose is immutable once constructed, so a single *Pose may be shared freely between goroutines
// and between callers.
type Pose struct {
	point       r3.Vector
	orientation quat.Number
}

// zeroPose is the shared identity transform handed out on hot paths.
var zeroPose = &Pose{orientation: identityQuat}

// NewZeroPose returns the shared identity pose. It never allocates.
func NewZeroPose() *Pose {
	return zeroPose
}

// NewPose returns a pose with the given translation and rotation. The rotation is normalized; a
// degenerate rotation becomes the identity rotation and a translation with a NaN or infinite
// component becomes the zero translation.
func NewPose(point r3.Vector, orientation quat.Number) *Pose {
	return &Pose{point: finitePoint(point), orientation: Normalize(orientation)}
}

// NewPoseFromPoint returns a pure translation. A non-finite point is treated as the origin.
func NewPoseFromPoint(point r3.Vector) *Pose {
	return &Pose{point: finitePoint(point), orientation: identityQuat}
}

func finitePoint(pt r3.Vector) r3.Vector {
	if !finite(pt.X, pt.Y, pt.Z) {
		return r3.Vector{}
	}
	return pt
}

// NewPoseFromOrientation returns a pure rotation.
func NewPoseFromOrientation(orientation quat.Number) *Pose {
	return NewPose(r3.Vector{}, orientation)
}

// NewPoseFromAxisAngle returns a pose translated by point and rotated by theta radians around axis.
func NewPoseFromAxisAngle(point, axis r3.Vector, theta float64) *Pose {
	return NewPose(point, R4AA{Theta: theta, RX: axis.X, RY: axis.Y, RZ: axis.Z}.ToQuat())
}

// Point returns the translation of the pose.
func (p *Pose) Point() r3.Vector {
	return p.point
}

// Orientation returns the unit rotation quaternion of the pose.
func (p *Pose) Orientation() quat.Number {
	return p.orientation
}

// IsIdentity reports whether p is exactly the identity transform.
func (p *Pose) IsIdentity() bool {
	return p == zeroPose || (p.point == r3.Vector{} && p.orientation == identityQuat)
}

// Transform applies the pose to a point expressed in the pose's source frame.
func (p *Pose) Transform(pt r3.Vector) r3.Vector {
	return p.point.Add(RotatePoint(p.orientation, pt))
}

// Matrix returns the pose as a column major homogeneous transform, as consumed by renderers.
func (p *Pose) Matrix() mgl64.Mat4 {
	q := mgl64.Quat{W: p.orientation.Real, V: mgl64.Vec3{p.orientation.Imag, p.orientation.Jmag, p.orientation.Kmag}}
	m := q.Mat4()
	m.SetCol(3, mgl64.Vec4{p.point.X, p.point.Y, p.point.Z, 1})
	return m
}

func (p *Pose) String() string {
	aa := QuatToR4AA(p.orientation)
	return fmt.Sprintf(
		"{X:%.3f Y:%.3f Z:%.3f TH:%.3f RX:%.3f RY:%.3f RZ:%.3f}",
		p.point.X, p.point.Y, p.point.Z, aa.Theta, aa.RX, aa.RY, aa.RZ,
	)
}

// Compose returns the pose that applies b and then a (a ∘ b). Composition is not commutative.
func Compose(a, b *Pose) *Pose {
	if a.IsIdentity() {
		return b
	}
	if b.IsIdentity() {
		return a
	}
	return &Pose{
		point:       a.point.Add(RotatePoint(a.orientation, b.point)),
		orientation: Normalize(quat.Mul(a.orientation, b.orientation)),
	}
}

// PoseInverse returns the inverse of p, such that Compose(p, PoseInverse(p)) is the identity.
func PoseInverse(p *Pose) *Pose {
	if p.IsIdentity() {
		return zeroPose
	}
	inv := Normalize(quat.Conj(p.orientation))
	return &Pose{
		point:       RotatePoint(inv, p.point.Mul(-1)),
		orientation: inv,
	}
}

// PoseBetween returns the pose that takes a to b, i.e. Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b *Pose) *Pose {
	return Compose(PoseInverse(a), b)
}

// PoseDelta returns the translation distance and the rotation angle, in radians, between a and b.
func PoseDelta(a, b *Pose) (distance, angle float64) {
	distance = a.point.Distance(b.point)
	angle = RotationAngle(OrientationBetween(a.orientation, b.orientation))
	return distance, angle
}

// PoseAlmostEqual returns whether the translations of a and b are within 1e-5 of each other per
// component and their rotations are the same up to the quaternion double cover.
func PoseAlmostEqual(a, b *Pose) bool {
	return PoseAlmostEqualEps(a, b, defaultEpsilon)
}

// PoseAlmostEqualEps is PoseAlmostEqual with a caller supplied tolerance.
func PoseAlmostEqualEps(a, b *Pose, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(a.point.X-b.point.X) < tol &&
		math.Abs(a.point.Y-b.point.Y) < tol &&
		math.Abs(a.point.Z-b.point.Z) < tol &&
		OrientationAlmostEqualEps(a.orientation, b.orientation, tol)
}

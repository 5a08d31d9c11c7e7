package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// TranslationConfig is the json form of a translation.
type TranslationConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// QuaternionConfig is the json form of a rotation quaternion.
type QuaternionConfig struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PoseConfig is the json form of a pose. At most one of Rotation and AxisAngle may be set; with
// neither set the pose has no rotation.
type PoseConfig struct {
	Translation TranslationConfig `json:"translation"`
	Rotation    *QuaternionConfig `json:"rotation,omitempty"`
	AxisAngle   *R4AA             `json:"axis_angle,omitempty"`
}

// NewPoseConfig returns the json form of p, always using the quaternion rotation.
func NewPoseConfig(p *Pose) PoseConfig {
	pt, q := p.Point(), p.Orientation()
	return PoseConfig{
		Translation: TranslationConfig{X: pt.X, Y: pt.Y, Z: pt.Z},
		Rotation:    &QuaternionConfig{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag},
	}
}

// ParseConfig converts the config into a pose, rejecting non-finite values and zero quaternions.
func (cfg PoseConfig) ParseConfig() (*Pose, error) {
	pt := r3.Vector{X: cfg.Translation.X, Y: cfg.Translation.Y, Z: cfg.Translation.Z}
	if !finite(pt.X, pt.Y, pt.Z) {
		return nil, errors.Errorf("translation %v is not finite", pt)
	}
	switch {
	case cfg.Rotation != nil && cfg.AxisAngle != nil:
		return nil, errors.New("only one of rotation and axis_angle may be set")
	case cfg.Rotation != nil:
		r := cfg.Rotation
		if !finite(r.W, r.X, r.Y, r.Z) {
			return nil, errors.Errorf("rotation %v is not finite", *r)
		}
		q := quat.Number{Real: r.W, Imag: r.X, Jmag: r.Y, Kmag: r.Z}
		if quat.Abs(q) < degenerateNorm {
			return nil, errors.New("rotation quaternion has zero length")
		}
		return NewPose(pt, q), nil
	case cfg.AxisAngle != nil:
		aa := cfg.AxisAngle
		if !finite(aa.Theta, aa.RX, aa.RY, aa.RZ) {
			return nil, errors.Errorf("axis angle %v is not finite", *aa)
		}
		return NewPose(pt, aa.ToQuat()), nil
	default:
		return NewPoseFromPoint(pt), nil
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

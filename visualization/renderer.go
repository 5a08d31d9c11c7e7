// Package visualization contains the consumers that keep rendered frames in step with a
// framesystem.Provider, either by polling it on a tick or by following its subscriptions.
package visualization

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/spatialmath"
)

// A Renderer draws the named element at pose, expressed in the fixed frame. A nil pose means the
// element's frame cannot be resolved and the element should be hidden.
type Renderer interface {
	Render(name string, pose *spatialmath.Pose)
}

// LogRenderer writes every render call to a logger.
type LogRenderer struct {
	Logger logging.Logger
}

// Render implements Renderer.
func (r LogRenderer) Render(name string, pose *spatialmath.Pose) {
	if pose == nil {
		r.Logger.Infow("hidden", "name", name)
		return
	}
	r.Logger.Infow("pose", "name", name, "pose", pose.String())
}

// AxesRenderer keeps the homogeneous transform of each visible element, the form an axes or camera
// frustum visual is drawn from.
type AxesRenderer struct {
	length float64

	mu         sync.Mutex
	transforms map[string]mgl64.Mat4
}

// NewAxesRenderer returns an AxesRenderer with no visible elements that draws axes of the given
// length. A length of zero draws unit axes.
func NewAxesRenderer(length float64) *AxesRenderer {
	if length == 0 {
		length = 1
	}
	return &AxesRenderer{length: length, transforms: map[string]mgl64.Mat4{}}
}

// Render implements Renderer.
func (r *AxesRenderer) Render(name string, pose *spatialmath.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pose == nil {
		delete(r.transforms, name)
		return
	}
	r.transforms[name] = pose.Matrix()
}

// Transform returns the matrix of a visible element.
func (r *AxesRenderer) Transform(name string) (mgl64.Mat4, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.transforms[name]
	return m, ok
}

// Axes returns the origin and the tips of the x, y and z axes of a visible element.
func (r *AxesRenderer) Axes(name string) (origin mgl64.Vec3, axes [3]mgl64.Vec3, ok bool) {
	m, ok := r.Transform(name)
	if !ok {
		return origin, axes, false
	}
	origin = m.Mul4x1(mgl64.Vec4{0, 0, 0, 1}).Vec3()
	for i := range axes {
		var tip mgl64.Vec4
		tip[i] = r.length
		tip[3] = 1
		axes[i] = m.Mul4x1(tip).Vec3()
	}
	return origin, axes, true
}

// Visible returns the number of elements currently shown.
func (r *AxesRenderer) Visible() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transforms)
}

package visualization

import (
	"sync"

	"go.viam.com/framegraph/spatialmath"
)

// Thresholds limit re-rendering to poses that moved by more than Translation, in the units of the
// graph, or rotated by more than Rotation radians since the last render. Zero thresholds render
// every change.
type Thresholds struct {
	Translation float64
	Rotation    float64
}

// changeFilter remembers the last rendered pose and decides whether a new one is worth rendering.
type changeFilter struct {
	mu         sync.Mutex
	thresholds Thresholds
	rendered   bool
	last       *spatialmath.Pose
}

func (f *changeFilter) accept(pose *spatialmath.Pose) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.rendered || (f.last == nil) != (pose == nil) {
		f.rendered = true
		f.last = pose
		return true
	}
	if pose == nil || pose == f.last {
		return false
	}
	distance, angle := spatialmath.PoseDelta(f.last, pose)
	if distance > f.thresholds.Translation || angle > f.thresholds.Rotation {
		f.last = pose
		return true
	}
	return false
}

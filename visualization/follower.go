package visualization

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/framegraph/framesystem"
	"go.viam.com/framegraph/spatialmath"
)

// Subscriber delivers a frame's pose in the fixed frame whenever it may have changed.
// framesystem.Provider implements it.
type Subscriber interface {
	Subscribe(frame string, cb framesystem.Callback) framesystem.SubscriptionID
	Unsubscribe(frame string, ids ...framesystem.SubscriptionID)
}

// A Follower renders its frame from subscription callbacks instead of polling.
type Follower struct {
	name     string
	frame    string
	source   Subscriber
	renderer Renderer
	filter   changeFilter
}

// NewFollower returns a Follower. It does not subscribe until Run.
func NewFollower(name, frame string, thresholds Thresholds, source Subscriber, renderer Renderer) (*Follower, error) {
	if frame == "" {
		return nil, errors.Errorf("follower %q has no frame", name)
	}
	return &Follower{
		name:     name,
		frame:    frame,
		source:   source,
		renderer: renderer,
		filter:   changeFilter{thresholds: thresholds},
	}, nil
}

// Name returns the consumer name.
func (f *Follower) Name() string {
	return f.name
}

func (f *Follower) onPose(pose *spatialmath.Pose) {
	if f.filter.accept(pose) {
		f.renderer.Render(f.name, pose)
	}
}

// Run subscribes, which renders the current pose before it returns, and unsubscribes once ctx is done.
func (f *Follower) Run(ctx context.Context) error {
	id := f.source.Subscribe(f.frame, f.onPose)
	<-ctx.Done()
	f.source.Unsubscribe(f.frame, id)
	return nil
}

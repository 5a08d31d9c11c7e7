// Package framesystem serves lookups and change notifications over a frame graph that is replaced
// or patched as transform updates arrive.
package framesystem

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
	"go.viam.com/framegraph/spatialmath"
)

// SubscriptionID identifies one callback registered with Subscribe. The zero ID is never issued.
type SubscriptionID uuid.UUID

// String returns the canonical uuid form of the id.
func (id SubscriptionID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is the zero ID returned by a disposed Provider.
func (id SubscriptionID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Callback receives the pose of a subscribed frame expressed in the fixed frame, or nil when the two
// are not connected.
type Callback func(pose *spatialmath.Pose)

type subscription struct {
	id SubscriptionID
	cb Callback
}

type notification struct {
	frame string
	sub   subscription
	pose  *spatialmath.Pose
}

// Stats counts Provider activity since construction.
type Stats struct {
	Updates          int64
	Notifications    int64
	CallbackFailures int64
}

// A Provider owns a frame graph snapshot and a fixed frame, answers lookups against them and keeps
// subscribers informed as either changes.
//
// All methods are safe for concurrent use. Notifications are delivered synchronously, in order,
// from the goroutine that caused them. A callback is not started once Unsubscribe removed it or
// the Provider was disposed, even mid-batch. Callbacks may call LookupTransform, the read-only
// accessors, Unsubscribe and Dispose but must not call Subscribe or any update method.
type Provider struct {
	logger   logging.Logger
	detector ChangeDetector

	// deliverMu is held from the moment state changes until every resulting callback has run. It
	// orders batches; Unsubscribe and Dispose do not take it so callbacks may call them.
	deliverMu sync.Mutex

	mu            sync.RWMutex
	fixedFrame    string
	graph         *referenceframe.Graph
	subscriptions map[string][]subscription
	disposed      bool

	updates          atomic.Int64
	notifications    atomic.Int64
	callbackFailures atomic.Int64
}

// NewProvider returns an active Provider over a copy of graph. A nil graph starts empty.
func NewProvider(fixedFrame string, graph *referenceframe.Graph, logger logging.Logger, opts ...Option) *Provider {
	p := &Provider{
		logger:        logger,
		detector:      ExactDetector{},
		fixedFrame:    referenceframe.NormalizeName(fixedFrame),
		graph:         graph.Clone(),
		subscriptions: map[string][]subscription{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LookupTransform returns the pose of source expressed in target, i.e. the transform that maps
// coordinates in the source frame into the target frame. It returns nil when the frames are not
// connected or the Provider is disposed.
func (p *Provider) LookupTransform(target, source string) *spatialmath.Pose {
	p.mu.RLock()
	graph, disposed := p.graph, p.disposed
	p.mu.RUnlock()
	if disposed {
		return nil
	}
	return p.lookup(graph, target, source)
}

func (p *Provider) lookup(graph *referenceframe.Graph, target, source string) *spatialmath.Pose {
	pose := referenceframe.Lookup(source, target, graph)
	if pose == nil {
		p.logger.Debugw("no transform between frames", "target", target, "source", source)
	}
	return pose
}

// Subscribe registers cb for frame and calls it once with the current pose of frame in the fixed
// frame before returning. A disposed Provider ignores the call and returns the zero ID.
func (p *Provider) Subscribe(frame string, cb Callback) SubscriptionID {
	frame = referenceframe.NormalizeName(frame)
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return SubscriptionID{}
	}
	sub := subscription{id: SubscriptionID(uuid.New()), cb: cb}
	p.subscriptions[frame] = append(p.subscriptions[frame], sub)
	initial := notification{frame: frame, sub: sub, pose: p.lookup(p.graph, p.fixedFrame, frame)}
	p.mu.Unlock()

	p.deliver(initial)
	return sub.id
}

// Unsubscribe removes the given subscriptions of frame, or all of them when no id is given.
func (p *Provider) Unsubscribe(frame string, ids ...SubscriptionID) {
	frame = referenceframe.NormalizeName(frame)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	if len(ids) == 0 {
		delete(p.subscriptions, frame)
		return
	}
	drop := make(map[SubscriptionID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]subscription, 0, len(p.subscriptions[frame]))
	for _, sub := range p.subscriptions[frame] {
		if _, ok := drop[sub.id]; !ok {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(p.subscriptions, frame)
		return
	}
	p.subscriptions[frame] = kept
}

// UpdateTransforms replaces the graph with a copy of graph and renotifies the subscriptions whose
// result may have changed.
func (p *Provider) UpdateTransforms(graph *referenceframe.Graph) {
	p.replaceGraph(func(*referenceframe.Graph) *referenceframe.Graph {
		return graph.Clone()
	})
}

// MergeTransforms applies the edges of delta on top of the current graph and renotifies the
// subscriptions whose result may have changed.
func (p *Provider) MergeTransforms(delta *referenceframe.Graph) {
	p.replaceGraph(func(current *referenceframe.Graph) *referenceframe.Graph {
		next := current.Clone()
		next.Merge(delta)
		return next
	})
}

func (p *Provider) replaceGraph(next func(current *referenceframe.Graph) *referenceframe.Graph) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	old := p.graph
	p.graph = next(old)
	p.updates.Inc()
	affected := p.detector.Affected(old, p.graph, p.fixedFrame, p.subscribedFramesLocked())
	batch := p.notificationsLocked(affected)
	p.mu.Unlock()

	p.deliverAll(batch)
}

// UpdateFixedFrame changes the frame subscription results are expressed in and renotifies every
// subscription. Setting the current fixed frame again does nothing.
func (p *Provider) UpdateFixedFrame(frame string) {
	frame = referenceframe.NormalizeName(frame)
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.disposed || frame == p.fixedFrame {
		p.mu.Unlock()
		return
	}
	p.fixedFrame = frame
	batch := p.notificationsLocked(p.subscribedFramesLocked())
	p.mu.Unlock()

	p.deliverAll(batch)
}

// Dispose drops the graph and every subscription. All later calls are no-ops. Called from a
// callback, it also drops the rest of the batch being delivered.
func (p *Provider) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disposed = true
	p.graph = nil
	p.subscriptions = map[string][]subscription{}
}

// Disposed reports whether Dispose has been called.
func (p *Provider) Disposed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.disposed
}

// FixedFrame returns the frame subscription results are expressed in.
func (p *Provider) FixedFrame() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fixedFrame
}

// Snapshot returns the current graph. Callers must not modify it.
func (p *Provider) Snapshot() *referenceframe.Graph {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.graph
}

// Frames returns the sorted names of every frame in the current graph.
func (p *Provider) Frames() []string {
	return p.Snapshot().FrameNames()
}

// Subscriptions returns the number of registered callbacks.
func (p *Provider) Subscriptions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var n int
	for _, subs := range p.subscriptions {
		n += len(subs)
	}
	return n
}

// Stats returns a snapshot of the activity counters.
func (p *Provider) Stats() Stats {
	return Stats{
		Updates:          p.updates.Load(),
		Notifications:    p.notifications.Load(),
		CallbackFailures: p.callbackFailures.Load(),
	}
}

func (p *Provider) subscribedFramesLocked() []string {
	frames := make([]string, 0, len(p.subscriptions))
	for frame := range p.subscriptions {
		frames = append(frames, frame)
	}
	sort.Strings(frames)
	return frames
}

// notificationsLocked resolves each frame once and fans the result out to its subscriptions.
func (p *Provider) notificationsLocked(frames []string) []notification {
	var batch []notification
	for _, frame := range frames {
		subs := p.subscriptions[frame]
		if len(subs) == 0 {
			continue
		}
		pose := p.lookup(p.graph, p.fixedFrame, frame)
		for _, sub := range subs {
			batch = append(batch, notification{frame: frame, sub: sub, pose: pose})
		}
	}
	return batch
}

func (p *Provider) deliverAll(batch []notification) {
	for _, n := range batch {
		p.deliver(n)
	}
}

// live reports whether n may still be delivered: the Provider is not disposed and its subscription
// has not been removed since the batch was built.
func (p *Provider) live(n notification) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.disposed {
		return false
	}
	for _, sub := range p.subscriptions[n.frame] {
		if sub.id == n.sub.id {
			return true
		}
	}
	return false
}

// deliver runs one callback, recovering from a panic so the rest of the batch is still delivered.
func (p *Provider) deliver(n notification) {
	if !p.live(n) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.callbackFailures.Inc()
			p.logger.Errorw("subscription callback failed", "frame", n.frame, "subscription", n.sub.id.String(), "panic", r)
		}
	}()
	p.notifications.Inc()
	n.sub.cb(n.pose)
}

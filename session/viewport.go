// Package session ties a frame graph provider to the consumers of one visualization session.
package session

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/framegraph/config"
	"go.viam.com/framegraph/feed"
	"go.viam.com/framegraph/framesystem"
	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
	"go.viam.com/framegraph/visualization"
)

// A Consumer keeps one visual element up to date until its context is done.
type Consumer interface {
	Name() string
	Run(ctx context.Context) error
}

// A Viewport owns the Provider of one visualization session and the consumers drawing from it. It
// is created at session start and closed at session end; nothing is shared between viewports.
type Viewport struct {
	id        uuid.UUID
	logger    logging.Logger
	provider  *framesystem.Provider
	consumers []Consumer
	renderers map[string]visualization.Renderer
	watcher   *feed.Watcher

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	errs    error
	started bool
	closed  bool
}

type options struct {
	clock     clock.Clock
	renderers map[string]visualization.Renderer
}

// An Option configures a Viewport.
type Option func(*options)

// WithClock sets the clock pollers tick on.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithRenderer replaces the configured renderer of the named consumer.
func WithRenderer(consumer string, renderer visualization.Renderer) Option {
	return func(o *options) {
		o.renderers[consumer] = renderer
	}
}

// New builds a viewport from cfg. Log patterns in cfg are applied to the logger registry. Consumers
// do not run until Start.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Viewport, error) {
	o := options{clock: clock.New(), renderers: map[string]visualization.Renderer{}}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if len(cfg.LogConfig) > 0 {
		if err := logging.UpdateLoggerConfig(cfg.LogConfig, logger); err != nil {
			return nil, err
		}
	}

	detector, err := cfg.ChangeDetection.Detector()
	if err != nil {
		return nil, err
	}
	base, err := cfg.Graph()
	if err != nil {
		return nil, err
	}
	initial := base
	if cfg.GraphFile != "" {
		fromFile, err := feed.ReadGraphFile(cfg.GraphFile)
		if err != nil {
			return nil, err
		}
		initial = base.Clone()
		initial.Merge(fromFile)
	}
	if err := referenceframe.Validate(initial); err != nil {
		logger.Warnw("initial frame graph is malformed", "error", err)
	}

	v := &Viewport{
		id:        uuid.New(),
		logger:    logger,
		provider:  framesystem.NewProvider(cfg.FixedFrame, initial, logger.Sublogger("provider"), framesystem.WithChangeDetector(detector)),
		renderers: map[string]visualization.Renderer{},
	}
	if cfg.GraphFile != "" {
		v.watcher = feed.NewWatcher(cfg.GraphFile, baseTarget{base: base, provider: v.provider}, 0, logger.Sublogger("feed"))
	}
	for _, cc := range cfg.Consumers {
		consumerLogger := logger.Sublogger(cc.Name)
		renderer, ok := o.renderers[cc.Name]
		if !ok {
			if renderer, err = newRenderer(cc, consumerLogger); err != nil {
				return nil, errors.Wrapf(err, "consumer %q", cc.Name)
			}
		}
		consumer, err := v.newConsumer(cc, renderer, o.clock, consumerLogger)
		if err != nil {
			return nil, err
		}
		v.consumers = append(v.consumers, consumer)
		v.renderers[cc.Name] = renderer
	}
	return v, nil
}

func newRenderer(cc config.ConsumerConfig, logger logging.Logger) (visualization.Renderer, error) {
	switch cc.Renderer {
	case config.RendererAxes:
		attrs, err := config.DecodeAttributes[config.AxesAttributes](cc.Attributes)
		if err != nil {
			return nil, err
		}
		return visualization.NewAxesRenderer(attrs.Length), nil
	case config.RendererLog, "":
		attrs, err := config.DecodeAttributes[config.LogAttributes](cc.Attributes)
		if err != nil {
			return nil, err
		}
		if attrs.Level != "" {
			level, err := logging.LevelFromString(attrs.Level)
			if err != nil {
				return nil, err
			}
			logger.SetLevel(level)
		}
		return visualization.LogRenderer{Logger: logger}, nil
	default:
		return nil, errors.Errorf("unknown renderer %q", cc.Renderer)
	}
}

func (v *Viewport) newConsumer(
	cc config.ConsumerConfig,
	renderer visualization.Renderer,
	clk clock.Clock,
	logger logging.Logger,
) (Consumer, error) {
	thresholds := visualization.Thresholds{Translation: cc.TranslationThreshold, Rotation: cc.RotationThreshold}
	switch cc.Kind {
	case config.KindFollower:
		return visualization.NewFollower(cc.Name, cc.Frame, thresholds, v.provider, renderer)
	case config.KindPoller, "":
		return visualization.NewPoller(visualization.PollerConfig{
			Name:       cc.Name,
			Frame:      cc.Frame,
			RateHz:     cc.RateHz,
			Thresholds: thresholds,
		}, v.provider, renderer, clk, logger)
	default:
		return nil, errors.Errorf("unknown consumer kind %q", cc.Kind)
	}
}

// baseTarget lays every snapshot from the graph file over the frames configured inline.
type baseTarget struct {
	base     *referenceframe.Graph
	provider *framesystem.Provider
}

func (t baseTarget) UpdateTransforms(g *referenceframe.Graph) {
	merged := t.base.Clone()
	merged.Merge(g)
	t.provider.UpdateTransforms(merged)
}

func (t baseTarget) MergeTransforms(delta *referenceframe.Graph) {
	t.provider.MergeTransforms(delta)
}

// ID returns the id of this viewport.
func (v *Viewport) ID() uuid.UUID {
	return v.id
}

// Provider returns the provider owned by this viewport.
func (v *Viewport) Provider() *framesystem.Provider {
	return v.provider
}

// Renderer returns the renderer of the named consumer.
func (v *Viewport) Renderer(consumer string) (visualization.Renderer, bool) {
	r, ok := v.renderers[consumer]
	return r, ok
}

// Start runs every consumer, and the graph file watcher if one is configured, in the background.
// They stop when ctx is done, when one of them fails, or on Close.
func (v *Viewport) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return errors.New("viewport is closed")
	}
	if v.started {
		return errors.New("viewport already started")
	}
	v.started = true

	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.group, ctx = errgroup.WithContext(ctx)
	if v.watcher != nil {
		v.run(ctx, "feed", v.watcher.Run)
	}
	for _, c := range v.consumers {
		v.run(ctx, c.Name(), c.Run)
	}
	v.logger.Infow("viewport started", "id", v.id.String(), "consumers", len(v.consumers))
	return nil
}

func (v *Viewport) run(ctx context.Context, name string, fn func(context.Context) error) {
	v.group.Go(func() error {
		err := fn(ctx)
		if err != nil {
			err = errors.Wrapf(err, "%s stopped", name)
			v.logger.Errorw("viewport task failed", "task", name, "error", err)
			v.mu.Lock()
			v.errs = multierr.Append(v.errs, err)
			v.mu.Unlock()
		}
		return err
	})
}

// Close stops the consumers, waits for them and disposes the provider. It returns every error the
// consumers stopped with. Calling Close again does nothing.
func (v *Viewport) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	cancel, group := v.cancel, v.group
	v.mu.Unlock()

	if cancel != nil {
		cancel()
		//nolint:errcheck
		group.Wait()
	}
	v.provider.Dispose()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.logger.Infow("viewport closed", "id", v.id.String())
	return v.errs
}

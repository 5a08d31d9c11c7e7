package visualization

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/spatialmath"
)

// DefaultRateHz is the polling rate used when a consumer does not set one.
const DefaultRateHz = 20

// FrameSource answers lookups against the current fixed frame. framesystem.Provider implements it.
type FrameSource interface {
	LookupTransform(target, source string) *spatialmath.Pose
	FixedFrame() string
}

// PollerConfig describes a Poller.
type PollerConfig struct {
	Name       string
	Frame      string
	RateHz     float64
	Thresholds Thresholds
}

// A Poller looks its frame up in the fixed frame on every tick and renders the result when it
// moved past the thresholds or became available or unavailable.
type Poller struct {
	name     string
	frame    string
	interval time.Duration
	source   FrameSource
	renderer Renderer
	clock    clock.Clock
	logger   logging.Logger
	filter   changeFilter
}

// NewPoller returns a Poller. A zero rate uses DefaultRateHz and a nil clock uses the wall clock.
func NewPoller(cfg PollerConfig, source FrameSource, renderer Renderer, clk clock.Clock, logger logging.Logger) (*Poller, error) {
	if cfg.Frame == "" {
		return nil, errors.Errorf("poller %q has no frame", cfg.Name)
	}
	rate := cfg.RateHz
	if rate < 0 {
		return nil, errors.Errorf("poller %q rate must be positive, got %v", cfg.Name, rate)
	}
	if rate == 0 {
		rate = DefaultRateHz
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{
		name:     cfg.Name,
		frame:    cfg.Frame,
		interval: time.Duration(float64(time.Second) / rate),
		source:   source,
		renderer: renderer,
		clock:    clk,
		logger:   logger,
		filter:   changeFilter{thresholds: cfg.Thresholds},
	}, nil
}

// Name returns the consumer name.
func (p *Poller) Name() string {
	return p.name
}

// Interval returns the time between polls.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Poll looks the frame up once and renders it if needed. It reports whether Render was called.
func (p *Poller) Poll() bool {
	pose := p.source.LookupTransform(p.source.FixedFrame(), p.frame)
	if !p.filter.accept(pose) {
		return false
	}
	p.renderer.Render(p.name, pose)
	return true
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()
	p.logger.Debugw("poller started", "name", p.name, "frame", p.frame, "interval", p.interval)
	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll()
		}
	}
}

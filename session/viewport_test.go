package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/framegraph/config"
	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/spatialmath"
	"go.viam.com/framegraph/visualization"
)

type recordingRenderer struct {
	mu    sync.Mutex
	poses map[string][]*spatialmath.Pose
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{poses: map[string][]*spatialmath.Pose{}}
}

func (r *recordingRenderer) Render(name string, pose *spatialmath.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses[name] = append(r.poses[name], pose)
}

func (r *recordingRenderer) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.poses[name])
}

func readConfig(t *testing.T, path, contents string) *config.Config {
	t.Helper()
	cfg, err := config.FromReader(path, strings.NewReader(contents), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestViewportLifecycle(t *testing.T) {
	cfg := readConfig(t, "", `{
		"fixed_frame": "map",
		"frames": {
			"odom": {"parent": "map", "translation": {"x": 1}},
			"base_link": {"parent": "odom", "translation": {"y": 1}}
		},
		"consumers": [
			{"name": "base", "kind": "follower", "frame": "base_link", "renderer": "axes"},
			{"name": "scan", "kind": "poller", "frame": "laser", "rate_hz": 10}
		]
	}`)
	logger := logging.NewTestLogger(t)
	mockClock := clock.NewMock()
	scan := newRecordingRenderer()

	v, err := New(cfg, logger, WithClock(mockClock), WithRenderer("scan", scan))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.ID(), test.ShouldNotEqual, uuid.Nil)

	axesRenderer, ok := v.Renderer("base")
	test.That(t, ok, test.ShouldBeTrue)
	axes := axesRenderer.(*visualization.AxesRenderer)

	test.That(t, v.Start(context.Background()), test.ShouldBeNil)
	test.That(t, v.Start(context.Background()), test.ShouldBeError, errors.New("viewport already started"))

	// the follower renders on subscribe and the poller renders laser as hidden on its first poll
	waitFor(t, func() bool { return axes.Visible() == 1 && scan.count("scan") == 1 })
	origin, _, _ := axes.Axes("base")
	test.That(t, origin.X(), test.ShouldAlmostEqual, 1)
	test.That(t, origin.Y(), test.ShouldAlmostEqual, 1)
	test.That(t, scan.poses["scan"][0], test.ShouldBeNil)

	test.That(t, v.Provider().Subscriptions(), test.ShouldEqual, 1)
	test.That(t, v.Close(), test.ShouldBeNil)
	test.That(t, v.Provider().Disposed(), test.ShouldBeTrue)
	test.That(t, v.Provider().Subscriptions(), test.ShouldEqual, 0)
	test.That(t, v.Close(), test.ShouldBeNil)
	test.That(t, v.Start(context.Background()), test.ShouldBeError, errors.New("viewport is closed"))
}

func TestViewportGraphFile(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.json")
	test.That(t, os.WriteFile(graphPath, []byte(`{"laser": {"parent": "odom", "translation": {"z": 1}}}`), 0o600), test.ShouldBeNil)

	cfg := readConfig(t, filepath.Join(dir, "session.json"), `{
		"fixed_frame": "map",
		"graph_file": "graph.json",
		"frames": {"odom": {"parent": "map", "translation": {"x": 1}}}
	}`)
	v, err := New(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	pose := v.Provider().LookupTransform("map", "laser")
	test.That(t, pose, test.ShouldNotBeNil)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, pose.Point().Z, test.ShouldAlmostEqual, 1)

	test.That(t, v.Start(context.Background()), test.ShouldBeNil)
	test.That(t, os.WriteFile(graphPath, []byte(`{"laser": {"parent": "odom", "translation": {"z": 3}}}`), 0o600), test.ShouldBeNil)
	waitFor(t, func() bool {
		pose := v.Provider().LookupTransform("map", "laser")
		return pose != nil && pose.Point().Z == 3
	})
	// inline frames survive a reload of the graph file
	test.That(t, v.Provider().LookupTransform("map", "odom"), test.ShouldNotBeNil)
	test.That(t, v.Close(), test.ShouldBeNil)
}

func TestViewportErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	cfg := readConfig(t, "", `{"fixed_frame": "map", "graph_file": "/nonexistent/graph.json"}`)
	_, err := New(cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read graph file")

	cfg = readConfig(t, "", `{"fixed_frame": "map"}`)
	cfg.Consumers = []config.ConsumerConfig{{Name: "a", Kind: "poller", Frame: "x", Renderer: "sketch"}}
	_, err = New(cfg, logger)
	test.That(t, err, test.ShouldBeError, errors.New(`consumer "a": unknown renderer "sketch"`))
}

type failingConsumer struct{}

func (failingConsumer) Name() string                  { return "broken" }
func (failingConsumer) Run(ctx context.Context) error { return errors.New("renderer crashed") }

func TestViewportCollectsConsumerErrors(t *testing.T) {
	cfg := readConfig(t, "", `{"fixed_frame": "map"}`)
	v, err := New(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	v.consumers = append(v.consumers, failingConsumer{})

	test.That(t, v.Start(context.Background()), test.ShouldBeNil)
	err = v.Close()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldEqual, "broken stopped: renderer crashed")
}

func TestViewportLogConfig(t *testing.T) {
	cfg := readConfig(t, "", `{
		"fixed_frame": "map",
		"consumers": [{"name": "quiet", "kind": "poller", "frame": "map", "attributes": {"level": "error"}}],
		"log": [{"pattern": "viewport_test.provider", "level": "warn"}]
	}`)
	logger := logging.NewBlankLogger("viewport_test")
	_, err := New(cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	provider, ok := logging.LoggerNamed("viewport_test.provider")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, provider.GetLevel(), test.ShouldEqual, logging.WARN)

	quiet, ok := logging.LoggerNamed("viewport_test.quiet")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, quiet.GetLevel(), test.ShouldEqual, logging.ERROR)
}

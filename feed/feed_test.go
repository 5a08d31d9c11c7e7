package feed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/framegraph/framesystem"
	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
	"go.viam.com/framegraph/spatialmath"
)

const stream = `{"kind":"snapshot","frames":{"odom":{"parent":"map","translation":{"x":1}},"base_link":{"parent":"/odom"}}}
{"kind":"delta","frames":{"base_link":{"parent":"odom","translation":{"y":2}}}}
{"frames":{"odom":{"parent":"map","translation":{"x":5}}}}
`

func TestDecoder(t *testing.T) {
	dec := NewDecoder(strings.NewReader(stream))

	b, err := dec.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Kind, test.ShouldEqual, KindSnapshot)
	test.That(t, b.Frames, test.ShouldHaveLength, 2)

	b, err = dec.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Kind, test.ShouldEqual, KindDelta)

	// missing kind is a snapshot
	b, err = dec.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Kind, test.ShouldEqual, KindSnapshot)

	_, err = dec.Next()
	test.That(t, err, test.ShouldEqual, io.EOF)
}

func TestDecoderErrors(t *testing.T) {
	_, err := NewDecoder(strings.NewReader(`{"kind":"patch","frames":{}}`)).Next()
	test.That(t, err, test.ShouldBeError, `batch 0 has unknown kind "patch"`)

	dec := NewDecoder(strings.NewReader(`{"kind":"delta","frames":{}}` + "\n{not json"))
	_, err = dec.Next()
	test.That(t, err, test.ShouldBeNil)
	_, err = dec.Next()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot decode batch 1")
}

func TestReplay(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p := framesystem.NewProvider("map", nil, logger)

	var deliveries []*spatialmath.Pose
	p.Subscribe("base_link", func(pose *spatialmath.Pose) {
		deliveries = append(deliveries, pose)
	})

	n, err := Replay(context.Background(), strings.NewReader(stream), p, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 3)

	// the last snapshot drops base_link entirely
	test.That(t, p.Frames(), test.ShouldResemble, []string{"map", "odom"})
	test.That(t, deliveries, test.ShouldHaveLength, 4)
	test.That(t, deliveries[0], test.ShouldBeNil)
	test.That(t, deliveries[1].Point(), test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, deliveries[2].Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2})
	test.That(t, deliveries[3], test.ShouldBeNil)
}

func TestReplayStopsOnContext(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p := framesystem.NewProvider("map", nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := Replay(ctx, strings.NewReader(stream), p, logger)
	test.That(t, err, test.ShouldEqual, context.Canceled)
	test.That(t, n, test.ShouldEqual, 0)
}

func TestApplyWarnsOnMalformedGraph(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	p := framesystem.NewProvider("map", nil, logger)

	batch := &Batch{Kind: KindSnapshot, Frames: map[string]referenceframe.EdgeConfig{
		"a": {Parent: "b"},
		"b": {Parent: "a"},
	}}
	test.That(t, Apply(p, batch, logger), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("applying malformed frame graph").Len(), test.ShouldEqual, 1)
	test.That(t, p.LookupTransform("a", "x"), test.ShouldBeNil)
	test.That(t, p.LookupTransform("a", "b"), test.ShouldNotBeNil)
}

func TestReadGraphFile(t *testing.T) {
	t.Setenv("LASER_HEIGHT", "0.25")
	path := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, path, `{"laser": {"parent": "base_link", "translation": {"z": ${LASER_HEIGHT}}, "static": true}}`)

	g, err := ReadGraphFile(path)
	test.That(t, err, test.ShouldBeNil)
	edge, ok := g.Edge("laser")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, edge.Static, test.ShouldBeTrue)
	test.That(t, edge.Transform.Point().Z, test.ShouldEqual, 0.25)

	writeFile(t, path, `{"laser": `)
	_, err = ReadGraphFile(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse graph file")
}

// chanTarget forwards snapshots to a channel.
type chanTarget chan *referenceframe.Graph

func (c chanTarget) UpdateTransforms(g *referenceframe.Graph) { c <- g }
func (c chanTarget) MergeTransforms(g *referenceframe.Graph)  { c <- g }

func TestWatcher(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, path, `{"odom": {"parent": "map"}}`)

	target := make(chanTarget, 8)
	w := NewWatcher(path, target, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	first := receive(t, target)
	test.That(t, first.FrameNames(), test.ShouldResemble, []string{"map", "odom"})

	writeFile(t, path, `{"odom": {"parent": "map"}, "base_link": {"parent": "odom"}}`)
	second := receive(t, target)
	test.That(t, second.FrameNames(), test.ShouldResemble, []string{"base_link", "map", "odom"})

	cancel()
	test.That(t, <-done, test.ShouldBeNil)
}

func TestWatcherMissingFile(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing.json"), make(chanTarget, 1), 0, logging.NewTestLogger(t))
	err := w.Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read graph file")
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
}

func receive(t *testing.T, target chanTarget) *referenceframe.Graph {
	t.Helper()
	select {
	case g := <-target:
		return g
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for graph update")
		return nil
	}
}

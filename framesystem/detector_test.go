package framesystem

import (
	"fmt"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
	"go.viam.com/framegraph/spatialmath"
)

// wideGraph returns n frames all parented to map, named f00, f01, ...
func wideGraph(n int) *referenceframe.Graph {
	g := referenceframe.NewGraph()
	for i := 0; i < n; i++ {
		g.Set(fmt.Sprintf("f%02d", i), referenceframe.FrameEdge{
			Parent:    "map",
			Transform: spatialmath.NewPoseFromPoint(r3.Vector{X: float64(i)}),
		})
	}
	return g
}

func moved(g *referenceframe.Graph, frame string) *referenceframe.Graph {
	next := g.Clone()
	edge, _ := next.Edge(frame)
	edge.Transform = spatialmath.Compose(edge.Transform, spatialmath.NewPoseFromPoint(r3.Vector{Z: 1}))
	next.Set(frame, edge)
	return next
}

func TestExactDetector(t *testing.T) {
	g, _, _ := scenario()
	g.Set("laser", referenceframe.FrameEdge{Parent: "base_link"})
	g.Set("camera", referenceframe.FrameEdge{Parent: "map"})
	subscribed := []string{"base_link", "camera", "laser", "nowhere", "odom"}
	d := ExactDetector{}

	t.Run("unchanged", func(t *testing.T) {
		test.That(t, d.Affected(g, g.Clone(), "map", subscribed), test.ShouldBeEmpty)
	})
	t.Run("ancestor changed", func(t *testing.T) {
		got := d.Affected(g, moved(g, "base_link"), "map", subscribed)
		test.That(t, got, test.ShouldResemble, []string{"base_link", "laser"})
	})
	t.Run("fixed frame chain changed", func(t *testing.T) {
		got := d.Affected(g, moved(g, "odom"), "base_link", subscribed)
		test.That(t, got, test.ShouldResemble, subscribed)
	})
	t.Run("frame appears", func(t *testing.T) {
		next := g.Clone()
		next.Set("nowhere", referenceframe.FrameEdge{Parent: "camera"})
		test.That(t, d.Affected(g, next, "map", subscribed), test.ShouldResemble, []string{"nowhere"})
	})
	t.Run("reparented", func(t *testing.T) {
		next := g.Clone()
		next.Set("camera", referenceframe.FrameEdge{Parent: "odom"})
		test.That(t, d.Affected(g, next, "map", subscribed), test.ShouldResemble, []string{"camera"})
	})
	t.Run("from empty", func(t *testing.T) {
		test.That(t, d.Affected(nil, g, "map", subscribed), test.ShouldResemble, []string{"base_link", "camera", "laser", "odom"})
	})
}

func TestSampledDetector(t *testing.T) {
	g := wideGraph(40)
	subscribed := []string{"f00", "f20"}
	d := SampledDetector{SampleSize: 4}

	test.That(t, d.Affected(g, g.Clone(), "map", subscribed), test.ShouldBeNil)
	// stride is 10, so f00, f10, f20 and f30 are sampled
	test.That(t, d.Affected(g, moved(g, "f10"), "map", subscribed), test.ShouldResemble, subscribed)
	// f11 is outside the sample and is missed
	test.That(t, d.Affected(g, moved(g, "f11"), "map", subscribed), test.ShouldBeNil)

	grown := g.Clone()
	grown.Set("extra", referenceframe.FrameEdge{Parent: "map"})
	test.That(t, d.Affected(g, grown, "map", subscribed), test.ShouldResemble, subscribed)
}

func TestThresholdDetector(t *testing.T) {
	subscribed := []string{"f00", "f11"}
	d := ThresholdDetector{Threshold: 20, Sampled: SampledDetector{SampleSize: 4}}

	small := wideGraph(10)
	test.That(t, d.Affected(small, moved(small, "f01"), "map", subscribed), test.ShouldBeEmpty)
	test.That(t, d.Affected(small, moved(small, "f00"), "map", subscribed), test.ShouldResemble, []string{"f00"})

	large := wideGraph(40)
	test.That(t, d.Affected(large, moved(large, "f11"), "map", subscribed), test.ShouldBeNil)
	test.That(t, d.Affected(large, moved(large, "f00"), "map", subscribed), test.ShouldResemble, subscribed)
}

func TestNewChangeDetector(t *testing.T) {
	d, err := NewChangeDetector("", 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldResemble, ExactDetector{})

	d, err = NewChangeDetector(DetectionThreshold, 100, 5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldResemble, ThresholdDetector{Threshold: 100, Sampled: SampledDetector{SampleSize: 5}})

	_, err = NewChangeDetector("fuzzy", 0, 0)
	test.That(t, err, test.ShouldBeError, `unknown change detection mode "fuzzy"`)
	_, err = NewChangeDetector(DetectionSampled, 0, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProviderWithSampledDetector(t *testing.T) {
	g := wideGraph(40)
	p := NewProvider("map", g, logging.NewTestLogger(t), WithChangeDetector(SampledDetector{SampleSize: 4}))

	var f00, f05 recorder
	p.Subscribe("f00", f00.callback)
	p.Subscribe("f05", f05.callback)

	// f10 is sampled, so every subscription is renotified even though only f10 moved.
	p.UpdateTransforms(moved(g, "f10"))
	test.That(t, f00.count(), test.ShouldEqual, 2)
	test.That(t, f05.count(), test.ShouldEqual, 2)
	test.That(t, f05.last().Point().X, test.ShouldAlmostEqual, 5)
}

package referenceframe

import (
	"fmt"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/framegraph/spatialmath"
)

// chainGraph returns map -> odom -> base_link -> sensor along with the three stored transforms,
// root first.
func chainGraph() (*Graph, []*spatialmath.Pose) {
	t1 := spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 10, Y: -3}, zAxis, math.Pi/3)
	t2 := spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 0.5, Z: 0.1}, r3.Vector{X: 1, Y: 1}, 0.4)
	t3 := spatialmath.NewPoseFromAxisAngle(r3.Vector{Z: 1.2}, r3.Vector{Y: 1}, -math.Pi/2)
	g := NewGraphFromEdges(map[string]FrameEdge{
		"odom":      {Parent: "map", Transform: t1},
		"base_link": {Parent: "odom", Transform: t2},
		"sensor":    {Parent: "base_link", Transform: t3, Static: true},
	})
	return g, []*spatialmath.Pose{t1, t2, t3}
}

func TestLookupIdentity(t *testing.T) {
	g, _ := chainGraph()
	for _, name := range []string{"map", "/odom", "sensor", "nonexistent"} {
		test.That(t, Lookup(name, name, g), test.ShouldEqual, spatialmath.NewZeroPose())
	}
	test.That(t, Lookup("/map", "map", g), test.ShouldEqual, spatialmath.NewZeroPose())
	test.That(t, Lookup("x", "x", nil), test.ShouldEqual, spatialmath.NewZeroPose())
}

func TestLookupAdjacent(t *testing.T) {
	g, ts := chainGraph()
	test.That(t, Lookup("odom", "map", g), test.ShouldEqual, ts[0])
	test.That(t, spatialmath.PoseAlmostEqual(Lookup("map", "odom", g), spatialmath.PoseInverse(ts[0])), test.ShouldBeTrue)
}

func TestLookupChain(t *testing.T) {
	g, ts := chainGraph()
	forward := spatialmath.Compose(spatialmath.Compose(ts[0], ts[1]), ts[2])

	got := Lookup("sensor", "map", g)
	test.That(t, spatialmath.PoseAlmostEqual(got, forward), test.ShouldBeTrue)

	back := Lookup("map", "/sensor", g)
	test.That(t, spatialmath.PoseAlmostEqual(back, spatialmath.PoseInverse(forward)), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(spatialmath.Compose(got, back), spatialmath.NewZeroPose()), test.ShouldBeTrue)

	mid := Lookup("sensor", "odom", g)
	test.That(t, spatialmath.PoseAlmostEqual(mid, spatialmath.Compose(ts[1], ts[2])), test.ShouldBeTrue)
}

func TestLookupAcrossBranches(t *testing.T) {
	g, ts := chainGraph()
	tl := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.2, Y: 0.1})
	g.Set("laser", FrameEdge{Parent: "base_link", Transform: tl})

	// sensor -> base_link -> laser
	want := spatialmath.Compose(spatialmath.PoseInverse(ts[2]), tl)
	test.That(t, spatialmath.PoseAlmostEqual(Lookup("laser", "sensor", g), want), test.ShouldBeTrue)

	path := FindPath("laser", "sensor", g)
	test.That(t, path.Frames(), test.ShouldResemble, []string{"base_link", "laser"})
	test.That(t, path[0].Static, test.ShouldBeTrue)
	test.That(t, path[1].Static, test.ShouldBeFalse)
}

func TestLookupNoPath(t *testing.T) {
	g, _ := chainGraph()
	g.Set("camera", FrameEdge{Parent: "world"})

	test.That(t, Lookup("nonexistent", "map", g), test.ShouldBeNil)
	test.That(t, FindPath("nonexistent", "map", g), test.ShouldBeNil)
	test.That(t, Lookup("camera", "map", g), test.ShouldBeNil)
	test.That(t, Lookup("world", "sensor", g), test.ShouldBeNil)
	test.That(t, Lookup("odom", "map", nil), test.ShouldBeNil)
}

func TestFindPathSameFrame(t *testing.T) {
	g, _ := chainGraph()
	path := FindPath("/odom", "odom", g)
	test.That(t, path, test.ShouldNotBeNil)
	test.That(t, path, test.ShouldBeEmpty)
	test.That(t, path.Compose(), test.ShouldEqual, spatialmath.NewZeroPose())

	var none Path
	test.That(t, none.Compose(), test.ShouldBeNil)
}

func TestFindPathTerminatesOnCycle(t *testing.T) {
	g := NewGraph()
	g.Set("a", FrameEdge{Parent: "b"})
	g.Set("b", FrameEdge{Parent: "c"})
	g.Set("c", FrameEdge{Parent: "a"})
	g.Set("self", FrameEdge{Parent: "self"})

	test.That(t, FindPath("x", "a", g), test.ShouldBeNil)
	test.That(t, Lookup("x", "self", g), test.ShouldBeNil)
	test.That(t, FindPath("c", "a", g).Frames(), test.ShouldResemble, []string{"c"})
}

func TestTransformPoint(t *testing.T) {
	g := NewGraph()
	g.Set("frame1", FrameEdge{Parent: "world", Transform: spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 1}, zAxis, math.Pi/2)})
	g.Set("frame2", FrameEdge{Parent: "frame1", Transform: spatialmath.NewPoseFromPoint(r3.Vector{Y: 2})})

	pt, ok := TransformPoint(r3.Vector{}, "frame2", "world", g)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.X, test.ShouldAlmostEqual, -1)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 0)

	pt, ok = TransformPoint(r3.Vector{X: 1}, "world", "frame2", g)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.X, test.ShouldAlmostEqual, 0)
	test.That(t, pt.Y, test.ShouldAlmostEqual, -2)

	_, ok = TransformPoint(r3.Vector{}, "frame2", "elsewhere", g)
	test.That(t, ok, test.ShouldBeFalse)
}

func BenchmarkLookup(b *testing.B) {
	g := NewGraph()
	parent := "map"
	for i := 0; i < 50; i++ {
		child := fmt.Sprintf("link_%d", i)
		g.Set(child, FrameEdge{Parent: parent, Transform: spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 0.1}, zAxis, 0.05)})
		parent = child
	}
	b.Run("adjacent", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Lookup("link_10", "link_9", g)
		}
	})
	b.Run("chain", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Lookup("link_49", "map", g)
		}
	})
}

package referenceframe

import (
	"github.com/golang/geo/r3"

	"go.viam.com/framegraph/spatialmath"
)

// Lookup returns the pose of target expressed in source: the transform mapping coordinates in the
// target frame into the source frame. It returns nil when the frames are not connected and never
// fails otherwise. Looking a frame up against itself returns the shared identity, known or not.
func Lookup(target, source string, g *Graph) *spatialmath.Pose {
	target, source = NormalizeName(target), NormalizeName(source)
	if target == source {
		return spatialmath.NewZeroPose()
	}
	if edge, ok := g.Edge(source); ok && edge.Parent == target {
		return spatialmath.PoseInverse(edge.Transform)
	}
	if edge, ok := g.Edge(target); ok && edge.Parent == source {
		return edge.Transform
	}

	path := FindPath(target, source, g)
	switch len(path) {
	case 0:
		if path == nil {
			return nil
		}
		return spatialmath.NewZeroPose()
	case 1:
		return path[0].Transform
	default:
		return path.Compose()
	}
}

// TransformPoint expresses pt, given in the from frame, in the to frame. ok is false when the
// frames are not connected.
func TransformPoint(pt r3.Vector, from, to string, g *Graph) (r3.Vector, bool) {
	pose := Lookup(from, to, g)
	if pose == nil {
		return r3.Vector{}, false
	}
	return pose.Transform(pt), true
}

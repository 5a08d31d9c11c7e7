package referenceframe

import "go.viam.com/framegraph/spatialmath"

// PathStep is one edge of a Path. Transform already accounts for the direction of travel: it maps
// coordinates in Frame into the frame of the previous step.
type PathStep struct {
	Frame     string
	Transform *spatialmath.Pose
	Static    bool
}

// Path is the ordered list of steps leading from a source frame to a target frame.
type Path []PathStep

// FindPath searches the graph breadth first from source until it reaches target and returns the
// steps along the way. Moving from a frame to one of its children uses the child's stored transform;
// moving to a frame's parent uses the inverse of the frame's stored transform.
//
// An empty, non-nil path means source and target are the same frame. A nil path means the two
// frames are not connected, including when either frame is unknown. Every frame is visited at most
// once, so the search terminates on cyclic input.
func FindPath(target, source string, g *Graph) Path {
	target, source = NormalizeName(target), NormalizeName(source)
	if target == source {
		return Path{}
	}
	if g == nil {
		return nil
	}

	prev := map[string]pathLink{}
	visited := map[string]struct{}{source: {}}
	queue := []string{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var next []pathLink
		for _, child := range g.childrenOf(current) {
			edge := g.edges[child]
			next = append(next, pathLink{from: current, step: PathStep{Frame: child, Transform: edge.Transform, Static: edge.Static}})
		}
		if edge, ok := g.edges[current]; ok {
			next = append(next, pathLink{
				from: current,
				step: PathStep{Frame: edge.Parent, Transform: spatialmath.PoseInverse(edge.Transform), Static: edge.Static},
			})
		}

		for _, n := range next {
			if _, seen := visited[n.step.Frame]; seen {
				continue
			}
			visited[n.step.Frame] = struct{}{}
			prev[n.step.Frame] = n
			if n.step.Frame == target {
				return walkBack(prev, source, target)
			}
			queue = append(queue, n.step.Frame)
		}
	}
	return nil
}

// pathLink records the step that first reached a frame and the frame it came from.
type pathLink struct {
	from string
	step PathStep
}

func walkBack(prev map[string]pathLink, source, target string) Path {
	var reversed Path
	for frame := target; frame != source; frame = prev[frame].from {
		reversed = append(reversed, prev[frame].step)
	}
	path := make(Path, len(reversed))
	for i, step := range reversed {
		path[len(reversed)-1-i] = step
	}
	return path
}

// Frames returns the names of the frames the path passes through, in order.
func (p Path) Frames() []string {
	names := make([]string, 0, len(p))
	for _, step := range p {
		names = append(names, step.Frame)
	}
	return names
}

// Compose left folds the steps of the path into a single transform. An empty path is the identity
// and a nil path has no transform.
func (p Path) Compose() *spatialmath.Pose {
	if p == nil {
		return nil
	}
	result := spatialmath.NewZeroPose()
	for _, step := range p {
		result = spatialmath.Compose(result, step.Transform)
	}
	return result
}

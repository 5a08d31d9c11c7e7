// Package referenceframe stores the frame graph, a forest of named coordinate frames linked by
// rigid child to parent transforms, and resolves the transform between any two of its frames.
package referenceframe

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"go.viam.com/framegraph/spatialmath"
)

// FrameEdge links a child frame to its parent. Transform maps coordinates expressed in the child
// frame into the parent frame, i.e. it is the pose of the child in its parent.
type FrameEdge struct {
	Parent    string
	Transform *spatialmath.Pose
	Static    bool
}

// Equal reports whether both edges name the same parent, have the same static flag and carry
// exactly the same transform values.
func (e FrameEdge) Equal(other FrameEdge) bool {
	if e.Parent != other.Parent || e.Static != other.Static {
		return false
	}
	if e.Transform == other.Transform {
		return true
	}
	if e.Transform == nil || other.Transform == nil {
		return false
	}
	return e.Transform.Point() == other.Transform.Point() &&
		e.Transform.Orientation() == other.Transform.Orientation()
}

// Graph maps each known child frame to the edge linking it to its parent. Frames that only
// appear as parents are roots. The structure is expected to be a forest; Validate reports inputs
// that are not.
//
// The zero value is an empty graph ready to use. A Graph is not safe for concurrent mutation. Once
// a Graph is handed to a reader it should be treated as an immutable snapshot; Clone before
// changing it.
type Graph struct {
	edges    map[string]FrameEdge
	children map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		edges:    map[string]FrameEdge{},
		children: map[string][]string{},
	}
}

// NewGraphFromEdges builds a graph from a child name to edge mapping.
func NewGraphFromEdges(edges map[string]FrameEdge) *Graph {
	g := NewGraph()
	for child, edge := range edges {
		g.Set(child, edge)
	}
	return g
}

// Set stores the edge for child, replacing any previous edge. Child and parent names are
// normalized and a nil transform is stored as the identity.
func (g *Graph) Set(child string, edge FrameEdge) {
	if g.edges == nil {
		g.edges = map[string]FrameEdge{}
	}
	if g.children == nil {
		g.children = map[string][]string{}
	}
	child = NormalizeName(child)
	edge.Parent = NormalizeName(edge.Parent)
	if edge.Transform == nil {
		edge.Transform = spatialmath.NewZeroPose()
	}
	if old, ok := g.edges[child]; ok {
		if old.Parent == edge.Parent {
			g.edges[child] = edge
			return
		}
		g.removeChild(old.Parent, child)
	}
	g.edges[child] = edge
	g.addChild(edge.Parent, child)
}

// Remove deletes the edge stored for child. Edges of its own children are kept, leaving those
// children attached to a frame that is now a root.
func (g *Graph) Remove(child string) bool {
	child = NormalizeName(child)
	old, ok := g.edges[child]
	if !ok {
		return false
	}
	delete(g.edges, child)
	g.removeChild(old.Parent, child)
	return true
}

func (g *Graph) addChild(parent, child string) {
	kids := g.children[parent]
	idx := sort.SearchStrings(kids, child)
	kids = append(kids, "")
	copy(kids[idx+1:], kids[idx:])
	kids[idx] = child
	g.children[parent] = kids
}

func (g *Graph) removeChild(parent, child string) {
	kids := g.children[parent]
	idx := sort.SearchStrings(kids, child)
	if idx >= len(kids) || kids[idx] != child {
		return
	}
	if len(kids) == 1 {
		delete(g.children, parent)
		return
	}
	// Copy rather than shift in place: clones share child slices until they diverge.
	next := make([]string, 0, len(kids)-1)
	next = append(next, kids[:idx]...)
	next = append(next, kids[idx+1:]...)
	g.children[parent] = next
}

// Merge applies every edge of delta on top of g.
func (g *Graph) Merge(delta *Graph) {
	if delta == nil {
		return
	}
	for child, edge := range delta.edges {
		g.Set(child, edge)
	}
}

// Clone returns a copy of g that can be mutated independently.
func (g *Graph) Clone() *Graph {
	clone := NewGraph()
	if g == nil {
		return clone
	}
	for child, edge := range g.edges {
		clone.edges[child] = edge
	}
	for parent, kids := range g.children {
		clone.children[parent] = append([]string(nil), kids...)
	}
	return clone
}

// Edge returns the edge stored for the named child frame.
func (g *Graph) Edge(name string) (FrameEdge, bool) {
	if g == nil {
		return FrameEdge{}, false
	}
	edge, ok := g.edges[NormalizeName(name)]
	return edge, ok
}

// Parent returns the parent of the named frame. Roots and unknown frames have no parent.
func (g *Graph) Parent(name string) (string, bool) {
	edge, ok := g.Edge(name)
	return edge.Parent, ok
}

// Children returns the sorted names of the frames whose parent is name.
func (g *Graph) Children(name string) []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.children[NormalizeName(name)]...)
}

// childrenOf returns the internal sorted child list without copying. Callers must not modify it.
func (g *Graph) childrenOf(name string) []string {
	if g == nil {
		return nil
	}
	return g.children[name]
}

// Has reports whether the frame appears in the graph, either as a child or as a parent.
func (g *Graph) Has(name string) bool {
	if g == nil {
		return false
	}
	name = NormalizeName(name)
	if _, ok := g.edges[name]; ok {
		return true
	}
	_, ok := g.children[name]
	return ok
}

// Len returns the number of stored edges, i.e. the number of frames that have a parent.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.edges)
}

// FrameNames returns every frame in the graph, children and roots, sorted.
func (g *Graph) FrameNames() []string {
	if g == nil {
		return nil
	}
	names := lo.Union(lo.Keys(g.edges), lo.Keys(g.children))
	sort.Strings(names)
	return names
}

// Roots returns the sorted names of the frames that have children but no parent.
func (g *Graph) Roots() []string {
	if g == nil {
		return nil
	}
	roots := lo.Filter(lo.Keys(g.children), func(name string, _ int) bool {
		_, hasParent := g.edges[name]
		return !hasParent
	})
	sort.Strings(roots)
	return roots
}

// Range calls fn for every stored edge in unspecified order until fn returns false.
func (g *Graph) Range(fn func(child string, edge FrameEdge) bool) {
	if g == nil {
		return
	}
	for child, edge := range g.edges {
		if !fn(child, edge) {
			return
		}
	}
}

// Ancestors returns the chain of parents above name, nearest first. The walk stops at a root or
// when it would revisit a frame, so a cyclic graph still terminates.
func (g *Graph) Ancestors(name string) []string {
	if g == nil {
		return nil
	}
	name = NormalizeName(name)
	var chain []string
	seen := map[string]struct{}{name: {}}
	for {
		edge, ok := g.edges[name]
		if !ok {
			return chain
		}
		if _, loop := seen[edge.Parent]; loop {
			return chain
		}
		seen[edge.Parent] = struct{}{}
		chain = append(chain, edge.Parent)
		name = edge.Parent
	}
}

// String prints out a table of each edge in the graph, with columns of child, parent, translation
// and rotation.
func (g *Graph) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Child", "Parent", "Translation", "Rotation", "Static"})
	if g == nil {
		return t.Render()
	}
	children := lo.Keys(g.edges)
	sort.Strings(children)
	for i, child := range children {
		edge := g.edges[child]
		pt := edge.Transform.Point()
		aa := spatialmath.QuatToR4AA(edge.Transform.Orientation())
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i+1),
			child,
			edge.Parent,
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", pt.X, pt.Y, pt.Z),
			fmt.Sprintf("TH:%.3f, RX:%.2f, RY:%.2f, RZ:%.2f", aa.Theta, aa.RX, aa.RY, aa.RZ),
			edge.Static,
		})
	}
	return t.Render()
}

package referenceframe

import (
	"sort"

	"go.uber.org/multierr"
)

// Validate reports every edge that breaks the forest contract: empty names, frames that are their
// own parent and parent cycles. Lookups on an invalid graph still terminate, but may fail to
// resolve frames caught in a cycle.
func Validate(g *Graph) error {
	if g == nil {
		return nil
	}
	children := make([]string, 0, len(g.edges))
	for child := range g.edges {
		children = append(children, child)
	}
	sort.Strings(children)

	var errs error
	for _, child := range children {
		edge := g.edges[child]
		switch {
		case child == "":
			errs = multierr.Append(errs, NewEmptyFrameNameError(""))
		case edge.Parent == "":
			errs = multierr.Append(errs, NewEmptyFrameNameError(child))
		case edge.Parent == child:
			errs = multierr.Append(errs, NewSelfParentError(child))
		}
	}
	for _, cycle := range findCycles(g, children) {
		errs = multierr.Append(errs, NewCycleError(cycle))
	}
	return errs
}

// findCycles walks parents from each child and returns every loop of two or more frames once,
// rotated to start at its smallest name.
func findCycles(g *Graph, children []string) [][]string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(children))
	var cycles [][]string
	for _, start := range children {
		if state[start] != unvisited {
			continue
		}
		var stack []string
		frame := start
		for {
			state[frame] = onStack
			stack = append(stack, frame)
			edge, ok := g.edges[frame]
			if !ok || edge.Parent == frame || state[edge.Parent] == done {
				break
			}
			if state[edge.Parent] == onStack {
				idx := 0
				for stack[idx] != edge.Parent {
					idx++
				}
				cycles = append(cycles, rotateToMin(stack[idx:]))
				break
			}
			frame = edge.Parent
		}
		for _, f := range stack {
			state[f] = done
		}
	}
	return cycles
}

func rotateToMin(loop []string) []string {
	minIdx := 0
	for i, name := range loop {
		if name < loop[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(loop))
	out = append(out, loop[minIdx:]...)
	return append(out, loop[:minIdx]...)
}

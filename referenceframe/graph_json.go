package referenceframe

import (
	"encoding/json"

	"github.com/pkg/errors"

	"go.viam.com/framegraph/spatialmath"
)

// EdgeConfig is the json form of a FrameEdge.
type EdgeConfig struct {
	Parent string `json:"parent"`
	spatialmath.PoseConfig
	Static bool `json:"static,omitempty"`
}

// NewEdgeConfig returns the json form of edge.
func NewEdgeConfig(edge FrameEdge) EdgeConfig {
	transform := edge.Transform
	if transform == nil {
		transform = spatialmath.NewZeroPose()
	}
	return EdgeConfig{Parent: edge.Parent, PoseConfig: spatialmath.NewPoseConfig(transform), Static: edge.Static}
}

// ParseConfig converts the config into a FrameEdge.
func (cfg EdgeConfig) ParseConfig() (FrameEdge, error) {
	pose, err := cfg.PoseConfig.ParseConfig()
	if err != nil {
		return FrameEdge{}, err
	}
	return FrameEdge{Parent: cfg.Parent, Transform: pose, Static: cfg.Static}, nil
}

// NewGraphFromConfig builds a graph from the json form of its edges. Errors name the offending child.
func NewGraphFromConfig(edges map[string]EdgeConfig) (*Graph, error) {
	g := NewGraph()
	for child, cfg := range edges {
		edge, err := cfg.ParseConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "frame %q", child)
		}
		g.Set(child, edge)
	}
	return g, nil
}

// Config returns the json form of every edge in the graph.
func (g *Graph) Config() map[string]EdgeConfig {
	out := make(map[string]EdgeConfig, g.Len())
	g.Range(func(child string, edge FrameEdge) bool {
		out[child] = NewEdgeConfig(edge)
		return true
	})
	return out
}

// MarshalJSON encodes the graph as an object keyed by child frame name.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Config())
}

// UnmarshalJSON replaces the contents of g with the decoded edges.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var edges map[string]EdgeConfig
	if err := json.Unmarshal(data, &edges); err != nil {
		return err
	}
	parsed, err := NewGraphFromConfig(edges)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}

package framesystem

import (
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/framegraph/referenceframe"
)

// Change detection modes accepted by NewChangeDetector.
const (
	DetectionExact     = "exact"
	DetectionSampled   = "sampled"
	DetectionThreshold = "threshold"
)

// DefaultSampleSize is the number of edges a sampled detector compares when none is configured.
const DefaultSampleSize = 8

// A ChangeDetector decides which subscribed frames must be renotified when the graph snapshot is
// replaced. It must never drop a frame whose result changed unless it documents that it may.
type ChangeDetector interface {
	// Affected returns the subset of subscribed whose lookup against fixedFrame may differ between
	// the old and the new graph. Both graphs are read-only.
	Affected(old, updated *referenceframe.Graph, fixedFrame string, subscribed []string) []string
}

// ExactDetector compares the edges on each subscribed frame's ancestor chain, and on the fixed
// frame's chain, between the two snapshots. A frame is affected when any of those edges was added,
// removed or changed. It costs O(subscriptions * depth) per update.
type ExactDetector struct{}

// Affected implements ChangeDetector.
func (ExactDetector) Affected(old, updated *referenceframe.Graph, fixedFrame string, subscribed []string) []string {
	if chainChanged(old, updated, fixedFrame) {
		return subscribed
	}
	var affected []string
	for _, frame := range subscribed {
		if chainChanged(old, updated, frame) {
			affected = append(affected, frame)
		}
	}
	return affected
}

// chainChanged reports whether the edges of name and of every ancestor of name differ between the
// two graphs.
func chainChanged(old, updated *referenceframe.Graph, name string) bool {
	frame := name
	seen := map[string]struct{}{}
	for {
		if _, loop := seen[frame]; loop {
			return false
		}
		seen[frame] = struct{}{}
		oldEdge, inOld := old.Edge(frame)
		newEdge, inNew := updated.Edge(frame)
		if inOld != inNew {
			return true
		}
		if !inOld {
			return false
		}
		if !oldEdge.Equal(newEdge) {
			return true
		}
		frame = newEdge.Parent
	}
}

// SampledDetector answers "everything" or "nothing". It renotifies every subscription when the
// number of edges changed or when any of SampleSize edges, spread evenly over the sorted frame
// names, differs; otherwise nothing is renotified.
//
// It can miss a changed edge that falls outside the sample. Use it only for large graphs where
// updates tend to touch many edges at once, or where a missed update is corrected by the next one.
type SampledDetector struct {
	SampleSize int
}

// Affected implements ChangeDetector.
func (d SampledDetector) Affected(old, updated *referenceframe.Graph, fixedFrame string, subscribed []string) []string {
	if old.Len() != updated.Len() {
		return subscribed
	}
	size := d.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	names := edgeNames(updated)
	stride := 1
	if len(names) > size {
		stride = len(names) / size
	}
	for i := 0; i < len(names); i += stride {
		oldEdge, ok := old.Edge(names[i])
		if !ok {
			return subscribed
		}
		newEdge, _ := updated.Edge(names[i])
		if !oldEdge.Equal(newEdge) {
			return subscribed
		}
	}
	return nil
}

func edgeNames(g *referenceframe.Graph) []string {
	names := make([]string, 0, g.Len())
	g.Range(func(child string, _ referenceframe.FrameEdge) bool {
		names = append(names, child)
		return true
	})
	sort.Strings(names)
	return names
}

// ThresholdDetector uses exact detection for graphs of up to Threshold edges and sampled detection
// above it. A zero Threshold always detects exactly.
type ThresholdDetector struct {
	Threshold int
	Sampled   SampledDetector
}

// Affected implements ChangeDetector.
func (d ThresholdDetector) Affected(old, updated *referenceframe.Graph, fixedFrame string, subscribed []string) []string {
	if d.Threshold > 0 && updated.Len() > d.Threshold {
		return d.Sampled.Affected(old, updated, fixedFrame, subscribed)
	}
	return ExactDetector{}.Affected(old, updated, fixedFrame, subscribed)
}

// NewChangeDetector builds a detector by mode name. An empty mode is exact detection.
func NewChangeDetector(mode string, threshold, sampleSize int) (ChangeDetector, error) {
	if threshold < 0 {
		return nil, errors.Errorf("change detection threshold must be non-negative, got %d", threshold)
	}
	if sampleSize < 0 {
		return nil, errors.Errorf("change detection sample size must be non-negative, got %d", sampleSize)
	}
	switch mode {
	case "", DetectionExact:
		return ExactDetector{}, nil
	case DetectionSampled:
		return SampledDetector{SampleSize: sampleSize}, nil
	case DetectionThreshold:
		return ThresholdDetector{Threshold: threshold, Sampled: SampledDetector{SampleSize: sampleSize}}, nil
	default:
		return nil, errors.Errorf("unknown change detection mode %q", mode)
	}
}

// Package feed reads frame transform updates from files and streams and applies them to a
// framesystem.Provider.
package feed

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"go.viam.com/framegraph/referenceframe"
)

// Batch kinds.
const (
	KindSnapshot = "snapshot"
	KindDelta    = "delta"
)

// A Batch is one update from the transport: either a full snapshot that replaces the graph or a
// delta whose edges are merged into it.
type Batch struct {
	Kind   string                               `json:"kind"`
	Frames map[string]referenceframe.EdgeConfig `json:"frames"`
}

// Graph parses the edges of the batch.
func (b Batch) Graph() (*referenceframe.Graph, error) {
	return referenceframe.NewGraphFromConfig(b.Frames)
}

// A Decoder reads newline delimited json batches.
type Decoder struct {
	dec   *json.Decoder
	count int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next batch, or io.EOF once the stream is exhausted.
func (d *Decoder) Next() (*Batch, error) {
	var b Batch
	if err := d.dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "cannot decode batch %d", d.count)
	}
	d.count++
	switch b.Kind {
	case KindSnapshot, KindDelta:
	case "":
		b.Kind = KindSnapshot
	default:
		return nil, errors.Errorf("batch %d has unknown kind %q", d.count-1, b.Kind)
	}
	return &b, nil
}

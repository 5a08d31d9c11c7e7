package feed

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
)

// Target receives graph updates. framesystem.Provider implements it.
type Target interface {
	UpdateTransforms(graph *referenceframe.Graph)
	MergeTransforms(delta *referenceframe.Graph)
}

// Apply routes a snapshot to UpdateTransforms and a delta to MergeTransforms. Edges that break the
// forest contract are applied anyway and logged as a warning.
func Apply(target Target, batch *Batch, logger logging.Logger) error {
	g, err := batch.Graph()
	if err != nil {
		return err
	}
	if err := referenceframe.Validate(g); err != nil {
		logger.Warnw("applying malformed frame graph", "kind", batch.Kind, "error", err)
	}
	if batch.Kind == KindDelta {
		target.MergeTransforms(g)
	} else {
		target.UpdateTransforms(g)
	}
	return nil
}

// Replay applies every batch read from r in order until r is exhausted or ctx is done. It returns
// the number of batches applied.
func Replay(ctx context.Context, r io.Reader, target Target, logger logging.Logger) (int, error) {
	dec := NewDecoder(r)
	var applied int
	for {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		batch, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return applied, nil
		}
		if err != nil {
			return applied, err
		}
		if err := Apply(target, batch, logger); err != nil {
			return applied, errors.Wrapf(err, "cannot apply batch %d", applied)
		}
		applied++
	}
}

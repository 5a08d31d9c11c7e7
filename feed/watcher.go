package feed

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	"github.com/a8m/envsubst"
	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
)

// DefaultDebounce is how long a Watcher waits for writes to a graph file to settle.
const DefaultDebounce = 100 * time.Millisecond

// ReadGraphFile reads a json frame graph, keyed by child frame name, after substituting environment
// variables.
func ReadGraphFile(path string) (*referenceframe.Graph, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read graph file %q", path)
	}
	var g referenceframe.Graph
	if err := g.UnmarshalJSON(bytes.TrimSpace(buf)); err != nil {
		return nil, errors.Wrapf(err, "cannot parse graph file %q", path)
	}
	return &g, nil
}

// A Watcher applies a graph file as a snapshot when it starts and again every time the file is
// rewritten.
type Watcher struct {
	path     string
	target   Target
	logger   logging.Logger
	debounce time.Duration
}

// NewWatcher returns a Watcher for path. A zero debounce uses DefaultDebounce.
func NewWatcher(path string, target Target, debounceWindow time.Duration, logger logging.Logger) *Watcher {
	if debounceWindow <= 0 {
		debounceWindow = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), target: target, logger: logger, debounce: debounceWindow}
}

// Load reads the file and applies it as a snapshot.
func (w *Watcher) Load() error {
	g, err := ReadGraphFile(w.path)
	if err != nil {
		return err
	}
	if err := referenceframe.Validate(g); err != nil {
		w.logger.Warnw("applying malformed frame graph", "path", w.path, "error", err)
	}
	w.target.UpdateTransforms(g)
	w.logger.Debugw("loaded frame graph", "path", w.path, "edges", g.Len())
	return nil
}

// Run loads the file and then reloads it after each burst of writes until ctx is done. The
// directory is watched rather than the file so editors that replace the file are followed. A
// failed reload is logged and the previous graph stays in place.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot create file watcher")
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			w.logger.Debugw("error closing file watcher", "error", err)
		}
	}()
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "cannot watch %q", w.path)
	}
	if err := w.Load(); err != nil {
		return err
	}

	debounced := debounce.New(w.debounce)
	reload := func() {
		if err := w.Load(); err != nil {
			w.logger.Warnw("cannot reload frame graph", "path", w.path, "error", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			debounced(reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("file watcher error", "path", w.path, "error", err)
		}
	}
}

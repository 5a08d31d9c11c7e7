package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/golang/geo/r3"
	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/framegraph/config"
	"go.viam.com/framegraph/feed"
	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
	"go.viam.com/framegraph/session"
	"go.viam.com/framegraph/spatialmath"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

var warningColor = color.New(color.FgYellow, color.Bold)

func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	warningColor.Fprint(w, "Warning: ")
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// newLogger returns a logger writing to the app's error writer and, with --log-file, to a rotated
// file. The returned func closes the file.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("framegraph")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if !c.Bool(debugFlag) {
		logger.SetLevel(logging.INFO)
	}
	path := c.String(logFileFlag)
	if path == "" {
		return logger, func() {}
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 2,
		Compress:   true,
	}
	logger.AddAppender(logging.NewWriterAppender(file))
	return logger, func() {
		if err := file.Close(); err != nil {
			warningf(c.App.ErrWriter, "cannot close log file: %v", err)
		}
	}
}

func readGraph(c *cli.Context) (*referenceframe.Graph, error) {
	g, err := feed.ReadGraphFile(c.String(graphFlag))
	if err != nil {
		return nil, err
	}
	if err := referenceframe.Validate(g); err != nil {
		for _, e := range multierr.Errors(err) {
			warningf(c.App.ErrWriter, "%v", e)
		}
	}
	return g, nil
}

// LookupAction prints the pose of --source in --target.
func LookupAction(c *cli.Context) error {
	g, err := readGraph(c)
	if err != nil {
		return err
	}
	target, source := c.String(targetFlag), c.String(sourceFlag)
	pose := referenceframe.Lookup(source, target, g)
	if pose == nil {
		return errors.Errorf("no transform from %q to %q", source, target)
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Frame", "In", "Translation", "Rotation", "Quaternion"})
	t.AppendRow(poseRow(source, target, pose))
	t.Render()

	if coords := c.Float64Slice(pointFlag); len(coords) > 0 {
		if len(coords) != 3 {
			return errors.Errorf("--%s needs 3 values, got %d", pointFlag, len(coords))
		}
		out := pose.Transform(r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
		printf(c.App.Writer, "point in %s: X:%.6f, Y:%.6f, Z:%.6f", target, out.X, out.Y, out.Z)
	}
	return nil
}

func poseRow(frame, in string, pose *spatialmath.Pose) table.Row {
	pt, q := pose.Point(), pose.Orientation()
	aa := spatialmath.QuatToR4AA(q)
	return table.Row{
		frame,
		in,
		fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", pt.X, pt.Y, pt.Z),
		fmt.Sprintf("TH:%.3f, RX:%.2f, RY:%.2f, RZ:%.2f", aa.Theta, aa.RX, aa.RY, aa.RZ),
		fmt.Sprintf("W:%.4f, X:%.4f, Y:%.4f, Z:%.4f", q.Real, q.Imag, q.Jmag, q.Kmag),
	}
}

// PrintAction prints the edges of --graph.
func PrintAction(c *cli.Context) error {
	g, err := readGraph(c)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", g.String())
	printf(c.App.Writer, "roots: %s", strings.Join(g.Roots(), ", "))
	return nil
}

// PathAction prints each step between --source and --target.
func PathAction(c *cli.Context) error {
	g, err := readGraph(c)
	if err != nil {
		return err
	}
	target, source := c.String(targetFlag), c.String(sourceFlag)
	path := referenceframe.FindPath(target, source, g)
	if path == nil {
		return errors.Errorf("no path from %q to %q", source, target)
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"#", "Frame", "Static", "Translation", "Rotation"})
	t.AppendRow(table.Row{0, referenceframe.NormalizeName(source), "", "", ""})
	for i, step := range path {
		row := poseRow(step.Frame, "", step.Transform)
		t.AppendRow(table.Row{i + 1, step.Frame, step.Static, row[2], row[3]})
	}
	t.Render()
	return nil
}

// WatchAction runs a session from --config, optionally replaying --feed into it, until interrupted
// or --duration elapses.
func WatchAction(c *cli.Context) error {
	logger, closeLog := newLogger(c)
	defer closeLog()
	cfg, err := config.Read(c.String(configFlag), logger)
	if err != nil {
		return err
	}
	viewport, err := session.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx := c.Context
	if d := c.Duration(durationFlag); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := viewport.Start(ctx); err != nil {
		return multierr.Combine(err, viewport.Close())
	}

	if path := c.String(feedFlag); path != "" {
		if err := replay(ctx, c, path, viewport, logger); err != nil {
			return multierr.Combine(err, viewport.Close())
		}
	}
	<-ctx.Done()
	return viewport.Close()
}

func replay(ctx context.Context, c *cli.Context, path string, viewport *session.Viewport, logger logging.Logger) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "cannot open feed %q", path)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Debugw("error closing feed", "error", err)
			}
		}()
		r = f
	}
	n, err := feed.Replay(ctx, r, viewport.Provider(), logger)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	printf(c.App.Writer, "applied %d batches", n)
	return nil
}

// SchemaAction prints the JSON schema of the session configuration file.
func SchemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(jsonschema.Reflect(&config.Config{}), "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal config schema")
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

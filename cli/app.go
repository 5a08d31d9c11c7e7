// Package cli implements the framegraph command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	debugFlag    = "debug"
	graphFlag    = "graph"
	configFlag   = "config"
	targetFlag   = "target"
	sourceFlag   = "source"
	pointFlag    = "point"
	feedFlag     = "feed"
	durationFlag = "duration"
	logFileFlag  = "log-file"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	graph := &cli.StringFlag{
		Name:     graphFlag,
		Aliases:  []string{"g"},
		Usage:    "read the frame graph from `FILE`",
		Required: true,
	}
	target := &cli.StringFlag{
		Name:     targetFlag,
		Aliases:  []string{"t"},
		Usage:    "frame the result is expressed in",
		Required: true,
	}
	source := &cli.StringFlag{
		Name:     sourceFlag,
		Aliases:  []string{"s"},
		Usage:    "frame being looked up",
		Required: true,
	}
	return &cli.App{
		Name:            "framegraph",
		Usage:           "inspect and follow coordinate frame graphs",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  logFileFlag,
				Usage: "also write logs to `FILE`, rotated at 64MB",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "lookup",
				Usage:     "print the pose of the source frame in the target frame",
				UsageText: "framegraph lookup --graph <file> --target <frame> --source <frame> [--point x,y,z]",
				Flags: []cli.Flag{
					graph,
					target,
					source,
					&cli.Float64SliceFlag{
						Name:  pointFlag,
						Usage: "also express this point, given in the source frame, in the target frame",
					},
				},
				Action: LookupAction,
			},
			{
				Name:   "print",
				Usage:  "print every edge of a frame graph and report malformed edges",
				Flags:  []cli.Flag{graph},
				Action: PrintAction,
			},
			{
				Name:   "path",
				Usage:  "print the frames between the source and the target frame",
				Flags:  []cli.Flag{graph, target, source},
				Action: PathAction,
			},
			{
				Name:  "watch",
				Usage: "run the consumers of a session config until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     configFlag,
						Aliases:  []string{"c"},
						Usage:    "load the session configuration from `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:  feedFlag,
						Usage: "replay newline delimited json batches from `FILE`, or - for stdin",
					},
					&cli.DurationFlag{
						Name:  durationFlag,
						Usage: "stop after this long; zero runs until interrupted",
					},
				},
				Action: WatchAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the session configuration file",
				Action: SchemaAction,
			},
		},
	}
}

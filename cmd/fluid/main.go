package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/delaneyj/fluid/pkg/fluid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

const (
	logLevelKey      = "log-level"
	maxIterationsKey = "max-iterations"
	graphKey         = "graph"
	statsKey         = "stats"
	iterationsKey    = "iterations"
	maxWidthKey      = "max-width"
	maxDepthKey      = "max-depth"
)

func main() {
	cmd := &cli.Command{
		Name:  "fluid",
		Usage: "Run, inspect and benchmark fine-grained reactive graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "Log level (trace, debug, info, warn, error)",
				Value: "warn",
			},
			&cli.UintFlag{
				Name:  maxIterationsKey,
				Usage: "Commit iterations a single batch may take",
				Value: fluid.DefaultMaxIterations,
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			demoCommand(),
			benchCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fluid: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cli.Command) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cmd.String(logLevelKey))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse %s: %w", logLevelKey, err)
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "fluid").Logger(), nil
}

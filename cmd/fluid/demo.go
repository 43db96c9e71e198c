package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/urfave/cli/v3"
)

//go:embed scenarios/*.toml
var scenarios embed.FS

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:      "demo",
		Usage:     "Run the built-in scenarios",
		ArgsUsage: "[name...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  statsKey,
				Usage: "Print per-computation statistics after each scenario",
			},
		},
		Action: demo,
	}
}

func demo(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	return playDemos(os.Stdout, cmd.Args().Slice(), playConfig{
		logger:        logger,
		maxIterations: int(cmd.Uint(maxIterationsKey)),
		stats:         cmd.Bool(statsKey),
	})
}

// playDemos plays the embedded scenarios whose names are listed, or all of
// them when names is empty.
func playDemos(out io.Writer, names []string, cfg playConfig) error {
	entries, err := fs.ReadDir(scenarios, "scenarios")
	if err != nil {
		return err
	}

	wanted := map[string]bool{}
	for _, name := range names {
		wanted[name] = true
	}

	played := 0
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		if len(wanted) > 0 && !wanted[name] {
			continue
		}

		data, err := scenarios.ReadFile(path.Join("scenarios", entry.Name()))
		if err != nil {
			return err
		}
		s, err := parseScenario(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if played > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s (%s) ==\n%s\n", s.Title, name, s.Description)
		if err := playScenario(s, out, cfg); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		played++
	}

	if played < len(wanted) {
		return fmt.Errorf("unknown scenario among %s", strings.Join(names, ", "))
	}
	return nil
}

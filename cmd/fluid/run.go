package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/delaneyj/fluid/pkg/dot"
	"github.com/delaneyj/fluid/pkg/fluid"
	"github.com/delaneyj/fluid/pkg/metrics"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

var errStepsFailed = errors.New("scenario steps failed")

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a TOML scenario and print what its effects output",
		ArgsUsage: "<scenario.toml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  graphKey,
				Usage: "Print the final graph as dot or json",
			},
			&cli.BoolFlag{
				Name:  statsKey,
				Usage: "Print per-computation statistics",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("run: missing scenario path")
	}

	s, err := loadScenario(path)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	return playScenario(s, os.Stdout, playConfig{
		logger:        logger,
		maxIterations: int(cmd.Uint(maxIterationsKey)),
		graph:         cmd.String(graphKey),
		stats:         cmd.Bool(statsKey),
	})
}

type playConfig struct {
	logger        zerolog.Logger
	maxIterations int
	// Output format of the final graph, empty for none
	graph string
	stats bool
}

// playScenario builds s on a fresh context and runs its steps, writing effect
// output and the requested reports to out.
func playScenario(s *scenario, out io.Writer, cfg playConfig) error {
	switch cfg.graph {
	case "", "dot", "json":
	default:
		return fmt.Errorf("unknown graph format %q, want dot or json", cfg.graph)
	}

	reg := prometheus.NewRegistry()
	opts := []fluid.ContextOption{
		fluid.WithLogger(cfg.logger),
		fluid.WithProbe(metrics.NewCollector(reg)),
		fluid.WithMaxIterations(cfg.maxIterations),
	}
	if s.maxIterationsSet {
		opts = append(opts, fluid.WithMaxIterations(s.MaxIterations))
	}
	rctx := fluid.NewReactiveContext(opts...)

	r := newRunner(rctx, out)
	if err := r.build(s); err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}
	failed := r.play(s)
	cfg.logger.Debug().Int("steps", len(s.Steps)).Int("failed", failed).Msg("scenario finished")

	switch cfg.graph {
	case "dot":
		dot.WriteGraph(out, rctx.Export(r.roots()...))
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rctx.Export(r.roots()...)); err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}
	}

	if cfg.stats {
		if err := printStats(out, reg); err != nil {
			return err
		}
	}

	if failed > 0 && !s.ExpectFailures {
		return fmt.Errorf("%d of %d: %w", failed, len(s.Steps), errStepsFailed)
	}
	return nil
}

type computationStats struct {
	name   string
	runs   float64
	errors float64
}

// printStats renders the metrics gathered from reg as a table.
func printStats(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	byName := map[string]*computationStats{}
	stat := func(name string) *computationStats {
		if cs, ok := byName[name]; ok {
			return cs
		}
		cs := &computationStats{name: name}
		byName[name] = cs
		return cs
	}

	var writes, commits float64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "fluid_computation_runs_total":
				stat(m.GetLabel()[0].GetValue()).runs = m.GetCounter().GetValue()
			case "fluid_computation_errors_total":
				stat(m.GetLabel()[0].GetValue()).errors = m.GetCounter().GetValue()
			case "fluid_signal_writes_total":
				writes = m.GetCounter().GetValue()
			case "fluid_batch_commits_total":
				commits += m.GetCounter().GetValue()
			}
		}
	}

	rows := make([]*computationStats, 0, len(byName))
	for _, cs := range byName {
		rows = append(rows, cs)
	}
	slices.SortFunc(rows, func(a, b *computationStats) int {
		return cmp.Compare(a.name, b.name)
	})

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"computation", "runs", "errors"})
	for _, cs := range rows {
		table.Append([]string{
			cs.name,
			humanize.Comma(int64(cs.runs)),
			humanize.Comma(int64(cs.errors)),
		})
	}
	table.SetFooter([]string{"", humanize.Comma(int64(writes)) + " writes", humanize.Comma(int64(commits)) + " commits"})
	table.Render()
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/fluid/pkg/fluid"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 10, 100, 1_000}
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark propagation",
		Commands: []*cli.Command{
			{
				Name:  "propagate",
				Usage: "Time writes through width x depth memo chains, plain and batched",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  iterationsKey,
						Usage: "Writes timed per graph",
						Value: 100,
					},
					&cli.UintFlag{
						Name:  maxWidthKey,
						Usage: "Largest number of chains",
						Value: 100,
					},
					&cli.UintFlag{
						Name:  maxDepthKey,
						Usage: "Largest chain length",
						Value: 100,
					},
				},
				Action: benchPropagate,
			},
			{
				Name:  "layers",
				Usage: "Run layered graphs of static and dynamic memos",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					logger, err := newLogger(cmd)
					if err != nil {
						return err
					}
					return benchLayers(os.Stdout, logger, layerConfigs)
				},
			},
		},
	}
}

func benchPropagate(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	iters := int(cmd.Uint(iterationsKey))
	maxWidth := int(cmd.Uint(maxWidthKey))
	maxDepth := int(cmd.Uint(maxDepthKey))

	tbl := table.NewWriter()
	tbl.SetTitle("fluid propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, batched := range []bool{false, true} {
		for _, w := range ww {
			for _, h := range hh {
				if w > maxWidth || h > maxDepth {
					continue
				}
				logger.Info().Int("width", w).Int("depth", h).Bool("batched", batched).Msg("propagate")

				g, err := buildPropagation(fluid.NewReactiveContext(), w, h)
				if err != nil {
					return err
				}

				tach := tachymeter.New(&tachymeter.Config{Size: iters})
				for i := 0; i < iters; i++ {
					start := time.Now()
					if err := g.step(batched); err != nil {
						return err
					}
					tach.AddTime(time.Since(start))
				}

				name := fmt.Sprintf("propagate: %d * %d", w, h)
				if batched {
					name += " batched"
				}
				calc := tach.Calc()
				tbl.AppendRows([]table.Row{
					{
						name,
						calc.Time.Avg,
						calc.Time.Min,
						calc.Time.P75,
						calc.Time.P99,
						calc.Time.Max,
					},
				})
			}
		}
	}

	tbl.Render()
	return nil
}

// propagation is a graph of w chains of h memos. The head of every chain reads
// both src and bias, and every chain ends in an effect.
type propagation struct {
	rctx      *fluid.ReactiveContext
	src, bias *fluid.Signal[int]
	effects   int
}

func buildPropagation(rctx *fluid.ReactiveContext, w, h int) (*propagation, error) {
	g := &propagation{
		rctx: rctx,
		src:  fluid.CreateSignal(rctx, 1),
		bias: fluid.CreateSignal(rctx, 0),
	}

	for i := 0; i < w; i++ {
		last := func() int {
			return g.src.Read() + g.bias.Read()
		}
		for j := 0; j < h; j++ {
			prev := last
			m, err := fluid.CreateMemo(rctx, func() (int, error) {
				return prev() + 1, nil
			})
			if err != nil {
				return nil, err
			}
			last = m.Read
		}

		tail := last
		if _, err := fluid.CreateEffect(rctx, func() error {
			tail()
			g.effects++
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// step writes src and bias, one commit each or together in one batch.
func (g *propagation) step(batched bool) error {
	write := func() error {
		if err := g.src.Write(g.src.Peek() + 1); err != nil {
			return err
		}
		return g.bias.Write(g.bias.Peek() - 1)
	}
	if batched {
		return fluid.Batch(g.rctx, write)
	}
	return write()
}

type layerConfig struct {
	name           string  // friendly name for the test, should be unique
	width          int     // width of dependency graph to construct
	totalLayers    int     // depth of dependency graph to construct
	staticFraction float64 // fraction of nodes that always read all of their sources
	nSources       int     // number of sources read by each node
	readFraction   float64 // fraction of the last layer read after each write
	iterations     int     // number of writes
}

var layerConfigs = []layerConfig{
	{
		name:           "simple component",
		width:          10,
		staticFraction: 1,
		nSources:       2,
		totalLayers:    5,
		readFraction:   0.2,
		iterations:     60_000,
	},
	{
		name:           "dynamic component",
		width:          10,
		totalLayers:    10,
		staticFraction: 0.75,
		nSources:       6,
		readFraction:   0.2,
		iterations:     1_500,
	},
	{
		name:           "large web app",
		width:          1000,
		totalLayers:    12,
		staticFraction: 0.95,
		nSources:       4,
		readFraction:   1,
		iterations:     70,
	},
	{
		name:           "wide dense",
		width:          1000,
		totalLayers:    5,
		staticFraction: 1,
		nSources:       25,
		readFraction:   1,
		iterations:     30,
	},
	{
		name:           "deep",
		width:          5,
		totalLayers:    500,
		staticFraction: 1,
		nSources:       3,
		readFraction:   1,
		iterations:     50,
	},
	{
		name:           "very dynamic",
		width:          100,
		totalLayers:    15,
		staticFraction: 0.5,
		nSources:       6,
		readFraction:   1,
		iterations:     200,
	},
}

func (cfg layerConfig) title() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources))
	if cfg.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if cfg.readFraction < 1 {
		sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*cfg.readFraction))
	}
	return sb.String()
}

func benchLayers(out io.Writer, logger zerolog.Logger, configs []layerConfig) error {
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{
		"size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "updateRate", "title",
	})

	for _, cfg := range configs {
		logger.Info().Str("config", cfg.name).Msg("layers")

		res, err := runLayers(cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.name, err)
		}
		updateRate := float64(res.count) / (float64(res.duration) / float64(time.Millisecond))

		tbl.Append([]string{
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			fmt.Sprint(cfg.nSources),
			fmt.Sprint(cfg.readFraction),
			fmt.Sprint(cfg.staticFraction),
			humanize.Comma(int64(cfg.iterations)),
			cfg.name,
			fmt.Sprint(res.duration),
			humanize.Comma(int64(updateRate)),
			cfg.title(),
		})
	}
	tbl.Render()
	return nil
}

type layerResult struct {
	sum      int
	count    int64
	duration time.Duration
}

type layerGraph struct {
	sources []*fluid.Signal[int]
	layers  [][]*fluid.Memo[int]
}

// runLayers builds the graph described by cfg and writes one source per
// iteration, reading a sample of the leaves after each write.
func runLayers(cfg layerConfig) (*layerResult, error) {
	rctx := fluid.NewReactiveContext()
	counter := new(int64)
	g, err := makeLayerGraph(rctx, cfg, counter)
	if err != nil {
		return nil, err
	}

	random := rand.New(rand.NewSource(0))
	leaves := g.layers[len(g.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - cfg.readFraction)))
	readLeaves := removeElems(leaves, skipCount, random)

	*counter = 0
	start := time.Now()
	for i := 0; i < cfg.iterations; i++ {
		sourceDex := i % len(g.sources)
		if err := fluid.Batch(rctx, func() error {
			return g.sources[sourceDex].Write(i + sourceDex)
		}); err != nil {
			return nil, err
		}
		for _, leaf := range readLeaves {
			leaf.Peek()
		}
	}
	res := &layerResult{duration: time.Since(start), count: *counter}

	for _, leaf := range readLeaves {
		res.sum += leaf.Peek()
	}
	return res, nil
}

func makeLayerGraph(rctx *fluid.ReactiveContext, cfg layerConfig, counter *int64) (*layerGraph, error) {
	sources := make([]*fluid.Signal[int], cfg.width)
	for i := range sources {
		sources[i] = fluid.CreateSignal(rctx, i)
	}
	g := &layerGraph{sources: sources}

	prevRow := make([]func() int, len(sources))
	for i, s := range sources {
		prevRow[i] = s.Read
	}

	random := rand.New(rand.NewSource(0))
	for l := 0; l < cfg.totalLayers-1; l++ {
		row, err := makeLayerRow(rctx, cfg, prevRow, counter, random)
		if err != nil {
			return nil, err
		}
		g.layers = append(g.layers, row)

		prevRow = make([]func() int, len(row))
		for i, m := range row {
			prevRow[i] = m.Read
		}
	}
	return g, nil
}

func makeLayerRow(rctx *fluid.ReactiveContext, cfg layerConfig, sources []func() int, counter *int64, random *rand.Rand) ([]*fluid.Memo[int], error) {
	row := make([]*fluid.Memo[int], len(sources))

	for myDex := range sources {
		mySources := make([]func() int, 0, cfg.nSources)
		for sourceDex := 0; sourceDex < cfg.nSources; sourceDex++ {
			mySources = append(mySources, sources[(myDex+sourceDex)%len(sources)])
		}

		var fn func() (int, error)
		if random.Float64() < cfg.staticFraction {
			fn = func() (int, error) {
				*counter++
				sum := 0
				for _, read := range mySources {
					sum += read()
				}
				return sum, nil
			}
		} else {
			first, tail := mySources[0], mySources[1:]
			fn = func() (int, error) {
				*counter++
				sum := first()
				shouldDrop := sum&0x1 > 0
				dropDex := sum % len(tail)
				for i, read := range tail {
					if shouldDrop && i == dropDex {
						continue
					}
					sum += read()
				}
				return sum, nil
			}
		}

		m, err := fluid.CreateMemo(rctx, fn)
		if err != nil {
			return nil, err
		}
		row[myDex] = m
	}
	return row, nil
}

func removeElems[T any](src []T, rmCount int, random *rand.Rand) []T {
	copyWithRemovals := make([]T, len(src))
	copy(copyWithRemovals, src)
	for i := 0; i < rmCount; i++ {
		rmDex := random.Intn(len(copyWithRemovals))
		copyWithRemovals[rmDex] = copyWithRemovals[len(copyWithRemovals)-1]
		copyWithRemovals = copyWithRemovals[:len(copyWithRemovals)-1]
	}
	return copyWithRemovals
}

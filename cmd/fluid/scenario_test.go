package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/delaneyj/fluid/pkg/fluid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() playConfig {
	return playConfig{logger: zerolog.Nop(), maxIterations: fluid.DefaultMaxIterations}
}

func TestDemos(t *testing.T) {
	cases := map[string]string{
		"retracking": `Joe Doe
# full = false
Joe
# sirname changes while untracked
# full = true
Joe X
`,
		"batch": `1 * 2 = 2
# two writes
5 * 2 = 10
5 * -1 = -5
# two writes in a batch
2 * 3 = 6
`,
		"conflict": `n = 0, next = 1
# n = 1 then n = 2
error: batch: write n: fluid: conflicting assignment during batch: n has pending value 1, refusing 2
# n = 1 twice
n = 1, next = 2
# memos are readonly
error: write next: fluid: readonly signal can not be assigned
`,
		"ownership": `first a
# show = false
first disposed
second b
# a is no longer read
# b changes
second y
# dispose parent
`,
		"glitch": `1 * 2 = 2, doubled 4
# n1 = 5
5 * 2 = 10, doubled 20
# n1 = 3, n2 = -1 in a batch
3 * -1 = -3, doubled -6
`,
	}

	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := scenarios.ReadFile("scenarios/" + name + ".toml")
			require.NoError(t, err)
			s, err := parseScenario(string(data))
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, playScenario(s, &out, quiet()))
			assert.Equal(t, want, out.String())
		})
	}

	t.Run("all", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, playDemos(&out, nil, quiet()))
		assert.Contains(t, out.String(), "== Batch coalescing (batch) ==")
		assert.Contains(t, out.String(), "== Ownership (ownership) ==")
	})

	t.Run("unknown", func(t *testing.T) {
		var out bytes.Buffer
		require.Error(t, playDemos(&out, []string{"nope"}, quiet()))
	})
}

func TestScenario(t *testing.T) {
	t.Run("load from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "loop.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
title = "loop"
max_iterations = 3

[[signal]]
name = "x"
value = 1
`), 0644))

		s, err := loadScenario(path)
		require.NoError(t, err)
		assert.Equal(t, "loop", s.Title)
		assert.True(t, s.maxIterationsSet)
		assert.Equal(t, 3, s.MaxIterations)
		require.Len(t, s.Signals, 1)
		assert.Equal(t, int64(1), s.Signals[0].Value)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := parseScenario(`titel = "typo"`)
		require.ErrorContains(t, err, `unknown scenario key "titel"`)
	})

	t.Run("bad max iterations", func(t *testing.T) {
		_, err := parseScenario(`max_iterations = 0`)
		require.Error(t, err)
	})

	t.Run("unknown names", func(t *testing.T) {
		for _, src := range []string{
			"[[memo]]\nname = \"m\"\nop = \"sum\"\ninputs = [\"missing\"]",
			"[[memo]]\nname = \"m\"\nop = \"pow\"",
			"[[effect]]\nformat = \"{missing}\"",
			"[[effect]]\nwhen = \"missing\"",
			"[[signal]]\nname = \"a\"\nvalue = 1\n[[signal]]\nname = \"a\"\nvalue = 2",
		} {
			s, err := parseScenario(src)
			require.NoError(t, err, src)
			err = newRunner(fluid.NewReactiveContext(), &bytes.Buffer{}).build(s)
			require.Error(t, err, src)
		}
	})

	t.Run("failing steps", func(t *testing.T) {
		s, err := parseScenario(`
[[signal]]
name = "a"
value = 1

[[step]]
assign = ["b = 2"]
`)
		require.NoError(t, err)

		var out bytes.Buffer
		err = playScenario(s, &out, quiet())
		require.ErrorIs(t, err, errStepsFailed)
		assert.Equal(t, "error: assign: unknown signal \"b\"\n", out.String())
	})

	t.Run("memo op errors", func(t *testing.T) {
		s, err := parseScenario(`
[[signal]]
name = "a"
value = "text"

[[memo]]
name = "m"
op = "sum"
inputs = ["a"]
`)
		require.NoError(t, err)
		err = newRunner(fluid.NewReactiveContext(), &bytes.Buffer{}).build(s)
		require.ErrorContains(t, err, "want integer")
	})

	t.Run("graph and stats", func(t *testing.T) {
		data, err := scenarios.ReadFile("scenarios/batch.toml")
		require.NoError(t, err)
		s, err := parseScenario(string(data))
		require.NoError(t, err)

		cfg := quiet()
		cfg.graph = "json"
		cfg.stats = true
		var out bytes.Buffer
		require.NoError(t, playScenario(s, &out, cfg))
		assert.Contains(t, out.String(), `"kind": "produces"`)
		assert.Contains(t, out.String(), "print")
		assert.Contains(t, out.String(), "prod")

		cfg.graph = "svg"
		require.Error(t, playScenario(s, &out, cfg))
	})

	t.Run("dot graph", func(t *testing.T) {
		data, err := scenarios.ReadFile("scenarios/ownership.toml")
		require.NoError(t, err)
		s, err := parseScenario(string(data))
		require.NoError(t, err)

		cfg := quiet()
		cfg.graph = "dot"
		var out bytes.Buffer
		require.NoError(t, playScenario(s, &out, cfg))
		assert.Contains(t, out.String(), "digraph fluid {")
	})
}

func TestParseAssignment(t *testing.T) {
	name, value, err := parseAssignment(`n1 = -5`)
	require.NoError(t, err)
	assert.Equal(t, "n1", name)
	assert.Equal(t, int64(-5), value)

	name, value, err = parseAssignment(`greeting = "hi there"`)
	require.NoError(t, err)
	assert.Equal(t, "greeting", name)
	assert.Equal(t, "hi there", value)

	_, _, err = parseAssignment(`a = 1
b = 2`)
	require.Error(t, err)

	_, _, err = parseAssignment(`nonsense`)
	require.Error(t, err)
}

func TestGraphJSON(t *testing.T) {
	data, err := scenarios.ReadFile("scenarios/glitch.toml")
	require.NoError(t, err)
	s, err := parseScenario(string(data))
	require.NoError(t, err)

	rctx := fluid.NewReactiveContext()
	r := newRunner(rctx, &bytes.Buffer{})
	require.NoError(t, r.build(s))

	raw, err := json.Marshal(rctx.Export(r.roots()...))
	require.NoError(t, err)

	var g fluid.Graph
	require.NoError(t, json.Unmarshal(raw, &g))
	assert.Len(t, g.Nodes, 7)
}

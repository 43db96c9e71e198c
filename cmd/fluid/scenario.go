package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/delaneyj/fluid/pkg/fluid"
)

// scenario describes a small reactive program: signals, memos derived from
// them, effects printing lines, and steps writing new values.
type scenario struct {
	Title          string       `toml:"title"`
	Description    string       `toml:"description"`
	MaxIterations  int          `toml:"max_iterations"`
	// Steps are allowed to fail, for scenarios showing error handling
	ExpectFailures bool         `toml:"expect_failures"`
	Signals        []signalSpec `toml:"signal"`
	Memos          []memoSpec   `toml:"memo"`
	Effects        []effectSpec `toml:"effect"`
	Steps          []stepSpec   `toml:"step"`

	maxIterationsSet bool
}

type signalSpec struct {
	Name  string `toml:"name"`
	Value any    `toml:"value"`
}

type memoSpec struct {
	Name   string   `toml:"name"`
	Op     string   `toml:"op"`
	Inputs []string `toml:"inputs"`
}

// effectSpec prints Format every time it runs. With When set, the named value
// selects between Format/Children and Else/ElseChildren, so only the branch
// taken is tracked.
type effectSpec struct {
	Name         string       `toml:"name"`
	When         string       `toml:"when"`
	Format       string       `toml:"format"`
	Else         string       `toml:"else"`
	Cleanup      string       `toml:"cleanup"`
	Children     []effectSpec `toml:"child"`
	ElseChildren []effectSpec `toml:"else_child"`
}

type stepSpec struct {
	Label   string   `toml:"label"`
	Batch   bool     `toml:"batch"`
	Assign  []string `toml:"assign"`
	Dispose []string `toml:"dispose"`
}

var memoOps = map[string]func(name string, inputs []any) (any, error){
	"sum": func(name string, inputs []any) (any, error) {
		var total int64
		for _, v := range inputs {
			n, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("memo %s: input %v is %T, want integer", name, v, v)
			}
			total += n
		}
		return total, nil
	},
	"product": func(name string, inputs []any) (any, error) {
		total := int64(1)
		for _, v := range inputs {
			n, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("memo %s: input %v is %T, want integer", name, v, v)
			}
			total *= n
		}
		return total, nil
	},
	"concat": func(_ string, inputs []any) (any, error) {
		parts := make([]string, len(inputs))
		for i, v := range inputs {
			parts[i] = fmt.Sprint(v)
		}
		return strings.Join(parts, " "), nil
	},
	"not": func(name string, inputs []any) (any, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("memo %s: not takes one input, got %d", name, len(inputs))
		}
		return !truthy(inputs[0]), nil
	},
}

func parseScenario(data string) (*scenario, error) {
	var s scenario
	meta, err := toml.Decode(data, &s)
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return s.finish(meta)
}

func loadScenario(path string) (*scenario, error) {
	var s scenario
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	return s.finish(meta)
}

func (s *scenario) finish(meta toml.MetaData) (*scenario, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown scenario key %q", undecoded[0].String())
	}
	s.maxIterationsSet = meta.IsDefined("max_iterations")
	if s.maxIterationsSet && s.MaxIterations <= 0 {
		return nil, fmt.Errorf("max_iterations must be positive, got %d", s.MaxIterations)
	}
	return s, nil
}

// runner holds the live graph built from a scenario.
type runner struct {
	rctx *fluid.ReactiveContext
	out  io.Writer

	signals  []*fluid.Signal[any]
	readers  map[string]func() any
	writers  map[string]func(any) error
	effects  map[string]*fluid.Computation
	topLevel []*fluid.Computation
}

func newRunner(rctx *fluid.ReactiveContext, out io.Writer) *runner {
	return &runner{
		rctx:    rctx,
		out:     out,
		readers: map[string]func() any{},
		writers: map[string]func(any) error{},
		effects: map[string]*fluid.Computation{},
	}
}

// build creates the signals, memos and effects of s. Effects run once while
// being created.
func (r *runner) build(s *scenario) error {
	for _, spec := range s.Signals {
		if err := r.declare(spec.Name); err != nil {
			return err
		}
		if spec.Value == nil {
			return fmt.Errorf("signal %s: missing value", spec.Name)
		}
		sig := fluid.CreateSignal[any](r.rctx, spec.Value, fluid.WithName(spec.Name))
		r.signals = append(r.signals, sig)
		r.readers[spec.Name] = sig.Read
		r.writers[spec.Name] = sig.Write
	}

	for _, spec := range s.Memos {
		if err := r.declare(spec.Name); err != nil {
			return err
		}
		op, ok := memoOps[spec.Op]
		if !ok {
			return fmt.Errorf("memo %s: unknown op %q", spec.Name, spec.Op)
		}
		inputs := make([]func() any, len(spec.Inputs))
		for i, in := range spec.Inputs {
			read, ok := r.readers[in]
			if !ok {
				return fmt.Errorf("memo %s: unknown input %q", spec.Name, in)
			}
			inputs[i] = read
		}

		name := spec.Name
		m, err := fluid.CreateMemo(r.rctx, func() (any, error) {
			values := make([]any, len(inputs))
			for i, read := range inputs {
				values[i] = read()
			}
			return op(name, values)
		}, fluid.WithName(spec.Name))
		if err != nil {
			return err
		}
		r.readers[spec.Name] = m.Read
		r.writers[spec.Name] = m.Write
	}

	for _, spec := range s.Effects {
		if err := r.check(spec); err != nil {
			return err
		}
	}
	for _, spec := range s.Effects {
		c, err := fluid.CreateEffect(r.rctx, r.effect(spec), fluid.WithName(spec.Name))
		if err != nil {
			return err
		}
		r.topLevel = append(r.topLevel, c)
		if spec.Name != "" {
			r.effects[spec.Name] = c
		}
	}
	return nil
}

func (r *runner) declare(name string) error {
	if name == "" {
		return errors.New("missing name")
	}
	if _, ok := r.readers[name]; ok {
		return fmt.Errorf("duplicate name %q", name)
	}
	return nil
}

// check resolves every name an effect could read before anything runs.
func (r *runner) check(spec effectSpec) error {
	names := placeholders(spec.Format)
	names = append(names, placeholders(spec.Else)...)
	if spec.When != "" {
		names = append(names, spec.When)
	}
	for _, name := range names {
		if _, ok := r.readers[name]; !ok {
			return fmt.Errorf("effect %s: unknown name %q", spec.Name, name)
		}
	}
	for _, child := range append(append([]effectSpec(nil), spec.Children...), spec.ElseChildren...) {
		if err := r.check(child); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) effect(spec effectSpec) func() error {
	return func() error {
		format, children := spec.Format, spec.Children
		if spec.When != "" && !truthy(r.readers[spec.When]()) {
			format, children = spec.Else, spec.ElseChildren
		}

		if format != "" {
			fmt.Fprintln(r.out, r.render(format))
		}
		if spec.Cleanup != "" {
			if err := fluid.OnCleanup(r.rctx, func() {
				fmt.Fprintln(r.out, spec.Cleanup)
			}); err != nil {
				return err
			}
		}
		for _, child := range children {
			if _, err := fluid.CreateEffect(r.rctx, r.effect(child), fluid.WithName(child.Name)); err != nil {
				return err
			}
		}
		return nil
	}
}

// render replaces every {name} in format with the current value of name.
func (r *runner) render(format string) string {
	var sb strings.Builder
	for {
		start := strings.IndexByte(format, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(format[start:], '}')
		if end < 0 {
			break
		}
		end += start
		sb.WriteString(format[:start])
		fmt.Fprint(&sb, r.readers[format[start+1:end]]())
		format = format[end+1:]
	}
	sb.WriteString(format)
	return sb.String()
}

func placeholders(format string) []string {
	var names []string
	for {
		start := strings.IndexByte(format, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(format[start:], '}')
		if end < 0 {
			return names
		}
		names = append(names, format[start+1:start+end])
		format = format[start+end+1:]
	}
}

// play executes the steps of s. A failing step is reported on the output and
// does not stop the scenario; the number of failed steps is returned.
func (r *runner) play(s *scenario) int {
	failed := 0
	for _, step := range s.Steps {
		if step.Label != "" {
			fmt.Fprintf(r.out, "# %s\n", step.Label)
		}
		if err := r.step(step); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			failed++
		}
	}
	return failed
}

func (r *runner) step(step stepSpec) error {
	for _, name := range step.Dispose {
		c, ok := r.effects[name]
		if !ok {
			return fmt.Errorf("dispose: unknown effect %q", name)
		}
		c.Dispose()
	}

	assign := func() error {
		for _, a := range step.Assign {
			name, value, err := parseAssignment(a)
			if err != nil {
				return err
			}
			write, ok := r.writers[name]
			if !ok {
				return fmt.Errorf("assign: unknown signal %q", name)
			}
			if err := write(value); err != nil {
				return err
			}
		}
		return nil
	}

	if step.Batch {
		return fluid.Batch(r.rctx, assign)
	}
	return assign()
}

// parseAssignment reads a single TOML key/value pair such as `n1 = 5` or
// `name = "Jane"`.
func parseAssignment(a string) (string, any, error) {
	var kv map[string]any
	meta, err := toml.Decode(a, &kv)
	if err != nil {
		return "", nil, fmt.Errorf("assign %q: %w", a, err)
	}
	keys := meta.Keys()
	if len(keys) != 1 || len(keys[0]) != 1 {
		return "", nil, fmt.Errorf("assign %q: want exactly one key = value", a)
	}
	name := keys[0][0]
	return name, kv[name], nil
}

// roots returns the nodes a graph export of the scenario starts from.
func (r *runner) roots() []fluid.Noder {
	roots := make([]fluid.Noder, 0, len(r.signals)+len(r.topLevel))
	for _, s := range r.signals {
		roots = append(roots, s)
	}
	for _, c := range r.topLevel {
		roots = append(roots, c)
	}
	return roots
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

package fluid

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
)

// DefaultMaxIterations bounds the fixed-point loop of a commit.
const DefaultMaxIterations = 1_000_000

// Probe receives notifications about the work done by a ReactiveContext.
// Implementations must not touch the graph.
type Probe interface {
	ComputationRun(name string, took time.Duration, err error)
	SignalWritten(name string)
	BatchCommitted(iterations int, err error)
}

type nopProbe struct{}

func (nopProbe) ComputationRun(string, time.Duration, error) {}
func (nopProbe) SignalWritten(string)                        {}
func (nopProbe) BatchCommitted(int, error)                   {}

// ReactiveContext owns one reactive graph.
//
// The zero value is ready to use. A ReactiveContext must not be used from more
// than one goroutine at a time.
type ReactiveContext struct {
	// Arena of signal cells, indexed by signalID
	signals []*signalCell
	// Arena of computations, indexed by computationID.idx
	computations []*computation
	// Released computation slots waiting for reuse
	free []uint32
	// Creation counter, gives computations a stable order independent of slot reuse
	seq uint64

	// Computation currently executing, zero when none. Reads are attributed to it
	// and computations created meanwhile become its children.
	owner computationID
	// Whether reads register dependencies, turned off by Untrack
	tracking bool

	batch batch

	logger        zerolog.Logger
	maxIterations int
	probe         Probe
	initialized   bool
}

// ContextOption configures a ReactiveContext.
type ContextOption func(*ReactiveContext)

// WithLogger sets the logger used for commit diagnostics.
func WithLogger(logger zerolog.Logger) ContextOption {
	return func(rctx *ReactiveContext) {
		rctx.logger = logger
	}
}

// WithMaxIterations sets how many commit iterations a single batch may take
// before failing with ErrRunawayComputation.
func WithMaxIterations(n int) ContextOption {
	return func(rctx *ReactiveContext) {
		if n > 0 {
			rctx.maxIterations = n
		}
	}
}

// WithProbe installs a Probe, see package metrics for a Prometheus one.
func WithProbe(p Probe) ContextOption {
	return func(rctx *ReactiveContext) {
		if p != nil {
			rctx.probe = p
		}
	}
}

func NewReactiveContext(opts ...ContextOption) *ReactiveContext {
	rctx := &ReactiveContext{}
	rctx.init()
	for _, opt := range opts {
		opt(rctx)
	}
	return rctx
}

func (rctx *ReactiveContext) init() {
	if rctx.initialized {
		return
	}
	rctx.initialized = true
	rctx.logger = zerolog.Nop()
	rctx.maxIterations = DefaultMaxIterations
	rctx.probe = nopProbe{}
	rctx.batch.queued = mapset.NewThreadUnsafeSet[computationID]()
}

// computation resolves a handle, returning nil for zero, stale and disposed handles.
func (rctx *ReactiveContext) computation(id computationID) *computation {
	if !id.valid() || int(id.idx) >= len(rctx.computations) {
		return nil
	}
	c := rctx.computations[id.idx]
	if c.gen != id.gen || c.disposed {
		return nil
	}
	return c
}

func (rctx *ReactiveContext) newComputation(fn func() error, owner computationID, o options) computationID {
	rctx.seq++
	c := &computation{
		seq:      rctx.seq,
		name:     o.name,
		fn:       fn,
		sources:  mapset.NewThreadUnsafeSet[signalID](),
		children: mapset.NewThreadUnsafeSet[computationID](),
	}

	var id computationID
	if n := len(rctx.free); n > 0 {
		idx := rctx.free[n-1]
		rctx.free = rctx.free[:n-1]
		c.gen = rctx.computations[idx].gen + 1
		id = computationID{idx: idx, gen: c.gen}
		rctx.computations[idx] = c
	} else {
		c.gen = 1
		id = computationID{idx: uint32(len(rctx.computations)), gen: c.gen}
		rctx.computations = append(rctx.computations, c)
	}

	if parent := rctx.computation(owner); parent != nil {
		c.owner = owner
		parent.children.Add(id)
	}

	return id
}

func (rctx *ReactiveContext) newSignal(value any, readonly bool, o options) signalID {
	id := signalID(len(rctx.signals))
	rctx.signals = append(rctx.signals, &signalCell{
		value:    value,
		readonly: readonly,
		subs:     mapset.NewThreadUnsafeSet[computationID](),
		name:     o.name,
		equals:   o.equals,
	})
	return id
}

// byCreation returns the members of set ordered by creation.
func (rctx *ReactiveContext) byCreation(set mapset.Set[computationID]) []computationID {
	ids := set.ToSlice()
	slices.SortFunc(ids, func(a, b computationID) int {
		return cmp.Compare(rctx.computations[a.idx].seq, rctx.computations[b.idx].seq)
	})
	return ids
}

func (rctx *ReactiveContext) signalLabel(id signalID) string {
	if name := rctx.signals[id].name; name != "" {
		return name
	}
	return fmt.Sprintf("signal#%d", id)
}

func (rctx *ReactiveContext) computationLabel(id computationID) string {
	if c := rctx.computations[id.idx]; c.gen == id.gen && c.name != "" {
		return c.name
	}
	return fmt.Sprintf("computation#%d", id.idx)
}

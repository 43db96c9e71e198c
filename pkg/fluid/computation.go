package fluid

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// A computation is a function that is re-executed when one of the signals it
// read during its last run changes. It owns the computations created while it
// runs and disposes them before every re-execution.
type computation struct {
	gen uint32
	seq uint64

	name string
	// Function to re-execute
	fn func() error
	// Set when fn writes the output of a memo
	memo   bool
	signal signalID

	// Signals read during the last run
	sources mapset.Set[signalID]
	// User cleanups registered during the last run, in registration order
	cleanups []func()

	owner    computationID
	children mapset.Set[computationID]

	disposed bool
	runs     uint64
}

// execute resets the computation and runs it with itself as the current owner.
// The previous owner and tracking state are restored on every exit path.
func (rctx *ReactiveContext) execute(id computationID) (err error) {
	c := rctx.computation(id)
	if c == nil {
		return nil
	}

	rctx.reset(id, c)

	prevOwner, prevTracking := rctx.owner, rctx.tracking
	defer func() {
		rctx.owner, rctx.tracking = prevOwner, prevTracking
	}()
	rctx.owner, rctx.tracking = id, true

	start := time.Now()
	err = c.fn()
	c.runs++
	rctx.probe.ComputationRun(c.name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("execute %s: %w", rctx.computationLabel(id), err)
	}
	return nil
}

// reset prepares a computation for a new run: its subscriptions are removed
// and its cleanups run, then every child is disposed.
func (rctx *ReactiveContext) reset(id computationID, c *computation) {
	c.sources.Each(func(s signalID) bool {
		rctx.signals[s].subs.Remove(id)
		return false
	})
	c.sources.Clear()

	cleanups := c.cleanups
	c.cleanups = nil
	for _, cleanup := range cleanups {
		cleanup()
	}

	children := rctx.byCreation(c.children)
	c.children.Clear()
	for _, child := range children {
		rctx.dispose(child)
	}
}

// dispose tears a computation down for good and releases its slot.
func (rctx *ReactiveContext) dispose(id computationID) {
	c := rctx.computation(id)
	if c == nil {
		return
	}
	c.disposed = true

	rctx.reset(id, c)
	if parent := rctx.computation(c.owner); parent != nil {
		parent.children.Remove(id)
	}
	c.fn = nil
	rctx.free = append(rctx.free, id.idx)

	// A stale output will never be assigned again, release its readers.
	if c.memo && rctx.signals[c.signal].state == Stale {
		rctx.signals[c.signal].state = Clean
		rctx.schedule(c.signal)
	}

	rctx.logger.Trace().Str("computation", rctx.computationLabel(id)).Msg("disposed")
}

// createComputation runs a new computation once. A computation that fails its
// first run is disposed.
func (rctx *ReactiveContext) createComputation(fn func() error, owner computationID, o options) (computationID, error) {
	id := rctx.newComputation(fn, owner, o)
	if err := rctx.execute(id); err != nil {
		rctx.dispose(id)
		return computationID{}, err
	}
	return id, nil
}

// Computation is a handle to an effect, a root or the computation behind a memo.
type Computation struct {
	rctx *ReactiveContext
	id   computationID
}

// Dispose runs the computation's cleanups, disposes its children and stops it
// from ever running again. Disposing twice is a no-op.
func (c *Computation) Dispose() {
	c.rctx.dispose(c.id)
}

func (c *Computation) Disposed() bool {
	return c.rctx.computation(c.id) == nil
}

func (c *Computation) Name() string {
	return c.rctx.computations[c.id.idx].nameFor(c.id)
}

// Runs returns how many times the computation executed, or 0 once disposed.
func (c *Computation) Runs() uint64 {
	if comp := c.rctx.computation(c.id); comp != nil {
		return comp.runs
	}
	return 0
}

// Sources returns the number of signals read during the last run.
func (c *Computation) Sources() int {
	if comp := c.rctx.computation(c.id); comp != nil {
		return comp.sources.Cardinality()
	}
	return 0
}

// Children returns the number of computations owned by this one.
func (c *Computation) Children() int {
	if comp := c.rctx.computation(c.id); comp != nil {
		return comp.children.Cardinality()
	}
	return 0
}

func (c *Computation) Node() Node {
	return computationNode(c.id)
}

func (c *computation) nameFor(id computationID) string {
	if c.gen != id.gen {
		return ""
	}
	return c.name
}

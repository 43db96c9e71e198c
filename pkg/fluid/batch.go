package fluid

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// batch buffers signal writes and the computations they affect so that
// dependents observe every write of a logical update together, exactly once.
type batch struct {
	active bool
	// Signals with a buffered value, in assignment order
	signals []signalID
	// Memo outputs marked stale, reset when the batch ends
	staled []signalID
	// Computations to execute on the next commit iteration
	queue  []computationID
	queued mapset.Set[computationID]
}

// Batch runs fn with writes buffered and commits them when fn returns, so each
// affected computation runs once and sees all the new values together.
// While fn runs, reads return the values committed before the batch.
//
// If fn fails or panics the buffered writes are discarded, nothing buffered
// before the failure is committed. Batches do not nest:
// calling Batch while one is active, including from a computation re-run by a
// commit, returns ErrNestedBatch.
func Batch(rctx *ReactiveContext, fn func() error) (err error) {
	rctx.init()
	if rctx.batch.active {
		return fmt.Errorf("batch: %w", ErrNestedBatch)
	}
	rctx.batch.active = true

	committed := false
	defer func() {
		if !committed {
			rctx.endBatch()
		}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	committed = true
	return rctx.commit()
}

// IsBatching reports whether a batch is collecting writes.
func (rctx *ReactiveContext) IsBatching() bool {
	return rctx.batch.active
}

// assign buffers a value and schedules the dependents of the signal. It
// bypasses the readonly check, memos use it to publish their output. Outside a
// batch it behaves as a batch of a single write.
func (rctx *ReactiveContext) assign(id signalID, v any) error {
	cell := rctx.signals[id]
	b := &rctx.batch

	if b.active && cell.state == Pending {
		if !cell.equals(cell.pending, v) {
			return &ConflictError{Signal: rctx.signalLabel(id), Pending: cell.pending, Value: v}
		}
		return nil
	}

	implicit := !b.active
	b.active = true

	cell.pending = v
	cell.state = Pending
	b.signals = append(b.signals, id)
	rctx.probe.SignalWritten(cell.name)

	rctx.schedule(id)

	if implicit {
		return rctx.commit()
	}
	return nil
}

// schedule walks the dependents of a signal in topological order. Memo outputs
// become stale until their computation runs; computations reading a stale
// value are left for the memo to schedule once it has settled.
func (rctx *ReactiveContext) schedule(id signalID) {
	b := &rctx.batch

	for _, n := range rctx.topo(signalNode(id))[1:] {
		switch n.Kind {
		case KindSignal:
			cell := rctx.signals[n.sig]
			if rctx.computation(cell.owner) != nil {
				cell.state = Stale
				b.staled = append(b.staled, n.sig)
			}
		case KindComputation:
			c := rctx.computation(n.comp)
			if c == nil || b.queued.Contains(n.comp) || rctx.hasStaleSource(c) {
				continue
			}
			b.queue = append(b.queue, n.comp)
			b.queued.Add(n.comp)
		}
	}
}

func (rctx *ReactiveContext) hasStaleSource(c *computation) bool {
	stale := false
	c.sources.Each(func(s signalID) bool {
		stale = rctx.signals[s].state == Stale
		return stale
	})
	return stale
}

// commit drains buffered values and queued computations until both are empty.
// Computations may write more signals; those writes join the same batch.
func (rctx *ReactiveContext) commit() (err error) {
	b := &rctx.batch
	iterations := 0

	defer func() {
		rctx.endBatch()
		rctx.probe.BatchCommitted(iterations, err)
		if err != nil {
			rctx.logger.Warn().Err(err).Int("iterations", iterations).Msg("commit aborted")
		}
	}()

	for len(b.signals) > 0 || len(b.queue) > 0 {
		if iterations >= rctx.maxIterations {
			return fmt.Errorf("commit after %d iterations: %w", iterations, ErrRunawayComputation)
		}
		iterations++

		signals := b.signals
		b.signals = nil
		for _, id := range signals {
			cell := rctx.signals[id]
			if cell.state != Pending {
				continue
			}
			cell.value, cell.pending, cell.state = cell.pending, nil, Clean
		}

		queue := b.queue
		b.queue = nil
		b.queued.Clear()

		rctx.logger.Debug().
			Int("iteration", iterations).
			Int("signals", len(signals)).
			Int("computations", len(queue)).
			Msg("commit step")

		for _, id := range queue {
			c := rctx.computation(id)
			switch {
			case c == nil:
				// disposed by a computation that ran earlier in this step
			case b.queued.Contains(id):
				// queued again by an earlier computation, it runs next step
			case rctx.hasStaleSource(c):
				// the stale memo queues it once it settles
			default:
				if err := rctx.execute(id); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// endBatch drops whatever is still buffered and deactivates the batch.
func (rctx *ReactiveContext) endBatch() {
	b := &rctx.batch
	for _, id := range b.signals {
		cell := rctx.signals[id]
		cell.pending = nil
		cell.state = Clean
	}
	for _, id := range b.staled {
		cell := rctx.signals[id]
		if cell.state == Stale {
			cell.pending = nil
			cell.state = Clean
		}
	}

	b.signals = nil
	b.staled = nil
	b.queue = nil
	b.queued.Clear()
	b.active = false
}

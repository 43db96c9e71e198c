package fluid

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// signalCell is the untyped storage behind Signal and Memo.
type signalCell struct {
	// Committed value, what every read returns
	value any
	// Value buffered by the active batch, meaningful while state is Pending
	pending any
	// Set for memo outputs, external writes are refused
	readonly bool
	// Computations whose last run read this cell
	subs mapset.Set[computationID]
	// Memo computation producing this cell, zero for plain signals
	owner computationID
	state State
	name  string
	// Used to tell an idempotent re-assignment from a conflicting one
	equals func(a, b any) bool
}

// Signal is an observed mutable value.
type Signal[T any] struct {
	rctx *ReactiveContext
	id   signalID
}

// CreateSignal creates a signal holding initial.
func CreateSignal[T any](rctx *ReactiveContext, initial T, opts ...Option) *Signal[T] {
	rctx.init()
	return &Signal[T]{
		rctx: rctx,
		id:   rctx.newSignal(initial, false, buildOptions(opts)),
	}
}

// Read returns the committed value and, when called from a computation,
// subscribes that computation to the signal.
func (s *Signal[T]) Read() T {
	return as[T](s.rctx.read(s.id))
}

// Peek returns the committed value without subscribing.
func (s *Signal[T]) Peek() T {
	return as[T](s.rctx.signals[s.id].value)
}

// Write assigns a new value. Outside a batch dependents re-run before Write
// returns; inside a batch the value is buffered until the batch commits.
func (s *Signal[T]) Write(v T) error {
	return s.rctx.write(s.id, v)
}

// Update writes the result of fn applied to the current value. Inside a batch
// that is the buffered value when there is one, so a second update that
// changes it again fails with ErrBatchConflict instead of being lost.
func (s *Signal[T]) Update(fn func(T) T) error {
	cell := s.rctx.signals[s.id]
	if cell.state == Pending {
		return s.Write(fn(as[T](cell.pending)))
	}
	return s.Write(fn(s.Peek()))
}

func (s *Signal[T]) State() State {
	return s.rctx.signals[s.id].state
}

func (s *Signal[T]) Name() string {
	return s.rctx.signals[s.id].name
}

// Subscribers returns the number of computations depending on the signal.
func (s *Signal[T]) Subscribers() int {
	return s.rctx.signals[s.id].subs.Cardinality()
}

func (s *Signal[T]) Node() Node {
	return signalNode(s.id)
}

func (s *Signal[T]) String() string {
	cell := s.rctx.signals[s.id]
	return fmt.Sprintf("Signal(value=%v, pending=%v, readonly=%t, state=%s, subscribers=%d)",
		cell.value, cell.pending, cell.readonly, cell.state, cell.subs.Cardinality())
}

func (rctx *ReactiveContext) read(id signalID) any {
	cell := rctx.signals[id]
	if rctx.tracking {
		if c := rctx.computation(rctx.owner); c != nil {
			cell.subs.Add(rctx.owner)
			c.sources.Add(id)
		}
	}
	return cell.value
}

func (rctx *ReactiveContext) write(id signalID, v any) error {
	if rctx.signals[id].readonly {
		return fmt.Errorf("write %s: %w", rctx.signalLabel(id), ErrReadonlyAssignment)
	}
	if err := rctx.assign(id, v); err != nil {
		return fmt.Errorf("write %s: %w", rctx.signalLabel(id), err)
	}
	return nil
}

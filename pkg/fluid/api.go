package fluid

import "fmt"

// CreateEffect runs fn immediately and again whenever a signal it read changes.
// An effect created by a running computation is owned by it and disposed when
// that computation re-runs or is disposed.
func CreateEffect(rctx *ReactiveContext, fn func() error, opts ...Option) (*Computation, error) {
	rctx.init()
	id, err := rctx.createComputation(fn, rctx.owner, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Computation{rctx: rctx, id: id}, nil
}

// CreateRoot is CreateEffect without an owner. Roots live until disposed
// explicitly.
func CreateRoot(rctx *ReactiveContext, fn func() error, opts ...Option) (*Computation, error) {
	rctx.init()
	id, err := rctx.createComputation(fn, computationID{}, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Computation{rctx: rctx, id: id}, nil
}

// OnCleanup registers fn to run before the executing computation re-runs or is
// disposed.
func OnCleanup(rctx *ReactiveContext, fn func()) error {
	rctx.init()
	c := rctx.computation(rctx.owner)
	if c == nil {
		return fmt.Errorf("on cleanup: %w", ErrCleanupOutsideComputation)
	}
	c.cleanups = append(c.cleanups, fn)
	return nil
}

// Untrack calls fn without registering the signals it reads as dependencies
// of the executing computation.
func Untrack[T any](rctx *ReactiveContext, fn func() T) T {
	rctx.init()
	prev := rctx.tracking
	rctx.tracking = false
	defer func() {
		rctx.tracking = prev
	}()
	return fn()
}

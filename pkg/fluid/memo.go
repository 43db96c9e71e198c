package fluid

// Memo is a readonly signal kept up to date by a computation. Dependents of a
// memo re-run after the memo has settled, never against its previous value.
type Memo[T any] struct {
	signal *Signal[T]
	comp   *Computation
}

// CreateMemo runs fn immediately and then every time a signal it reads changes,
// publishing the result. A memo created by a running computation is owned by it.
func CreateMemo[T any](rctx *ReactiveContext, fn func() (T, error), opts ...Option) (*Memo[T], error) {
	rctx.init()
	o := buildOptions(opts)

	sid := rctx.newSignal(nil, true, o)
	initialized := false
	body := func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		if !initialized {
			initialized = true
			rctx.signals[sid].value = v
			return nil
		}
		return rctx.assign(sid, v)
	}

	id := rctx.newComputation(body, rctx.owner, o)
	c := rctx.computations[id.idx]
	c.memo = true
	c.signal = sid
	rctx.signals[sid].owner = id

	if err := rctx.execute(id); err != nil {
		rctx.dispose(id)
		return nil, err
	}

	return &Memo[T]{
		signal: &Signal[T]{rctx: rctx, id: sid},
		comp:   &Computation{rctx: rctx, id: id},
	}, nil
}

// Read returns the memoized value and subscribes the calling computation.
func (m *Memo[T]) Read() T {
	return m.signal.Read()
}

func (m *Memo[T]) Peek() T {
	return m.signal.Peek()
}

// Write always fails with ErrReadonlyAssignment.
func (m *Memo[T]) Write(v T) error {
	return m.signal.Write(v)
}

func (m *Memo[T]) State() State {
	return m.signal.State()
}

func (m *Memo[T]) Name() string {
	return m.signal.Name()
}

func (m *Memo[T]) Subscribers() int {
	return m.signal.Subscribers()
}

// Computation returns the computation producing the memo.
func (m *Memo[T]) Computation() *Computation {
	return m.comp
}

// Node returns the memo's output signal.
func (m *Memo[T]) Node() Node {
	return m.signal.Node()
}

func (m *Memo[T]) String() string {
	return m.signal.String()
}

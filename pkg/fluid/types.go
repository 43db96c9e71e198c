package fluid

import (
	"fmt"
	"reflect"
)

// State is the update state of a signal with respect to the active batch.
type State uint8

const (
	Clean   State = iota // value is committed
	Pending              // a new value is buffered until the batch commits
	Stale                // memo output whose computation is scheduled but has not run yet
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Pending:
		return "pending"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Kind tells which arena a Node points into.
type Kind uint8

const (
	KindSignal Kind = iota + 1
	KindComputation
)

func (k Kind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindComputation:
		return "computation"
	default:
		return "unknown"
	}
}

// signals are never recycled, so a plain index is a stable handle
type signalID uint32

// computationID addresses a recycled arena slot. The generation of the slot is
// bumped on every reuse so handles to disposed computations stop resolving.
type computationID struct {
	idx uint32
	gen uint32
}

func (id computationID) valid() bool {
	return id.gen != 0
}

// Node is a handle to a signal or a computation of a ReactiveContext. It is the
// unit of graph traversal: both kinds have parents and children.
type Node struct {
	Kind Kind
	sig  signalID
	comp computationID
}

func signalNode(id signalID) Node {
	return Node{Kind: KindSignal, sig: id}
}

func computationNode(id computationID) Node {
	return Node{Kind: KindComputation, comp: id}
}

// Node implements Noder.
func (n Node) Node() Node {
	return n
}

// String returns an identifier that is unique within the node's context.
func (n Node) String() string {
	switch n.Kind {
	case KindSignal:
		return fmt.Sprintf("s%d", n.sig)
	case KindComputation:
		return fmt.Sprintf("c%d.%d", n.comp.idx, n.comp.gen)
	default:
		return "?"
	}
}

// Noder is implemented by everything that lives in the graph.
type Noder interface {
	Node() Node
}

type options struct {
	name   string
	equals func(a, b any) bool
}

// Option configures a signal, memo, effect or root.
type Option func(*options)

// WithName names a node for logs, errors, metrics and graph exports.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithEquals replaces the equality used to detect conflicting writes inside a
// batch. The default compares values with reflect.DeepEqual.
func WithEquals[T any](equals func(a, b T) bool) Option {
	return func(o *options) {
		o.equals = func(a, b any) bool {
			return equals(as[T](a), as[T](b))
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{equals: reflect.DeepEqual}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

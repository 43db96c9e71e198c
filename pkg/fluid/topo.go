package fluid

import (
	"cmp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// children returns the nodes that depend on n directly: the subscribers of a
// signal, or the output signal of a memo computation.
func (rctx *ReactiveContext) children(n Node) []Node {
	switch n.Kind {
	case KindSignal:
		subs := rctx.byCreation(rctx.signals[n.sig].subs)
		nodes := make([]Node, 0, len(subs))
		for _, id := range subs {
			if rctx.computation(id) != nil {
				nodes = append(nodes, computationNode(id))
			}
		}
		return nodes
	case KindComputation:
		if c := rctx.computation(n.comp); c != nil && c.memo {
			return []Node{signalNode(c.signal)}
		}
	}
	return nil
}

// parents returns the nodes n depends on directly: the producing computation of
// a memo signal, or the sources of a computation.
func (rctx *ReactiveContext) parents(n Node) []Node {
	switch n.Kind {
	case KindSignal:
		if owner := rctx.signals[n.sig].owner; rctx.computation(owner) != nil {
			return []Node{computationNode(owner)}
		}
	case KindComputation:
		c := rctx.computation(n.comp)
		if c == nil {
			return nil
		}
		sources := c.sources.ToSlice()
		slices.Sort(sources)
		nodes := make([]Node, len(sources))
		for i, s := range sources {
			nodes[i] = signalNode(s)
		}
		return nodes
	}
	return nil
}

// topo returns start followed by everything reachable from it, each node
// after all of its reachable parents. Siblings are visited newest first so
// that, once the postorder is reversed, they come out in creation order.
func (rctx *ReactiveContext) topo(start Node) []Node {
	visited := mapset.NewThreadUnsafeSet[Node]()
	var order []Node

	var visit func(n Node)
	visit = func(n Node) {
		if !visited.Add(n) {
			return
		}
		children := rctx.children(n)
		for i := len(children) - 1; i >= 0; i-- {
			visit(children[i])
		}
		order = append(order, n)
	}
	visit(start)

	slices.Reverse(order)
	return order
}

// Parents returns the direct dependencies of n.
func (rctx *ReactiveContext) Parents(n Node) []Node {
	rctx.init()
	return rctx.parents(n)
}

// Children returns the direct dependents of n.
func (rctx *ReactiveContext) Children(n Node) []Node {
	rctx.init()
	return rctx.children(n)
}

// Topo returns n and its transitive dependents in the order a write to n
// would schedule them.
func (rctx *ReactiveContext) Topo(n Node) []Node {
	rctx.init()
	return rctx.topo(n)
}

func compareNodes(a, b Node) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if a.Kind == KindSignal {
		return cmp.Compare(a.sig, b.sig)
	}
	if c := cmp.Compare(a.comp.idx, b.comp.idx); c != 0 {
		return c
	}
	return cmp.Compare(a.comp.gen, b.comp.gen)
}

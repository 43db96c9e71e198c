package fluid

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

type EdgeKind string

const (
	EdgeSubscribes EdgeKind = "subscribes" // signal to a computation reading it
	EdgeProduces   EdgeKind = "produces"   // memo computation to its output
	EdgeOwns       EdgeKind = "owns"       // computation to a child it created
)

type GraphNode struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Memo  bool   `json:"memo,omitempty"`
	State string `json:"state,omitempty"`
	Runs  uint64 `json:"runs,omitempty"`

	node Node
}

type GraphEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Graph is a snapshot of part of a reactive graph, for debugging.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Export snapshots everything reachable from roots through dependents and
// owned children. Nodes are listed in a stable order. Exporting does not
// subscribe anything.
func (rctx *ReactiveContext) Export(roots ...Noder) *Graph {
	rctx.init()
	visited := mapset.NewThreadUnsafeSet[Node]()
	g := &Graph{}

	var visit func(n Node)
	visit = func(n Node) {
		if !visited.Add(n) {
			return
		}
		g.Nodes = append(g.Nodes, rctx.graphNode(n))

		for _, child := range rctx.children(n) {
			kind := EdgeSubscribes
			if n.Kind == KindComputation {
				kind = EdgeProduces
			}
			g.Edges = append(g.Edges, GraphEdge{From: n.String(), To: child.String(), Kind: kind})
			visit(child)
		}

		if n.Kind != KindComputation {
			return
		}
		c := rctx.computation(n.comp)
		if c == nil {
			return
		}
		for _, id := range rctx.byCreation(c.children) {
			child := computationNode(id)
			g.Edges = append(g.Edges, GraphEdge{From: n.String(), To: child.String(), Kind: EdgeOwns})
			visit(child)
		}
	}
	for _, root := range roots {
		visit(root.Node())
	}

	slices.SortFunc(g.Nodes, func(a, b GraphNode) int {
		return compareNodes(a.node, b.node)
	})
	return g
}

func (rctx *ReactiveContext) graphNode(n Node) GraphNode {
	gn := GraphNode{ID: n.String(), Kind: n.Kind.String(), node: n}
	switch n.Kind {
	case KindSignal:
		cell := rctx.signals[n.sig]
		gn.Label = fmt.Sprint(cell.value)
		gn.Memo = cell.readonly
		gn.State = cell.state.String()
	case KindComputation:
		gn.Label = "anonymous"
		if c := rctx.computation(n.comp); c != nil {
			if c.name != "" {
				gn.Label = c.name
			}
			gn.Memo = c.memo
			gn.Runs = c.runs
		}
	}
	return gn
}

// Fingerprint hashes the structure of the graph: node identities, kinds and
// edges. Values, states and run counts are left out, so the fingerprint only
// changes when dependencies or ownership change.
func (g *Graph) Fingerprint() uint64 {
	h := xxhash.New()
	for _, n := range g.Nodes {
		memo := "0"
		if n.Memo {
			memo = "1"
		}
		h.WriteString(n.ID + "\x00" + n.Kind + "\x00" + memo + "\x00")
	}

	edges := slices.Clone(g.Edges)
	slices.SortFunc(edges, func(a, b GraphEdge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		if c := cmp.Compare(a.To, b.To); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})

	var count [8]byte
	binary.LittleEndian.PutUint64(count[:], uint64(len(edges)))
	h.Write(count[:])
	for _, e := range edges {
		h.WriteString(e.From + "\x00" + e.To + "\x00" + string(e.Kind) + "\x00")
	}
	return h.Sum64()
}

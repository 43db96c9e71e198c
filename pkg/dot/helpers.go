// Package dot renders fluid graph snapshots in the Graphviz DOT language.
package dot

//go:generate qtc -file=graph.qtpl

import (
	"strings"

	"github.com/delaneyj/fluid/pkg/fluid"
)

const (
	signalColor      = "#FFFF80"
	computationColor = "#C0C0C0"
)

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escape(s string) string {
	return labelEscaper.Replace(s)
}

func shapeOf(n fluid.GraphNode) string {
	if n.Kind == fluid.KindSignal.String() {
		return "box"
	}
	return "ellipse"
}

func styleOf(n fluid.GraphNode) string {
	if n.Memo && n.Kind == fluid.KindSignal.String() {
		return "filled,dashed"
	}
	return "filled"
}

func colorOf(n fluid.GraphNode) string {
	if n.Kind == fluid.KindSignal.String() {
		return signalColor
	}
	return computationColor
}

package cfg

import (
	"fmt"
	"strings"
)

// ToDot exports g to Graphviz DOT, directly modeled on
// lr.CFSM.CFSM2GraphViz in lr/tables.go: Mrecord-shaped nodes, filled
// lightgray for entry/exit, plain edges labeled with the discriminator.
func (g *Graph) ToDot() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	b.WriteString("graph [splines=true, fontname=Helvetica, fontsize=10];\n")
	b.WriteString("node [shape=Mrecord, style=filled, fontname=Helvetica, fontsize=10];\n")
	b.WriteString("edge [fontname=Helvetica, fontsize=10];\n\n")
	for _, n := range g.Nodes {
		color := "white"
		if n.Kind == Entry || n.Kind == Exit {
			color = "lightgray"
		}
		fmt.Fprintf(&b, "n%03d [fillcolor=%s label=\"{%03d | %s}\"]\n", n.ID, color, n.ID, dotEscape(n.String()))
	}
	for _, n := range g.Nodes {
		for _, e := range g.Successors(n.ID) {
			if e.Label != "" {
				fmt.Fprintf(&b, "n%03d -> n%03d [label=\"%s\"]\n", n.ID, e.Node, dotEscape(e.Label))
			} else {
				fmt.Fprintf(&b, "n%03d -> n%03d\n", n.ID, e.Node)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "{", "\\{")
	s = strings.ReplaceAll(s, "}", "\\}")
	return s
}

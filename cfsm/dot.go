package cfsm

import (
	"fmt"
	"strings"
)

// ToDot exports c to Graphviz DOT, in the same Mrecord/lightgray-accent
// style as cfg.Graph.ToDot and ultimately lr.CFSM.CFSM2GraphViz.
func (c *CFSM) ToDot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", c.Role.Name)
	b.WriteString("graph [splines=true, fontname=Helvetica, fontsize=10];\n")
	b.WriteString("node [shape=Mrecord, style=filled, fontname=Helvetica, fontsize=10];\n")
	b.WriteString("edge [fontname=Helvetica, fontsize=10];\n\n")
	for _, s := range c.States {
		color := "white"
		if s.ID == c.Initial {
			color = "lightgray"
		}
		shape := ""
		if s.Terminal {
			shape = " peripheries=2"
		}
		fmt.Fprintf(&b, "q%03d [fillcolor=%s%s label=\"{%03d}\"]\n", s.ID, color, shape, s.ID)
	}
	for _, s := range c.States {
		for _, t := range c.Out(s.ID) {
			fmt.Fprintf(&b, "q%03d -> q%03d [label=\"%s\"]\n", t.From, t.To, dotEscape(t.Sym.String()))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}

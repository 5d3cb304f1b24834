package ast

import (
	"fmt"
	"strings"
)

// Print renders a Module back to Scribble-subset surface syntax, using
// the arrow form for message transfers. It is the canonical
// pretty-printer needed for Testable Property P1 (parser round-trip
// soundness): re-lexing and re-parsing Print(m)'s output must yield an
// AST isomorphic to m.
func Print(m *Module) string {
	var b strings.Builder
	for _, d := range m.Declarations {
		printDecl(&b, d, 0)
		b.WriteString("\n")
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func printDecl(b *strings.Builder, d Declaration, depth int) {
	switch n := d.(type) {
	case *Import:
		indent(b, depth)
		fmt.Fprintf(b, "import %s;\n", n.Path)
	case *TypeDecl:
		indent(b, depth)
		if n.Expr.Name == "" {
			fmt.Fprintf(b, "type %s;\n", n.Name)
		} else {
			fmt.Fprintf(b, "type %s as %s;\n", n.Name, n.Expr.String())
		}
	case *ProtocolDecl:
		indent(b, depth)
		kw := "local protocol"
		if n.Global {
			kw = "global protocol"
		}
		fmt.Fprintf(b, "%s %s", kw, n.Name)
		if len(n.TypeParams) > 0 {
			fmt.Fprintf(b, "<%s>", strings.Join(n.TypeParams, ", "))
		}
		b.WriteString("(")
		for i, r := range n.Roles {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "role %s", r.Name)
		}
		b.WriteString(") {\n")
		printBody(b, n.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	}
}

func printBody(b *strings.Builder, body []Interaction, depth int) {
	for _, it := range body {
		printInteraction(b, it, depth)
	}
}

func printInteraction(b *strings.Builder, it Interaction, depth int) {
	switch n := it.(type) {
	case *MessageTransfer:
		indent(b, depth)
		to := make([]string, len(n.To))
		for i, r := range n.To {
			to[i] = r.Name
		}
		fmt.Fprintf(b, "%s -> %s: %s;\n", n.From.Name, strings.Join(to, ", "), n.Message.String())
	case *Choice:
		indent(b, depth)
		fmt.Fprintf(b, "choice at %s {\n", n.At.Name)
		for i, branch := range n.Branches {
			if i > 0 {
				indent(b, depth)
				b.WriteString("} or {\n")
			}
			printBody(b, branch, depth+1)
		}
		indent(b, depth)
		b.WriteString("}\n")
	case *Parallel:
		indent(b, depth)
		b.WriteString("par {\n")
		for i, branch := range n.Branches {
			if i > 0 {
				indent(b, depth)
				b.WriteString("} and {\n")
			}
			printBody(b, branch, depth+1)
		}
		indent(b, depth)
		b.WriteString("}\n")
	case *Recursion:
		indent(b, depth)
		fmt.Fprintf(b, "rec %s {\n", n.Label)
		printBody(b, n.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	case *Continue:
		indent(b, depth)
		fmt.Fprintf(b, "continue %s;\n", n.Label)
	case *Do:
		indent(b, depth)
		roles := make([]string, len(n.Roles))
		for i, r := range n.Roles {
			roles[i] = r.Name
		}
		targs := ""
		if len(n.TypeArgs) > 0 {
			ts := make([]string, len(n.TypeArgs))
			for i, t := range n.TypeArgs {
				ts[i] = t.String()
			}
			targs = "<" + strings.Join(ts, ", ") + ">"
		}
		fmt.Fprintf(b, "do %s%s(%s);\n", n.Protocol, targs, strings.Join(roles, ", "))
	case *UnsupportedConstruct:
		indent(b, depth)
		fmt.Fprintf(b, "%s;\n", n.Keyword)
	}
}

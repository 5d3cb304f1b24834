package cfg

import (
	"fmt"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/diag"
)

// sub is a single-entry/single-exit fragment under construction, per the
// "each rule produces a sub-CFG with a single entry and single exit"
// translation scheme (spec §4.2).
type sub struct {
	entry, exit int
}

type builder struct {
	g        *Graph
	roles    map[string]bool
	recStack []recFrame
	parCount int
	diags    []diag.Diagnostic
}

type recFrame struct {
	label   string
	entryID int
}

// Build lowers one global/local protocol declaration into a Graph, plus
// diagnostics. Well-formedness preconditions checked at construction time
// (spec §4.2): declared-role membership, continue scoping, choice/parallel
// arity, duplicate roles. A nil Graph is returned when a structural error
// (e.g. an unresolved continue) prevents building a coherent CFG for this
// declaration.
func Build(p *ast.ProtocolDecl) (*Graph, []diag.Diagnostic) {
	b := &builder{g: NewGraph(p.Name, p.Roles), roles: map[string]bool{}}
	for _, r := range p.Roles {
		if b.roles[r.Name] {
			b.diags = append(b.diags, diag.New(diag.DuplicateRole, p.Loc(), "duplicate role %q in protocol %s", r.Name, p.Name))
			continue
		}
		b.roles[r.Name] = true
	}

	entryID := b.g.AddNode(&Node{Kind: Entry, Loc: p.Loc()})
	exitID := b.g.AddNode(&Node{Kind: Exit, Loc: p.Loc()})
	b.g.Entry = entryID
	b.g.Exit = exitID

	body := b.buildSeq(p.Body)
	b.g.AddEdge(entryID, body.entry, "")
	b.g.AddEdge(body.exit, exitID, "")

	if len(b.diags) > 0 && hasUnresolvedContinue(b.diags) {
		return nil, b.diags
	}
	return b.g, b.diags
}

func hasUnresolvedContinue(ds []diag.Diagnostic) bool {
	for _, d := range ds {
		if d.Kind == diag.DanglingContinue {
			return true
		}
	}
	return false
}

func (b *builder) errf(kind diag.Kind, loc mpst.SourceLocation, format string, args ...interface{}) {
	b.diags = append(b.diags, diag.New(kind, loc, format, args...))
}

func (b *builder) checkRole(loc mpst.SourceLocation, r mpst.Role) {
	if !b.roles[r.Name] {
		b.errf(diag.UndeclaredRole, loc, "role %q is not declared in this protocol", r.Name)
	}
}

// buildSeq lowers a sequence of interactions: translate each, link exit
// of previous to entry of next (spec §4.2 "Sequence").
func (b *builder) buildSeq(body []ast.Interaction) sub {
	if len(body) == 0 {
		// an empty branch body lowers to a single pass-through action node
		// carrying no message; the projector treats it as an observer-only
		// (tau) step for every role.
		id := b.g.AddNode(&Node{Kind: Action})
		return sub{id, id}
	}
	var first sub
	var prevExit int
	for i, it := range body {
		s := b.buildInteraction(it)
		if i == 0 {
			first.entry = s.entry
		} else {
			b.g.AddEdge(prevExit, s.entry, "")
		}
		prevExit = s.exit
	}
	first.exit = prevExit
	return first
}

func (b *builder) buildInteraction(it ast.Interaction) sub {
	switch n := it.(type) {
	case *ast.MessageTransfer:
		return b.buildMessageTransfer(n)
	case *ast.Choice:
		return b.buildChoice(n)
	case *ast.Parallel:
		return b.buildParallel(n)
	case *ast.Recursion:
		return b.buildRecursion(n)
	case *ast.Continue:
		return b.buildContinue(n)
	case *ast.Do:
		return b.buildDo(n)
	case *ast.UnsupportedConstruct:
		b.errf(diag.UnsupportedConstruct, n.Loc(), "construct %q is accepted syntactically but not lowered", n.Keyword)
		id := b.g.AddNode(&Node{Kind: Action, From: mpst.Role{}, Loc: n.Loc()})
		return sub{id, id}
	default:
		id := b.g.AddNode(&Node{Kind: Action, Loc: it.Loc()})
		return sub{id, id}
	}
}

// buildMessageTransfer lowers p -> q1,q2: l(T). Per the Open Question on
// multicast lowering (resolved in DESIGN.md): a multi-receiver node
// carrying the full receiver set, which project.Project treats
// equivalently to the sequential per-receiver lowering.
func (b *builder) buildMessageTransfer(n *ast.MessageTransfer) sub {
	b.checkRole(n.Loc(), n.From)
	for _, to := range n.To {
		b.checkRole(n.Loc(), to)
	}
	id := b.g.AddNode(&Node{Kind: Action, From: n.From, To: n.To, Msg: n.Message, Loc: n.Loc()})
	return sub{id, id}
}

func (b *builder) buildChoice(n *ast.Choice) sub {
	b.checkRole(n.Loc(), n.At)
	if len(n.Branches) < 2 {
		b.errf(diag.EmptyChoice, n.Loc(), "choice at %s must have at least 2 branches", n.At.Name)
	}
	branchID := b.g.AddNode(&Node{Kind: Branch, At: n.At, Loc: n.Loc()})
	mergeID := b.g.AddNode(&Node{Kind: Merge, Loc: n.Loc()})
	for i, branch := range n.Branches {
		s := b.buildSeq(branch)
		label := firstActionLabel(branch)
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		b.g.AddEdge(branchID, s.entry, label)
		b.g.AddEdge(s.exit, mergeID, "")
	}
	return sub{branchID, mergeID}
}

func (b *builder) buildParallel(n *ast.Parallel) sub {
	if len(n.Branches) < 2 {
		b.errf(diag.EmptyParallel, n.Loc(), "par must have at least 2 branches")
	}
	b.parCount++
	id := b.parCount
	forkID := b.g.AddNode(&Node{Kind: Fork, ParID: id, Loc: n.Loc()})
	joinID := b.g.AddNode(&Node{Kind: Join, ParID: id, Loc: n.Loc()})
	for _, branch := range n.Branches {
		s := b.buildSeq(branch)
		b.g.AddEdge(forkID, s.entry, "")
		b.g.AddEdge(s.exit, joinID, "")
	}
	return sub{forkID, joinID}
}

func (b *builder) buildRecursion(n *ast.Recursion) sub {
	for _, f := range b.recStack {
		if f.label == n.Label {
			b.errf(diag.DuplicateRecursionLabel, n.Loc(), "recursion label %q already active in an enclosing scope", n.Label)
		}
	}
	entryID := b.g.AddNode(&Node{Kind: RecEntry, Label: n.Label, Loc: n.Loc()})
	b.recStack = append(b.recStack, recFrame{label: n.Label, entryID: entryID})
	s := b.buildSeq(n.Body)
	b.recStack = b.recStack[:len(b.recStack)-1]
	b.g.AddEdge(entryID, s.entry, "")
	return sub{entryID, s.exit}
}

func (b *builder) buildContinue(n *ast.Continue) sub {
	id := b.g.AddNode(&Node{Kind: Continue, Label: n.Label, Loc: n.Loc()})
	target := -1
	for i := len(b.recStack) - 1; i >= 0; i-- {
		if b.recStack[i].label == n.Label {
			target = b.recStack[i].entryID
			break
		}
	}
	if target < 0 {
		b.errf(diag.DanglingContinue, n.Loc(), "continue %q does not resolve to an enclosing rec", n.Label)
	} else {
		b.g.Node(id).BackTarget = target
		b.g.AddEdge(id, target, "")
	}
	// A continue node has no "normal" successor (control loops back), but
	// the translation scheme requires single entry/exit per fragment; its
	// exit is only reachable through the back-edge so sequencing after it
	// is dead code, harmlessly linked for well-formedness of the fragment.
	return sub{id, id}
}

func (b *builder) buildDo(n *ast.Do) sub {
	for _, r := range n.Roles {
		b.checkRole(n.Loc(), r)
	}
	id := b.g.AddNode(&Node{Kind: SubInvoke, Protocol: n.Protocol, RoleArgs: n.Roles, Loc: n.Loc()})
	return sub{id, id}
}

// firstActionLabel extracts the discriminating label of a choice branch
// for CFG edge labeling: the message label of the branch's first
// interaction when that is a MessageTransfer, otherwise "" (buildChoice
// then uses a positional placeholder). Package verify does not read these
// labels; its determinism check derives its own signature from the graph.
func firstActionLabel(body []ast.Interaction) string {
	for _, it := range body {
		switch n := it.(type) {
		case *ast.MessageTransfer:
			return n.Message.Label
		case *ast.Choice:
			// a nested choice as the very first interaction has no single
			// first label; fall through to a structural placeholder.
			return ""
		default:
			return ""
		}
	}
	return ""
}

/*
Package project implements the CFG -> per-role CFSM projector (spec
§4.4): a structural walk over one cfg.Graph, memoized per CFG node id,
producing one cfsm.CFSM per declared role.

Design note on branch vs. fork: a choice's branches are a genuine
runtime alternative — exactly one is taken, and every role (chooser and
bystander alike) projects the Branch node to a τ fan-out over all of
them, reconverging at the shared Merge node the way package cfg wires
it (see cfg/build.go's buildChoice). That uniform τ-fan-out treatment
is wrong for Fork, though: a `par` node's arms all execute, and a role
that appears in more than one arm must take *all* of its actions across
them, not choose one arm and skip the rest. Fork projection instead
classifies each arm by whether localRole appears in it at all:
  - zero arms involve localRole: thread straight through via τ to
    whichever arm reaches the shared Join (content doesn't matter, any
    arm not involving the role projects to all-τ anyway).
  - exactly one arm involves localRole: project only that arm; its
    mandatory actions are never optional.
  - more than one arm involves localRole (e.g. a coordinator sending to
    two participants in disjoint parallel branches): build the shuffle
    product of each arm's local fragment automaton, so every possible
    interleaving of the role's own actions across the arms is
    represented, converging to the shared Join only once every arm's
    fragment has reached it. See projectFork/interleaveArms.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package project

import (
	"fmt"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/registry"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.project")
}

// Project computes the Role -> CFSM map for g (spec §4.4 "Output"). Zero
// or negative maxDepth falls back to config.DefaultCallStackMax, bounding
// the static unrolling of `do` sub-invocation chains.
func Project(g *cfg.Graph, reg *registry.Registry, maxDepth int) (cfsm.Map, []diag.Diagnostic) {
	if maxDepth <= 0 {
		maxDepth = config.DefaultCallStackMax
	}
	out := cfsm.Map{}
	var allDiags []diag.Diagnostic
	for _, role := range g.Roles {
		c, diags := projectRole(role, g, reg, maxDepth)
		out[role.Name] = c
		allDiags = append(allDiags, diags...)
	}
	tracer().Infof("projected %s: %d roles, %d diagnostics", g.Protocol, len(out), len(allDiags))
	return out, allDiags
}

// pw carries the mutable state of one role's projection shared across
// every walker spawned for it (possibly nested, via `do` or `par`
// interleaving, across several CFGs).
type pw struct {
	reg      *registry.Registry
	maxDepth int
	topRole  mpst.Role
	diags    []diag.Diagnostic
}

func projectRole(role mpst.Role, g *cfg.Graph, reg *registry.Registry, maxDepth int) (*cfsm.CFSM, []diag.Diagnostic) {
	c := cfsm.New(role)
	pw := &pw{reg: reg, maxDepth: maxDepth, topRole: role}
	w := newWalker(pw, g, c, role, nil, -1, -1)
	c.Initial = w.walk(g.Entry)
	return c, pw.diags
}

// walker projects one CFG into a target CFSM c, from the perspective of
// localRole — the name this role goes by inside g's own role namespace.
// Two distinct stopping modes are supported, selected by stopAt:
//   - stopAt < 0: this is a "full" walk from a protocol's Entry down to
//     its Exit. continuation is the CFSM state the Exit node should
//     τ-link into (or, if continuation < 0 too, Exit marks the CFSM's
//     genuine terminal state — only true for the outermost call).
//   - stopAt >= 0: this is an arm *fragment* walk (see interleaveArms)
//     that stops the moment CFG node id stopAt (a shared Join) is
//     reached, marking that point as the fragment's own local terminal
//     state instead of continuing past it.
type walker struct {
	pw           *pw
	g            *cfg.Graph
	c            *cfsm.CFSM
	localRole    mpst.Role
	path         []string
	memo         map[int]int
	recLabels    map[string]int
	stopAt       int
	continuation int
}

func newWalker(pw *pw, g *cfg.Graph, c *cfsm.CFSM, localRole mpst.Role, path []string, stopAt, continuation int) *walker {
	return &walker{
		pw: pw, g: g, c: c, localRole: localRole, path: path,
		memo: map[int]int{}, recLabels: map[string]int{},
		stopAt: stopAt, continuation: continuation,
	}
}

func (w *walker) walk(n int) int {
	if id, ok := w.memo[n]; ok {
		return id
	}
	if w.stopAt >= 0 && n == w.stopAt {
		id := w.c.AddState(n)
		w.memo[n] = id
		w.c.MarkTerminal(id)
		return id
	}
	node := w.g.Node(n)
	switch node.Kind {
	case cfg.Entry:
		id := w.walk(single(w.g, n))
		w.memo[n] = id
		return id
	case cfg.Exit:
		id := w.c.AddState(n)
		w.memo[n] = id
		if w.continuation < 0 {
			w.c.MarkTerminal(id)
		} else {
			w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, w.continuation)
		}
		return id
	case cfg.RecEntry:
		id := w.c.AddState(n)
		w.memo[n] = id
		w.recLabels[node.Label] = id
		next := w.walk(single(w.g, n))
		w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		return id
	case cfg.Continue:
		target, ok := w.recLabels[node.Label]
		if !ok {
			w.pw.diags = append(w.pw.diags, diag.New(diag.Internal, node.Loc, "continue %q unresolved during projection", node.Label))
			id := w.c.AddState(n)
			w.c.MarkTerminal(id)
			w.memo[n] = id
			return id
		}
		w.memo[n] = target
		return target
	case cfg.Action:
		id := w.c.AddState(n)
		w.memo[n] = id
		next := w.walk(single(w.g, n))
		emitAction(w.c, id, next, node, w.localRole)
		return id
	case cfg.Branch:
		id := w.c.AddState(n)
		w.memo[n] = id
		for _, e := range w.g.Successors(n) {
			next := w.walk(e.Node)
			w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		}
		return id
	case cfg.Fork:
		id := w.c.AddState(n)
		w.memo[n] = id
		next := w.pw.projectFork(w, n)
		w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		return id
	case cfg.Merge, cfg.Join:
		id := w.walk(single(w.g, n))
		w.memo[n] = id
		return id
	case cfg.SubInvoke:
		id := w.c.AddState(n)
		w.memo[n] = id
		next := w.walk(single(w.g, n))
		w.pw.spliceSubInvoke(w, id, next, node)
		return id
	default:
		id := w.c.AddState(n)
		w.memo[n] = id
		return id
	}
}

// single returns the (sole, for all non-branch/fork node kinds) CFG
// successor of n.
func single(g *cfg.Graph, n int) int {
	succs := g.Successors(n)
	if len(succs) == 0 {
		return n
	}
	return succs[0].Node
}

// emitAction projects one action CFG node for localRole into c: a send
// if localRole originates it (chained per receiver for a multicast, per
// the multicast-lowering Open Question decision in DESIGN.md), a
// receive if localRole is (one of) its receivers, otherwise a silent τ
// step.
func emitAction(c *cfsm.CFSM, id, next int, node *cfg.Node, localRole mpst.Role) {
	if node.From.IsZero() {
		c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		return
	}
	if localRole == node.From {
		cur := id
		for i, to := range node.To {
			sym := cfsm.Symbol{Kind: cfsm.Send, Peer: to, Msg: node.Msg}
			if i == len(node.To)-1 {
				c.AddTransition(cur, sym, next)
				return
			}
			mid := c.AddState(node.ID)
			c.AddTransition(cur, sym, mid)
			cur = mid
		}
		return
	}
	for _, to := range node.To {
		if to == localRole {
			c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Recv, Peer: node.From, Msg: node.Msg}, next)
			return
		}
	}
	c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
}

// findJoin walks forward from an arm's entry until it reaches the
// shared Join CFG node that every arm of the same Fork funnels into
// (cfg/build.go's buildParallel wires every branch exit to one common
// join id), so starting from any single arm finds the same node.
func findJoin(g *cfg.Graph, start int) int {
	visited := map[int]bool{}
	stack := []int{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if g.Node(cur).Kind == cfg.Join {
			return cur
		}
		for _, e := range g.Successors(cur) {
			stack = append(stack, e.Node)
		}
	}
	return -1
}

// armHasRole reports whether role appears as sender, receiver, or `do`
// role argument anywhere within the arm starting at start, stopping the
// search at joinID so it never wanders into a sibling arm's territory
// (every arm funnels into the same joinID, so this is the correct
// boundary regardless of which arm is being scanned).
func armHasRole(g *cfg.Graph, start, joinID int, role mpst.Role) bool {
	visited := map[int]bool{}
	stack := []int{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] || cur == joinID {
			continue
		}
		visited[cur] = true
		node := g.Node(cur)
		switch node.Kind {
		case cfg.Action:
			if !node.From.IsZero() {
				if node.From == role {
					return true
				}
				for _, to := range node.To {
					if to == role {
						return true
					}
				}
			}
		case cfg.SubInvoke:
			for _, r := range node.RoleArgs {
				if r == role {
					return true
				}
			}
		}
		for _, e := range g.Successors(cur) {
			stack = append(stack, e.Node)
		}
	}
	return false
}

// projectFork resolves one Fork node for w.localRole, returning the CFSM
// state id to transition into once the parallel composition is done
// (already wired through to whatever follows the shared Join within w).
func (pw *pw) projectFork(w *walker, forkNode int) int {
	succs := w.g.Successors(forkNode)
	if len(succs) == 0 {
		return w.walk(forkNode)
	}
	arms := make([]int, len(succs))
	for i, e := range succs {
		arms[i] = e.Node
	}
	joinID := findJoin(w.g, arms[0])

	var active []int
	for _, a := range arms {
		if armHasRole(w.g, a, joinID, w.localRole) {
			active = append(active, a)
		}
	}

	switch len(active) {
	case 0:
		// localRole is a bystander to every arm: any arm walked this way
		// projects to all-τ, so which one we pick is arbitrary.
		return w.walk(arms[0])
	case 1:
		// localRole's mandatory actions live in exactly this arm; walking
		// only it (not offering the other arms as alternatives) is what
		// keeps them mandatory instead of skippable.
		return w.walk(active[0])
	default:
		return pw.interleaveArms(w, active, joinID)
	}
}

// armFragment is a small self-contained automaton capturing localRole's
// view of one parallel arm, stopping at the shared join node (marked
// Terminal there) rather than projecting all the way to the protocol's
// Exit.
type armFragment struct {
	c       *cfsm.CFSM
	initial int
}

// interleaveArms builds the shuffle product of every active arm's
// fragment: a product state is a tuple of per-fragment positions, final
// once every fragment has reached its local terminal (the shared join).
// From a non-final product state, any arm that hasn't yet reached its
// terminal may fire its next enabled transition independently of the
// others — exactly the asynchronous-interleaving semantics `par`
// requires, as opposed to Branch's "choose one" semantics. The product
// is memoized by tuple so cycles within an arm (a `rec`/`continue` that
// doesn't yet involve any other active arm) terminate normally.
func (pw *pw) interleaveArms(w *walker, arms []int, joinID int) int {
	frags := make([]*armFragment, len(arms))
	for i, a := range arms {
		fc := cfsm.New(w.localRole)
		fw := newWalker(pw, w.g, fc, w.localRole, w.path, joinID, -1)
		initial := fw.walk(a)
		frags[i] = &armFragment{c: fc, initial: initial}
	}
	finalState := w.walk(joinID)

	productMemo := map[string]int{}
	var build func(cur []int) int
	build = func(cur []int) int {
		key := fmt.Sprint(cur)
		if id, ok := productMemo[key]; ok {
			return id
		}
		allDone := true
		for i, s := range cur {
			if !frags[i].c.State(s).Terminal {
				allDone = false
				break
			}
		}
		if allDone {
			productMemo[key] = finalState
			return finalState
		}
		id := w.c.AddState(-1)
		productMemo[key] = id
		for i, s := range cur {
			if frags[i].c.State(s).Terminal {
				continue // this arm already finished; frozen until the rest catch up
			}
			for _, t := range frags[i].c.Out(s) {
				nxt := append([]int{}, cur...)
				nxt[i] = t.To
				w.c.AddTransition(id, t.Sym, build(nxt))
			}
		}
		return id
	}

	initial := make([]int, len(frags))
	for i, f := range frags {
		initial[i] = f.initial
	}
	return build(initial)
}

// spliceSubInvoke resolves a `do P(r~)` node against the registry and
// projects P into w's own target CFSM (w.c), with τ boundaries on entry
// (here) and exit (the continuation parameter of the nested walker).
func (pw *pw) spliceSubInvoke(w *walker, id, next int, node *cfg.Node) {
	subG, ok := pw.reg.Lookup(node.Protocol)
	if !ok {
		pw.diags = append(pw.diags, diag.New(diag.UnresolvedSubProtocol, node.Loc, "protocol %q referenced by do is not registered", node.Protocol))
		w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		return
	}
	if len(subG.Roles) != len(node.RoleArgs) {
		pw.diags = append(pw.diags, diag.New(diag.RoleArityMismatch, node.Loc, "do %s expects %d role arguments, got %d", node.Protocol, len(subG.Roles), len(node.RoleArgs)))
		w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		return
	}
	if len(w.path) >= pw.maxDepth || containsString(w.path, node.Protocol) {
		pw.diags = append(pw.diags, diag.New(diag.CallStackOverflow, node.Loc, "do %s: static sub-protocol chain exceeds the configured maximum depth", node.Protocol))
		w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, next)
		return
	}
	mapping := make(map[string]mpst.Role, len(subG.Roles))
	for i, declared := range subG.Roles {
		mapping[declared.Name] = node.RoleArgs[i]
	}
	var subLocal mpst.Role
	for _, declared := range subG.Roles {
		if mapping[declared.Name] == pw.topRole {
			subLocal = declared
			break
		}
	}
	subWalker := newWalker(pw, subG, w.c, subLocal, append(append([]string{}, w.path...), node.Protocol), -1, next)
	subEntry := subWalker.walk(subG.Entry)
	w.c.AddTransition(id, cfsm.Symbol{Kind: cfsm.Tau}, subEntry)
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

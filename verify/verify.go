/*
Package verify checks the four well-formedness properties of spec §4.3
over one cfg.Graph: connectedness, determinism of choice, absence of
parallel races, and (derived) bounded progress.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package verify

import (
	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/diag"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.verify")
}

// Result is the verifier's output (spec §6 API surface table).
type Result struct {
	Connected     bool
	Deterministic bool
	RaceFree      bool
	Errors        []diag.Diagnostic
	Warnings      []diag.Diagnostic
}

// WellFormed runs the connectedness, choice-determinism and no-race checks
// over g; bounded progress follows from those three and is not checked
// separately.
func WellFormed(g *cfg.Graph) Result {
	var r Result
	r.Connected = checkConnectedness(g, &r)
	r.Deterministic = checkChoiceDeterminism(g, &r)
	r.RaceFree = checkNoRace(g, &r)
	// Progress is guaranteed by the above three and is not separately
	// implemented (spec §4.3 table, "Progress (bounded)" row).
	tracer().Infof("verify %s: connected=%v deterministic=%v raceFree=%v errors=%d warnings=%d",
		g.Protocol, r.Connected, r.Deterministic, r.RaceFree, len(r.Errors), len(r.Warnings))
	return r
}

func (r *Result) err(d diag.Diagnostic) { r.Errors = append(r.Errors, d) }
func (r *Result) warn(d diag.Diagnostic) { r.Warnings = append(r.Warnings, d) }

// --- Connectedness ----------------------------------------------------

func checkConnectedness(g *cfg.Graph, r *Result) bool {
	mentioned := map[string]bool{}
	uf := newUnionFind()
	for _, role := range g.Roles {
		uf.add(role.Name)
	}
	g.EachReachable(func(n *cfg.Node) {
		if n.Kind != cfg.Action || n.From.IsZero() {
			return
		}
		mentioned[n.From.Name] = true
		for _, to := range n.To {
			mentioned[to.Name] = true
			uf.union(n.From.Name, to.Name)
		}
	})
	ok := true
	for _, role := range g.Roles {
		if !mentioned[role.Name] {
			r.warn(diag.Warn(diag.UnusedRole, mpst.SourceLocation{}, "role %q is declared but never sends or receives", role.Name))
		}
	}
	if len(g.Roles) > 1 {
		root := ""
		for _, role := range g.Roles {
			rt := uf.find(role.Name)
			if root == "" {
				root = rt
			} else if rt != root {
				ok = false
			}
		}
	}
	if !ok {
		r.err(diag.New(diag.Disconnected, mpst.SourceLocation{}, "protocol %s is not connected: roles fall into disjoint communication components", g.Protocol))
	}
	return ok
}

type unionFind struct{ parent map[string]string }

func newUnionFind() *unionFind { return &unionFind{parent: map[string]string{}} }

func (u *unionFind) add(x string) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
}

func (u *unionFind) find(x string) string {
	u.add(x)
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// --- Determinism of choice ---------------------------------------------

type signature struct {
	channel mpst.Channel
	label   string
}

func checkChoiceDeterminism(g *cfg.Graph, r *Result) bool {
	ok := true
	g.EachReachable(func(n *cfg.Node) {
		if n.Kind != cfg.Branch {
			return
		}
		seen := map[signature]bool{}
		for _, e := range g.Successors(n.ID) {
			sig, found := firstActionSignature(g, e.Node, map[int]bool{})
			if !found {
				continue
			}
			if seen[sig] {
				r.err(diag.New(diag.AmbiguousChoice, n.Loc, "choice at %s has two branches starting with %s on channel %s", n.At.Name, sig.label, sig.channel))
				ok = false
			}
			seen[sig] = true
		}
	})
	return ok
}

// firstActionSignature finds the (channel, label) of the first Action
// node reachable from id without crossing a Merge (the branch's own end),
// to characterize what an observer first sees on this branch.
func firstActionSignature(g *cfg.Graph, id int, visited map[int]bool) (signature, bool) {
	if visited[id] {
		return signature{}, false
	}
	visited[id] = true
	n := g.Node(id)
	switch n.Kind {
	case cfg.Action:
		if n.From.IsZero() {
			for _, e := range g.Successors(id) {
				if sig, ok := firstActionSignature(g, e.Node, visited); ok {
					return sig, true
				}
			}
			return signature{}, false
		}
		to := mpst.Role{}
		if len(n.To) > 0 {
			to = n.To[0]
		}
		return signature{channel: mpst.Channel{From: n.From, To: to}, label: n.Msg.Label}, true
	case cfg.Merge:
		return signature{}, false
	default:
		for _, e := range g.Successors(id) {
			if sig, ok := firstActionSignature(g, e.Node, visited); ok {
				return sig, true
			}
		}
	}
	return signature{}, false
}

// --- No race ------------------------------------------------------------

func checkNoRace(g *cfg.Graph, r *Result) bool {
	ok := true
	parBranchChannels := map[int][]map[mpst.Channel]bool{}
	g.EachReachable(func(n *cfg.Node) {
		if n.Kind != cfg.Fork {
			return
		}
		var branches []map[mpst.Channel]bool
		for _, e := range g.Successors(n.ID) {
			chset := map[mpst.Channel]bool{}
			collectChannels(g, e.Node, n.ParID, map[int]bool{}, chset)
			branches = append(branches, chset)
		}
		parBranchChannels[n.ParID] = branches
	})
	for parID, branches := range parBranchChannels {
		for i := 0; i < len(branches); i++ {
			for j := i + 1; j < len(branches); j++ {
				for ch := range branches[i] {
					if branches[j][ch] {
						r.err(diag.New(diag.Race, mpst.SourceLocation{}, "par #%d has two branches both using channel %s", parID, ch))
						ok = false
					}
				}
			}
		}
	}
	return ok
}

// collectChannels walks from id until the matching Join(parID), collecting
// every channel used by an Action node along the way. It walks through any
// nested Fork/Join of a different parID without stopping — those
// channels still belong to this branch, since the spec's race rule is
// "two distinct branches [of the same par] contain an action on the same
// directed channel".
func collectChannels(g *cfg.Graph, id, parID int, visited map[int]bool, out map[mpst.Channel]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	n := g.Node(id)
	if n.Kind == cfg.Join && n.ParID == parID {
		return
	}
	if n.Kind == cfg.Action && !n.From.IsZero() {
		for _, to := range n.To {
			out[mpst.Channel{From: n.From, To: to}] = true
		}
	}
	for _, e := range g.Successors(id) {
		collectChannels(g, e.Node, parID, visited, out)
	}
}

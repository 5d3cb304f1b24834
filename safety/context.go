package safety

import (
	"github.com/cnf/structhash"
	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfsm"
	"golang.org/x/exp/slices"
)

// Context is one typing context Γ: for every role, the set of CFSM
// states reachable from its "real" current state by τ-transitions alone
// (the frontier — see ApplyTauClosure), plus the per-channel FIFO
// buffers (spec §3 "typing context Γ").
//
// Frontier is a set, not a single state, because this module's projector
// represents a choice's internal alternatives as τ fan-out (see package
// project's doc comment): τ-closure over such a branch point yields
// several possible next real states, exactly the nondeterministic
// internal-choice semantics the spec describes.
type Context struct {
	Frontier map[string][]int
	Buffers  map[mpst.Channel][]mpst.Message
}

func NewContext() *Context {
	return &Context{Frontier: map[string][]int{}, Buffers: map[mpst.Channel][]mpst.Message{}}
}

// Clone deep-copies ctx so a BFS step can mutate the copy freely.
func (ctx *Context) Clone() *Context {
	out := NewContext()
	for r, states := range ctx.Frontier {
		cp := make([]int, len(states))
		copy(cp, states)
		out.Frontier[r] = cp
	}
	for ch, msgs := range ctx.Buffers {
		cp := make([]mpst.Message, len(msgs))
		copy(cp, msgs)
		out.Buffers[ch] = cp
	}
	return out
}

// CanonicalKey produces a stable, order-independent hash of ctx for the
// BFS visited-set, via structhash — exactly as lr/earley/earley.go hashes
// its own (item, state) search-node keys for memoized Earley item-set
// dedup, generalized here to a typing-context key.
func (ctx *Context) CanonicalKey() string {
	roles := make([]string, 0, len(ctx.Frontier))
	for r := range ctx.Frontier {
		roles = append(roles, r)
	}
	slices.Sort(roles)
	frontier := make(map[string][]int, len(roles))
	for _, r := range roles {
		states := append([]int{}, ctx.Frontier[r]...)
		slices.Sort(states)
		frontier[r] = states
	}
	channels := make([]string, 0, len(ctx.Buffers))
	chanByKey := map[string]mpst.Channel{}
	for ch := range ctx.Buffers {
		k := ch.String()
		channels = append(channels, k)
		chanByKey[k] = ch
	}
	slices.Sort(channels)
	buffers := make(map[string][]string, len(channels))
	for _, k := range channels {
		ch := chanByKey[k]
		labels := make([]string, len(ctx.Buffers[ch]))
		for i, m := range ctx.Buffers[ch] {
			labels[i] = m.Label
		}
		buffers[k] = labels
	}
	h, err := structhash.Hash(struct {
		frontier map[string][]int
		buffers  map[string][]string
	}{
		frontier: frontier,
		buffers:  buffers,
	}, 1)
	if err != nil { // structhash.Hash only errors on unsupported field kinds
		panic(err)
	}
	return h
}

// TauClosureOf computes the full τ-reachable state set from start
// (start included), an NFA-style epsilon closure over c's τ transitions.
func TauClosureOf(c *cfsm.CFSM, start int) []int {
	seen := map[int]bool{start: true}
	stack := []int{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range c.TauSuccessors(cur) {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// ApplyTauClosure advances every role's frontier to its full τ-closure,
// in place, per spec §4.5: "repeat — for each role r, if r has an
// enabled τ ... advance r along it; stop when no τ is enabled anywhere."
// A single closure pass over the full NFA-style epsilon set already
// reaches the fixed point, since TauClosureOf itself explores
// transitively.
func ApplyTauClosure(ctx *Context, cfsms cfsm.Map) {
	for role, states := range ctx.Frontier {
		c := cfsms[role]
		merged := map[int]bool{}
		for _, s := range states {
			for _, r := range TauClosureOf(c, s) {
				merged[r] = true
			}
		}
		out := make([]int, 0, len(merged))
		for s := range merged {
			out = append(out, s)
		}
		slices.Sort(out)
		ctx.Frontier[role] = out
	}
}

// InitialContext builds Γ0: every role's frontier is the τ-closure of
// its CFSM's initial state, with empty buffers.
func InitialContext(cfsms cfsm.Map) *Context {
	ctx := NewContext()
	for role, c := range cfsms {
		ctx.Frontier[role] = TauClosureOf(c, c.Initial)
	}
	return ctx
}

// IsFinal reports whether every role's frontier *contains* a terminal
// state (not: consists entirely of one) and no buffer holds an
// unconsumed message. A pure-observer role — one never addressed by a
// choice, like an auditor cc'd on a branch it doesn't decide — projects
// to an all-τ fan-out: its frontier is the τ-closure of its initial
// state, which permanently holds the non-terminal interior states of
// every branch alongside the terminal exit, since the role never takes
// an observable step to narrow it down. Requiring *every* state in the
// frontier to be terminal would make such a role's configuration look
// stuck forever even though it can silently reach the exit; requiring
// only that a terminal state be reachable matches the weak-transition
// semantics of Γ (spec §4.5 P5: τ-closure must not change which
// observable configurations are reachable).
func IsFinal(ctx *Context, cfsms cfsm.Map) bool {
	for role, states := range ctx.Frontier {
		c := cfsms[role]
		reachesTerminal := false
		for _, s := range states {
			if c.State(s).Terminal {
				reachesTerminal = true
				break
			}
		}
		if !reachesTerminal {
			return false
		}
	}
	for _, msgs := range ctx.Buffers {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

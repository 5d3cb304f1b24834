/*
Package cfsm is the per-role Communicating Finite State Machine model
produced by package project and consumed by packages safety and sim
(spec §4.4, §4.5). A CFSM is, like cfg.Graph, an arena of states indexed
by stable integer ids with ordered adjacency, directly mirroring
lr.CFSM's own state/edge arena (lr/tables.go) one level down from LR
automaton states to per-role protocol states.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package cfsm

import (
	"fmt"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/mpstkit/mpst"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.cfsm")
}

// SymKind discriminates the three alphabet symbol shapes (spec §3,
// "Transitions are deterministic up to alphabet symbol").
type SymKind int

const (
	Tau SymKind = iota
	Send         // !q<l>
	Recv         // ?p<l>
)

func (k SymKind) String() string {
	switch k {
	case Send:
		return "!"
	case Recv:
		return "?"
	}
	return "τ"
}

// Symbol is one CFSM transition label: a silent step, or a send/receive
// of Message over a directed channel to/from Peer.
type Symbol struct {
	Kind Kind
	Peer mpst.Role
	Msg  mpst.Message
}

// Kind is an alias retained for readability at call sites (cfsm.Kind
// reads awkwardly next to cfsm.SymKind); both names refer to the same
// type.
type Kind = SymKind

func (s Symbol) String() string {
	if s.Kind == Tau {
		return "τ"
	}
	return fmt.Sprintf("%s%s<%s>", s.Kind, s.Peer.Name, s.Msg.Label)
}

// Equal compares symbols the way the safety checker's [S-⊕&] rule needs
// to: a send !q<l> matches a receive ?p<l> iff the peer/role pairing and
// label agree; here Equal is a plain structural comparison used for
// deduplicating outgoing transitions, not for send/receive matching
// (see safety.matches for that).
func (s Symbol) Equal(other Symbol) bool {
	return s.Kind == other.Kind && s.Peer == other.Peer && s.Msg.Equal(other.Msg)
}

// State is one CFSM state. Origin records the CFG node id it was
// projected from, for diagnostics only (spec §4.4, "may label states
// with provenance ... not part of semantics").
type State struct {
	ID       int
	Terminal bool
	Origin   int // CFG node id, or -1 if synthetic (e.g. a merged/τ state)
}

func (s *State) String() string {
	if s.Terminal {
		return fmt.Sprintf("q%d[terminal]", s.ID)
	}
	return fmt.Sprintf("q%d", s.ID)
}

// Transition is a directed, symbol-labeled edge between two states.
type Transition struct {
	From, To int
	Sym      Symbol
}

// CFSM is one role's projected state machine.
type CFSM struct {
	Role    mpst.Role
	States  []*State
	Initial int
	succ    []*linkedhashset.Set // outgoing transitions, insertion-ordered, indexed by state id
}

// New creates an empty CFSM for role.
func New(role mpst.Role) *CFSM {
	return &CFSM{Role: role}
}

// AddState appends a new state and returns its id.
func (c *CFSM) AddState(origin int) int {
	id := len(c.States)
	c.States = append(c.States, &State{ID: id, Origin: origin})
	c.succ = append(c.succ, linkedhashset.New())
	return id
}

// MarkTerminal flags state id as accepting.
func (c *CFSM) MarkTerminal(id int) { c.States[id].Terminal = true }

// AddTransition links from -[sym]-> to.
func (c *CFSM) AddTransition(from int, sym Symbol, to int) {
	c.succ[from].Add(Transition{From: from, To: to, Sym: sym})
	tracer().Debugf("cfsm[%s] q%d -%s-> q%d", c.Role, from, sym, to)
}

// Out returns the ordered outgoing transitions of state id.
func (c *CFSM) Out(id int) []Transition {
	vals := c.succ[id].Values()
	out := make([]Transition, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.(Transition))
	}
	return out
}

// State looks up a state by id.
func (c *CFSM) State(id int) *State { return c.States[id] }

// TauSuccessors returns the states reachable from id by exactly one τ
// transition, used by the τ-closure computation in package safety.
func (c *CFSM) TauSuccessors(id int) []int {
	var out []int
	for _, t := range c.Out(id) {
		if t.Sym.Kind == Tau {
			out = append(out, t.To)
		}
	}
	return out
}

// Map associates every declared role with its projected CFSM; the
// output type of package project and the input type of packages safety
// and sim (spec §4.4 "Output: a Role -> CFSM map"). Map iteration order
// is not meaningful — callers needing a canonical role order should use
// the originating cfg.Graph.Roles slice instead of ranging over Map.
type Map map[string]*CFSM

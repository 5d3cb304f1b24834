/*
Package cfg lowers one global protocol body into a node-labeled control-
flow graph (spec §3, §4.2): an arena of nodes indexed by stable integer
ids, with edges held in ordered adjacency sets. This sidesteps owning
pointer cycles for back-edges (recursion) the way the core spec's design
notes (§9, "cyclic node graphs") require: "use an arena/index
representation ... no owning pointer cycles. Traversal carries a
visited-set over ids" — directly grounded on lr.CFSM's treeset/arraylist
state-and-edge arena in lr/tables.go, generalized from LR automaton
states to protocol CFG nodes.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package cfg

import (
	"fmt"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/mpstkit/mpst"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.cfg")
}

// NodeKind discriminates CFG node variants (spec §3).
type NodeKind int

const (
	Entry NodeKind = iota
	Exit
	Action    // synchronous send/receive pairing: From -> To: Msg
	Branch    // choice at At
	Merge
	Fork      // ParID
	Join      // ParID
	RecEntry  // Label
	Continue  // Label, resolved back to a RecEntry node id
	SubInvoke // Do: Protocol, RoleArgs
)

func (k NodeKind) String() string {
	switch k {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	case Action:
		return "action"
	case Branch:
		return "branch"
	case Merge:
		return "merge"
	case Fork:
		return "fork"
	case Join:
		return "join"
	case RecEntry:
		return "recursion-entry"
	case Continue:
		return "continue"
	case SubInvoke:
		return "sub-invoke"
	}
	return "?"
}

// Node is one CFG node. Only the fields relevant to Kind are meaningful;
// this mirrors the "tagged sums with exhaustive pattern matching" design
// note rather than an inheritance hierarchy of node subtypes.
type Node struct {
	ID  int
	Kind NodeKind

	// Action
	From mpst.Role
	To   []mpst.Role // one entry for unicast, several for multicast
	Msg  mpst.Message

	// Branch / Fork / Join
	At    mpst.Role // Branch
	ParID int       // Fork / Join

	// RecEntry / Continue
	Label string

	// Continue: resolved target RecEntry node, -1 if unresolved (error)
	BackTarget int

	// SubInvoke
	Protocol string
	RoleArgs []mpst.Role

	Loc mpst.SourceLocation
}

func (n *Node) String() string {
	switch n.Kind {
	case Action:
		return fmt.Sprintf("n%d[action %s->%v:%s]", n.ID, n.From, n.To, n.Msg)
	case Branch:
		return fmt.Sprintf("n%d[branch at %s]", n.ID, n.At)
	case Fork, Join:
		return fmt.Sprintf("n%d[%s #%d]", n.ID, n.Kind, n.ParID)
	case RecEntry:
		return fmt.Sprintf("n%d[rec-entry %s]", n.ID, n.Label)
	case Continue:
		return fmt.Sprintf("n%d[continue %s -> n%d]", n.ID, n.Label, n.BackTarget)
	case SubInvoke:
		return fmt.Sprintf("n%d[do %s%v]", n.ID, n.Protocol, n.RoleArgs)
	}
	return fmt.Sprintf("n%d[%s]", n.ID, n.Kind)
}

// Edge is a directed CFG edge. Label is a discriminator: the first
// action's message label for a Branch's outgoing edges, empty otherwise.
type Edge struct {
	From, To int
	Label    string
}

// Graph is one protocol's control-flow graph.
type Graph struct {
	Protocol string
	Roles    []mpst.Role
	Nodes    []*Node
	succ     []*linkedhashset.Set // successor node ids, insertion-ordered, indexed by node id
	pred     []*linkedhashset.Set
	Entry    int
	Exit     int
}

// NewGraph creates an empty graph for the named protocol over roles.
func NewGraph(protocol string, roles []mpst.Role) *Graph {
	return &Graph{Protocol: protocol, Roles: roles}
}

// AddNode appends a new node to the arena and returns its id.
func (g *Graph) AddNode(n *Node) int {
	n.ID = len(g.Nodes)
	n.BackTarget = -1
	g.Nodes = append(g.Nodes, n)
	g.succ = append(g.succ, linkedhashset.New())
	g.pred = append(g.pred, linkedhashset.New())
	return n.ID
}

// AddEdge links from -> to, labeled for branch discrimination.
func (g *Graph) AddEdge(from, to int, label string) {
	g.succ[from].Add(edgeKey{to, label})
	g.pred[to].Add(edgeKey{from, label})
	tracer().Debugf("cfg edge n%d -[%s]-> n%d", from, label, to)
}

// edgeKey makes (to, label) hashable/comparable for the linkedhashset.
type edgeKey struct {
	node  int
	label string
}

// Successors returns the ordered list of (targetID, label) pairs leaving node id.
func (g *Graph) Successors(id int) []EdgeRef {
	return toEdgeRefs(g.succ[id].Values())
}

// Predecessors returns the ordered list of (sourceID, label) pairs entering node id.
func (g *Graph) Predecessors(id int) []EdgeRef {
	return toEdgeRefs(g.pred[id].Values())
}

// EdgeRef is a lightweight (node, label) pair returned by Successors/Predecessors.
type EdgeRef struct {
	Node  int
	Label string
}

func toEdgeRefs(vals []interface{}) []EdgeRef {
	out := make([]EdgeRef, 0, len(vals))
	for _, v := range vals {
		k := v.(edgeKey)
		out = append(out, EdgeRef{Node: k.node, Label: k.label})
	}
	return out
}

// Node looks up a node by id.
func (g *Graph) Node(id int) *Node { return g.Nodes[id] }

// EachReachable performs a deterministic depth-first walk from Entry,
// visiting each node once (cycle-safe via a visited-id set), invoking
// visit(node) pre-order.
func (g *Graph) EachReachable(visit func(*Node)) {
	visited := make([]bool, len(g.Nodes))
	var walk func(id int)
	walk = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		visit(g.Node(id))
		for _, e := range g.Successors(id) {
			walk(e.Node)
		}
	}
	walk(g.Entry)
}

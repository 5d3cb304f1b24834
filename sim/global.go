package sim

import (
	"math/rand"
	"time"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/registry"
)

// Global is the CFG-level simulator (spec §4.6 "Global mode"): a single
// interpreter walks one CFG synchronously, orchestrating every role's
// progress through it. `do` invocations run their sub-CFG to completion
// inline before the invoking token resumes, exactly as spec §4.6
// describes ("recursively run it to completion before popping").
type Global struct {
	g     *cfg.Graph
	reg   *registry.Registry
	opts  config.Options
	stack *registry.CallStack

	active   []int         // active token node ids; more than one only between a Fork and its Join
	joinWait map[int][]int // join node id -> arrived predecessor node ids, for barrier release

	trace      []Event
	step       uint32
	status     Status
	protocol   string
	stackDepth int
	rng        *rand.Rand
	diags      []diag.Diagnostic
}

// NewGlobal creates a Global simulator positioned at g's Entry node.
func NewGlobal(g *cfg.Graph, reg *registry.Registry, opts config.Options) *Global {
	return newGlobalAt(g, reg, opts, registry.NewCallStack(int(opts.CallStackMax)), 0)
}

func newGlobalAt(g *cfg.Graph, reg *registry.Registry, opts config.Options, stack *registry.CallStack, depth int) *Global {
	return &Global{
		g:          g,
		reg:        reg,
		opts:       opts,
		stack:      stack,
		active:     []int{g.Entry},
		joinWait:   map[int][]int{},
		protocol:   g.Protocol,
		stackDepth: depth,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Status reports the simulator's current run status.
func (s *Global) Status() Status { return s.status }

// Trace returns the events recorded so far.
func (s *Global) Trace() []Event { return s.trace }

// Diagnostics returns any diagnostics accumulated (e.g. CallStackOverflow).
func (s *Global) Diagnostics() []diag.Diagnostic { return s.diags }

func (s *Global) emit(e Event) {
	e.Timestamp = s.step
	e.StackDepth = s.stackDepth
	if s.opts.RecordTrace {
		s.trace = append(s.trace, e)
	}
}

// Run repeats Step until the CFG's Exit is reached, maxSteps is
// exceeded, or the simulator gets stuck (spec §4.6 `run()`).
func (s *Global) Run() Status {
	for s.status == Running {
		s.Step()
	}
	return s.status
}

// Step fires one enabled CFG action (spec §4.6 `step()`): the first
// active token that can progress is advanced; branch nodes consult
// opts.ChoiceStrategy, fork nodes spawn one token per branch, join nodes
// block a token until every sibling has arrived.
func (s *Global) Step() Status {
	if s.status != Running {
		return s.status
	}
	if s.opts.MaxSteps > 0 && s.step >= s.opts.MaxSteps {
		s.status = MaxStepsExceeded
		s.emit(Event{Kind: "max-steps"})
		return s.status
	}
	if len(s.active) == 0 {
		s.status = Stuck
		s.emit(Event{Kind: "stuck"})
		return s.status
	}

	tok := s.active[0]
	s.active = s.active[1:]
	s.step++

	node := s.g.Node(tok)
	switch node.Kind {
	case cfg.Entry:
		s.advance(tok, single(s.g, tok))
	case cfg.Exit:
		if len(s.active) == 0 {
			s.status = Complete
		}
	case cfg.RecEntry, cfg.Merge:
		s.advance(tok, single(s.g, tok))
	case cfg.Continue:
		s.advance(tok, node.BackTarget)
	case cfg.Action:
		if !node.From.IsZero() {
			for _, to := range node.To {
				s.emit(Event{Kind: "action", From: node.From, To: to, Message: node.Msg})
			}
		}
		s.advance(tok, single(s.g, tok))
	case cfg.Branch:
		succs := s.g.Successors(tok)
		choice := s.pick(succs)
		s.advance(tok, succs[choice].Node)
	case cfg.Fork:
		for _, e := range s.g.Successors(tok) {
			s.active = append(s.active, e.Node)
		}
		s.emit(Event{Kind: "fork"})
	case cfg.Join:
		preds := s.g.Predecessors(tok)
		arrived := append(s.joinWait[tok], tok)
		s.joinWait[tok] = arrived
		if len(arrived) >= len(preds) {
			delete(s.joinWait, tok)
			s.emit(Event{Kind: "join"})
			s.advance(tok, single(s.g, tok))
		}
	case cfg.SubInvoke:
		s.runSubInvoke(tok, node)
	}

	if len(s.active) == 0 && s.status == Running {
		s.status = Stuck
	}
	return s.status
}

func (s *Global) advance(from, to int) {
	s.active = append(s.active, to)
}

// pick resolves opts.ChoiceStrategy over a Branch's outgoing edges.
func (s *Global) pick(succs []cfg.EdgeRef) int {
	switch s.opts.ChoiceStrategy {
	case config.Random:
		return s.rng.Intn(len(succs))
	default: // Deterministic and UserPicked (no interactive picker wired) both take the first edge
		return 0
	}
}

func (s *Global) runSubInvoke(tok int, node *cfg.Node) {
	subG, ok := s.reg.Lookup(node.Protocol)
	if !ok {
		s.diags = append(s.diags, diag.New(diag.UnresolvedSubProtocol, node.Loc, "protocol %q referenced by do is not registered", node.Protocol))
		s.status = Stuck
		return
	}
	if len(subG.Roles) != len(node.RoleArgs) {
		s.diags = append(s.diags, diag.New(diag.RoleArityMismatch, node.Loc, "do %s expects %d role arguments, got %d", node.Protocol, len(subG.Roles), len(node.RoleArgs)))
		s.status = Stuck
		return
	}
	mapping := make(map[string]mpst.Role, len(subG.Roles))
	for i, declared := range subG.Roles {
		if i < len(node.RoleArgs) {
			mapping[declared.Name] = node.RoleArgs[i]
		}
	}
	frame := &registry.Frame{ProtocolName: node.Protocol, EntryNode: subG.Entry, ExitNode: subG.Exit, SubCFG: subG, RoleMapping: mapping}
	if err := s.stack.Push(frame); err != nil {
		s.diags = append(s.diags, diag.New(diag.CallStackOverflow, node.Loc, "%v", err))
		s.status = Stuck
		return
	}
	s.emit(Event{Kind: "do-enter", Protocol: node.Protocol})

	child := newGlobalAt(subG, s.reg, s.opts, s.stack, s.stackDepth+1)
	child.status = Running
	child.Run()
	s.trace = append(s.trace, child.trace...)
	s.diags = append(s.diags, child.diags...)

	s.stack.Pop()
	s.emit(Event{Kind: "do-exit", Protocol: node.Protocol})

	if child.status != Complete {
		s.status = child.status
		return
	}
	s.advance(tok, single(s.g, tok))
}

// single returns the sole CFG successor of n (non-branch/fork nodes).
func single(g *cfg.Graph, n int) int {
	succs := g.Successors(n)
	if len(succs) == 0 {
		return n
	}
	return succs[0].Node
}

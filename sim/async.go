package sim

import (
	"math/rand"
	"time"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/safety"
)

// Async is the CFSM-level simulator (spec §4.6 "Asynchronous mode"): it
// steps a typing context Γ forward one enabled send/receive at a time
// over per-channel FIFO buffers, with τ folded in eagerly after each step, reusing package safety's Context and
// τ-closure machinery rather than re-deriving them — the BFS safety
// checker and this simulator explore the exact same transition relation,
// just one path at a time instead of exhaustively.
type Async struct {
	cfsms cfsm.Map
	roles []mpst.Role
	opts  config.Options
	ctx   *safety.Context

	trace  []Event
	step   uint32
	status Status
	rng    *rand.Rand
	diags  []diag.Diagnostic
}

// NewAsync builds an Async simulator at Γ0 for cfsms.
func NewAsync(cfsms cfsm.Map, roles []mpst.Role, opts config.Options) *Async {
	ctx := safety.InitialContext(cfsms)
	safety.ApplyTauClosure(ctx, cfsms)
	return &Async{
		cfsms: cfsms,
		roles: roles,
		opts:  opts,
		ctx:   ctx,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Status reports the simulator's current run status.
func (s *Async) Status() Status { return s.status }

// Trace returns the events recorded so far.
func (s *Async) Trace() []Event { return s.trace }

// Context returns the simulator's current typing context Γ.
func (s *Async) Context() *safety.Context { return s.ctx }

// Diagnostics returns any diagnostics accumulated (e.g. BufferOverflow).
func (s *Async) Diagnostics() []diag.Diagnostic { return s.diags }

func (s *Async) emit(e Event) {
	e.Timestamp = s.step
	if s.opts.RecordTrace {
		s.trace = append(s.trace, e)
	}
}

// Run repeats Step until Γ is final, maxSteps is exceeded, or no
// transition is enabled (spec §4.6 `run()`).
func (s *Async) Run() Status {
	s.status = Running
	for s.status == Running {
		s.Step()
	}
	return s.status
}

type asyncChoice struct {
	isSend bool
	role   mpst.Role
	to     int
	sym    cfsm.Symbol
}

// Step fires one enabled send or receive (spec §4.6: "Send is non-
// blocking ... receive is enabled iff the head of Q_{p→q} matches the
// expected label; τ is always safe to fire" — τ is folded into Γ eagerly
// by safety.ApplyTauClosure, so only send/receive remain observable here).
func (s *Async) Step() Status {
	if s.status != Running {
		return s.status
	}
	if s.opts.MaxSteps > 0 && s.step >= s.opts.MaxSteps {
		s.status = MaxStepsExceeded
		s.emit(Event{Kind: "max-steps"})
		return s.status
	}
	s.step++

	var choices []asyncChoice
	for _, role := range s.roles {
		c := s.cfsms[role.Name]
		for _, st := range s.ctx.Frontier[role.Name] {
			for _, t := range c.Out(st) {
				switch t.Sym.Kind {
				case cfsm.Send:
					choices = append(choices, asyncChoice{isSend: true, role: role, to: t.To, sym: t.Sym})
				case cfsm.Recv:
					ch := mpst.Channel{From: t.Sym.Peer, To: role}
					buf := s.ctx.Buffers[ch]
					if len(buf) > 0 && buf[0].Equal(t.Sym.Msg) {
						choices = append(choices, asyncChoice{isSend: false, role: role, to: t.To, sym: t.Sym})
					}
				}
			}
		}
	}

	if len(choices) == 0 {
		if safety.IsFinal(s.ctx, s.cfsms) {
			s.status = Complete
		} else {
			s.status = Stuck
			s.emit(Event{Kind: "stuck"})
		}
		return s.status
	}

	choice := choices[s.pick(len(choices))]
	if choice.isSend {
		ch := mpst.Channel{From: choice.role, To: choice.sym.Peer}
		bound := int(s.opts.BufferBound)
		if bound <= 0 {
			bound = config.DefaultBufferBound
		}
		if len(s.ctx.Buffers[ch]) >= bound {
			s.diags = append(s.diags, diag.New(diag.BufferOverflow, mpst.SourceLocation{}, "channel %s exceeds the configured buffer bound %d", ch, bound))
			s.status = Stuck
			return s.status
		}
		s.ctx.Buffers[ch] = append(s.ctx.Buffers[ch], choice.sym.Msg)
		s.ctx.Frontier[choice.role.Name] = safety.TauClosureOf(s.cfsms[choice.role.Name], choice.to)
		s.emit(Event{Kind: "send", From: choice.role, To: choice.sym.Peer, Message: choice.sym.Msg})
	} else {
		ch := mpst.Channel{From: choice.sym.Peer, To: choice.role}
		s.ctx.Buffers[ch] = s.ctx.Buffers[ch][1:]
		s.ctx.Frontier[choice.role.Name] = safety.TauClosureOf(s.cfsms[choice.role.Name], choice.to)
		s.emit(Event{Kind: "recv", From: choice.sym.Peer, To: choice.role, Message: choice.sym.Msg})
	}
	safety.ApplyTauClosure(s.ctx, s.cfsms)
	return s.status
}

// pick resolves opts.ChoiceStrategy over n enabled transitions.
func (s *Async) pick(n int) int {
	switch s.opts.ChoiceStrategy {
	case config.Random:
		return s.rng.Intn(n)
	default:
		return 0
	}
}

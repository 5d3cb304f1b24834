package safety

import (
	"fmt"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
)

// Event is one step of a witness trace: an observable send or receive,
// or the special "deadlock"/"overflow"/"unmatched-send" markers used to
// explain a violation.
type Event struct {
	Kind    string // "send", "recv", "deadlock", "overflow", "unmatched-send"
	From    mpst.Role
	To      mpst.Role
	Message mpst.Message
}

func (e Event) String() string {
	switch e.Kind {
	case "send":
		return fmt.Sprintf("%s!%s<%s>", e.From.Name, e.To.Name, e.Message.Label)
	case "recv":
		return fmt.Sprintf("%s?%s<%s>", e.To.Name, e.From.Name, e.Message.Label)
	default:
		return e.Kind
	}
}

// Violation pairs a diagnostic with the witness trace of events that led
// to the violating configuration (spec §4.5, "SafetyViolation witness-
// trace reporting").
type Violation struct {
	Diagnostic diag.Diagnostic
	Trace      []Event
}

// Result is the safety checker's output.
type Result struct {
	Safe           bool
	Violations     []Violation
	StatesExplored int
}

type basicSafety struct{}

// enabledSend/enabledRecv describe one step the BFS may take.
type enabledSend struct {
	role mpst.Role
	from int
	to   int
	sym  cfsm.Symbol
}

type enabledRecv struct {
	role mpst.Role
	from int
	to   int
	sym  cfsm.Symbol
}

func enabledSends(ctx *Context, cfsms cfsm.Map, roles []mpst.Role) []enabledSend {
	var out []enabledSend
	for _, role := range roles {
		c := cfsms[role.Name]
		for _, s := range ctx.Frontier[role.Name] {
			for _, t := range c.Out(s) {
				if t.Sym.Kind == cfsm.Send {
					out = append(out, enabledSend{role: role, from: s, to: t.To, sym: t.Sym})
				}
			}
		}
	}
	return out
}

func enabledRecvs(ctx *Context, cfsms cfsm.Map, roles []mpst.Role) []enabledRecv {
	var out []enabledRecv
	for _, role := range roles {
		c := cfsms[role.Name]
		for _, s := range ctx.Frontier[role.Name] {
			for _, t := range c.Out(s) {
				if t.Sym.Kind != cfsm.Recv {
					continue
				}
				ch := mpst.Channel{From: t.Sym.Peer, To: role}
				buf := ctx.Buffers[ch]
				if len(buf) > 0 && buf[0].Equal(t.Sym.Msg) {
					out = append(out, enabledRecv{role: role, from: s, to: t.To, sym: t.Sym})
				}
			}
		}
	}
	return out
}

// peerHasMatchingReceive implements [S-⊕&]: for an enabled send p->q<l>,
// q must have (somewhere in its current frontier) a receive transition
// for exactly that channel/label.
func peerHasMatchingReceive(ctx *Context, cfsms cfsm.Map, sender mpst.Role, send enabledSend) bool {
	receiver := cfsms[send.sym.Peer.Name]
	if receiver == nil {
		return false
	}
	for _, s := range ctx.Frontier[send.sym.Peer.Name] {
		for _, t := range receiver.Out(s) {
			if t.Sym.Kind == cfsm.Recv && t.Sym.Peer == sender && t.Sym.Msg.Equal(send.sym.Msg) {
				return true
			}
		}
	}
	return false
}

type frame struct {
	ctx   *Context
	trace []Event
}

// Check explores the full reachable configuration space of cfsms from
// Γ0, applying τ-closure at every configuration, verifying [S-⊕&]
// whenever a send is enabled, and flagging deadlock (no enabled step in
// a non-final configuration) and buffer overflow (spec §4.5).
func (basicSafety) Check(cfsms cfsm.Map, roles []mpst.Role, opts config.Options) Result {
	bound := int(opts.BufferBound)
	if bound <= 0 {
		bound = config.DefaultBufferBound
	}

	ctx0 := InitialContext(cfsms)
	ApplyTauClosure(ctx0, cfsms)

	visited := map[string]bool{}
	queue := []frame{{ctx: ctx0}}
	visited[ctx0.CanonicalKey()] = true

	result := Result{Safe: true}
	explored := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		explored++

		sends := enabledSends(cur.ctx, cfsms, roles)
		for _, snd := range sends {
			if !peerHasMatchingReceive(cur.ctx, cfsms, snd.role, snd) {
				result.Safe = false
				result.Violations = append(result.Violations, Violation{
					Diagnostic: diag.New(diag.SafetyViolation, mpst.SourceLocation{}, "%s can send %s to %s, which has no matching receive enabled", snd.role.Name, snd.sym.Msg.Label, snd.sym.Peer.Name),
					Trace:      append(append([]Event{}, cur.trace...), Event{Kind: "unmatched-send", From: snd.role, To: snd.sym.Peer, Message: snd.sym.Msg}),
				})
			}
		}
		recvs := enabledRecvs(cur.ctx, cfsms, roles)

		if len(sends) == 0 && len(recvs) == 0 && !IsFinal(cur.ctx, cfsms) {
			result.Safe = false
			result.Violations = append(result.Violations, Violation{
				Diagnostic: diag.New(diag.SafetyViolation, mpst.SourceLocation{}, "configuration has no enabled send or receive and is not a final state (deadlock)"),
				Trace:      append(append([]Event{}, cur.trace...), Event{Kind: "deadlock"}),
			})
			continue
		}

		for _, snd := range sends {
			ch := mpst.Channel{From: snd.role, To: snd.sym.Peer}
			if len(cur.ctx.Buffers[ch]) >= bound {
				result.Safe = false
				result.Violations = append(result.Violations, Violation{
					Diagnostic: diag.New(diag.BufferOverflow, mpst.SourceLocation{}, "channel %s exceeds the configured buffer bound %d", ch, bound),
					Trace:      append(append([]Event{}, cur.trace...), Event{Kind: "overflow", From: snd.role, To: snd.sym.Peer, Message: snd.sym.Msg}),
				})
				continue
			}
			next := cur.ctx.Clone()
			next.Frontier[snd.role.Name] = TauClosureOf(cfsms[snd.role.Name], snd.to)
			next.Buffers[ch] = append(append([]mpst.Message{}, next.Buffers[ch]...), snd.sym.Msg)
			ApplyTauClosure(next, cfsms)
			key := next.CanonicalKey()
			if !visited[key] {
				visited[key] = true
				queue = append(queue, frame{ctx: next, trace: append(append([]Event{}, cur.trace...), Event{Kind: "send", From: snd.role, To: snd.sym.Peer, Message: snd.sym.Msg})})
			}
		}
		for _, rcv := range recvs {
			next := cur.ctx.Clone()
			next.Frontier[rcv.role.Name] = TauClosureOf(cfsms[rcv.role.Name], rcv.to)
			ch := mpst.Channel{From: rcv.sym.Peer, To: rcv.role}
			next.Buffers[ch] = next.Buffers[ch][1:]
			ApplyTauClosure(next, cfsms)
			key := next.CanonicalKey()
			if !visited[key] {
				visited[key] = true
				queue = append(queue, frame{ctx: next, trace: append(append([]Event{}, cur.trace...), Event{Kind: "recv", From: rcv.sym.Peer, To: rcv.role, Message: rcv.sym.Msg})})
			}
		}
	}

	result.StatesExplored = explored
	return result
}

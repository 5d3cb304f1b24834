/*
Package sim implements the two cooperating simulator modes of spec
§4.6: a Global (CFG, synchronously orchestrated) simulator and an Async
(CFSM/Γ, FIFO-buffered) simulator, both exposing the same Step()/Run()
surface. Global resolves sub-protocol `do` invocations through a
registry.Registry and a registry.CallStack; Async runs over CFSMs into
which package project has already spliced them.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package sim

import (
	"fmt"

	"github.com/mpstkit/mpst"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.sim")
}

// Status is the outcome of a simulator run (spec §4.6 `run()`).
type Status int

const (
	Running Status = iota
	Complete
	Stuck
	MaxStepsExceeded
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Complete:
		return "complete"
	case Stuck:
		return "stuck"
	case MaxStepsExceeded:
		return "max-steps"
	}
	return "?"
}

// Event is one entry of the simulator's observable trace (spec §4.6
// "an ordered list of {kind, details, timestamp, stackFrame}").
// Timestamp is a logical step counter, not wall-clock time, so traces
// stay reproducible across runs of the same seeded strategy.
type Event struct {
	Kind       string // "send", "recv", "action", "fork", "join", "do-enter", "do-exit", "max-steps", "stuck"
	From       mpst.Role
	To         mpst.Role
	Message    mpst.Message
	Protocol   string
	Timestamp  uint32
	StackDepth int
}

func (e Event) String() string {
	switch e.Kind {
	case "action":
		return fmt.Sprintf("[%d] %s->%s: %s", e.Timestamp, e.From.Name, e.To.Name, e.Message)
	case "send":
		return fmt.Sprintf("[%d] %s!%s<%s>", e.Timestamp, e.From.Name, e.To.Name, e.Message.Label)
	case "recv":
		return fmt.Sprintf("[%d] %s?%s<%s>", e.Timestamp, e.To.Name, e.From.Name, e.Message.Label)
	case "do-enter":
		return fmt.Sprintf("[%d] do %s (depth %d)", e.Timestamp, e.Protocol, e.StackDepth)
	case "do-exit":
		return fmt.Sprintf("[%d] return from %s", e.Timestamp, e.Protocol)
	default:
		return fmt.Sprintf("[%d] %s", e.Timestamp, e.Kind)
	}
}

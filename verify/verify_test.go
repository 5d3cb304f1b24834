package verify

import (
	"testing"

	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/parse"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func buildFirst(t *testing.T, src string) *cfg.Graph {
	t.Helper()
	mod, diags := parse.Parse("test.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors: %v", diags)
	}
	var proto *ast.ProtocolDecl
	for _, d := range mod.Declarations {
		if p, ok := d.(*ast.ProtocolDecl); ok {
			proto = p
			break
		}
	}
	if proto == nil {
		t.Fatalf("no protocol declaration found")
	}
	g, bdiags := cfg.Build(proto)
	if diag.HasErrors(bdiags) {
		t.Fatalf("unexpected build errors: %v", bdiags)
	}
	return g
}

func TestWellFormedPingPong(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.verify")
	defer teardown()

	src := `
protocol PingPong(role Client, role Server) {
	Client -> Server: ping();
	Server -> Client: pong();
}
`
	g := buildFirst(t, src)
	r := WellFormed(g)
	if !r.Connected {
		t.Errorf("expected PingPong to be connected, errors=%v", r.Errors)
	}
	if !r.Deterministic {
		t.Errorf("expected PingPong to have deterministic choice, errors=%v", r.Errors)
	}
	if !r.RaceFree {
		t.Errorf("expected PingPong to be race-free, errors=%v", r.Errors)
	}
}

func TestWellFormedUnusedRoleWarns(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.verify")
	defer teardown()

	src := `
protocol Lonely(role A, role B, role C) {
	A -> B: hello();
}
`
	g := buildFirst(t, src)
	r := WellFormed(g)
	found := false
	for _, w := range r.Warnings {
		if w.Kind == diag.UnusedRole {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an UnusedRole warning for C, got %v", r.Warnings)
	}
}

func TestWellFormedAmbiguousChoice(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.verify")
	defer teardown()

	src := `
protocol Ambiguous(role A, role B) {
	choice at A {
		A -> B: ok();
	} or {
		A -> B: ok();
	}
}
`
	g := buildFirst(t, src)
	r := WellFormed(g)
	if r.Deterministic {
		t.Errorf("expected Ambiguous to fail determinism of choice")
	}
	found := false
	for _, e := range r.Errors {
		if e.Kind == diag.AmbiguousChoice {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an AmbiguousChoice error, got %v", r.Errors)
	}
}

func TestWellFormedParallelRace(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.verify")
	defer teardown()

	src := `
protocol Racy(role A, role B) {
	par {
		A -> B: x();
	} and {
		A -> B: y();
	}
}
`
	g := buildFirst(t, src)
	r := WellFormed(g)
	if r.RaceFree {
		t.Errorf("expected Racy to fail the no-race check")
	}
	found := false
	for _, e := range r.Errors {
		if e.Kind == diag.Race {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Race error, got %v", r.Errors)
	}
}

func TestWellFormedParallelDisjointIsFine(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.verify")
	defer teardown()

	src := `
protocol Split(role A, role B, role C, role D) {
	par {
		A -> B: x();
	} and {
		C -> D: y();
	}
}
`
	g := buildFirst(t, src)
	r := WellFormed(g)
	if !r.RaceFree {
		t.Errorf("expected disjoint-channel par to be race-free, errors=%v", r.Errors)
	}
}

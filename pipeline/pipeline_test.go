package pipeline

import (
	"testing"

	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/sim"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestPipelineEndToEndPingPong(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.pipeline")
	defer teardown()

	p := NewPipeline(config.Default())
	mod, diags := p.Parse("pingpong.mpst", `
protocol PingPong(role Client, role Server) {
	Client -> Server: ping();
	Server -> Client: pong();
}
`)
	if diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}

	graphs, bdiags := p.BuildAll(mod)
	if diag.HasErrors(bdiags) {
		t.Fatalf("build errors: %v", bdiags)
	}
	g := graphs["PingPong"]

	wf := p.VerifyWellFormed(g)
	if !wf.Connected || !wf.Deterministic || !wf.RaceFree {
		t.Fatalf("expected well-formed PingPong, got %+v", wf)
	}

	cfsms, pdiags := p.Project(g)
	if diag.HasErrors(pdiags) {
		t.Fatalf("projection errors: %v", pdiags)
	}

	safe := p.CheckSafety(cfsms, g.Roles)
	if !safe.Safe {
		t.Fatalf("expected PingPong to be safe, got %+v", safe.Violations)
	}

	status, trace, _ := p.SimulateGlobal(g)
	if status != sim.Complete {
		t.Fatalf("expected global simulation to complete, got %v (trace %v)", status, trace)
	}

	asyncStatus, asyncTrace, _, _ := p.SimulateAsync(cfsms, g.Roles)
	if asyncStatus != sim.Complete {
		t.Fatalf("expected async simulation to complete, got %v (trace %v)", asyncStatus, asyncTrace)
	}
}

func TestPipelineNestedSubProtocols(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.pipeline")
	defer teardown()

	p := NewPipeline(config.Default())
	mod, diags := p.Parse("nested.mpst", `
protocol Inner(role A, role B) {
	A -> B: step();
}
protocol Outer(role X, role Y) {
	do Inner(X, Y);
	X -> Y: done();
}
`)
	if diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}
	graphs, bdiags := p.BuildAll(mod)
	if diag.HasErrors(bdiags) {
		t.Fatalf("build errors: %v", bdiags)
	}

	outer := graphs["Outer"]
	cfsms, pdiags := p.Project(outer)
	if diag.HasErrors(pdiags) {
		t.Fatalf("projection errors: %v", pdiags)
	}
	safe := p.CheckSafety(cfsms, outer.Roles)
	if !safe.Safe {
		t.Fatalf("expected Outer to be safe, got %+v", safe.Violations)
	}
	status, _, _ := p.SimulateGlobal(outer)
	if status != sim.Complete {
		t.Fatalf("expected Outer's global simulation to complete, got %v", status)
	}
}

func TestPipelineDanglingContinueDiagnostic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.pipeline")
	defer teardown()

	p := NewPipeline(config.Default())
	mod, diags := p.Parse("bad.mpst", `
protocol Bad(role A, role B) {
	continue Loop;
}
`)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors: %v", diags)
	}
	proto := mod.Declarations[0].(*ast.ProtocolDecl)
	_, bdiags := p.BuildCFG(proto)
	found := false
	for _, d := range bdiags {
		if d.Kind == diag.DanglingContinue {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DanglingContinue diagnostic, got %v", bdiags)
	}
}

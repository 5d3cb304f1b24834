package project

import (
	"testing"

	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/parse"
	"github.com/mpstkit/mpst/registry"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func buildGraph(t *testing.T, src string) (*cfg.Graph, *ast.Module) {
	t.Helper()
	mod, diags := parse.Parse("test.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}
	var proto *ast.ProtocolDecl
	for _, d := range mod.Declarations {
		if p, ok := d.(*ast.ProtocolDecl); ok {
			proto = p
		}
	}
	g, bdiags := cfg.Build(proto)
	if diag.HasErrors(bdiags) {
		t.Fatalf("build errors: %v", bdiags)
	}
	return g, mod
}

func TestProjectPingPong(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.project")
	defer teardown()

	g, _ := buildGraph(t, `
protocol PingPong(role Client, role Server) {
	Client -> Server: ping();
	Server -> Client: pong();
}
`)
	reg := registry.New()
	reg.Register(g)
	m, diags := Project(g, reg, 0)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected projection errors: %v", diags)
	}
	client := m["Client"]
	if client == nil {
		t.Fatalf("no CFSM projected for Client")
	}
	out := client.Out(client.Initial)
	if len(out) != 1 || out[0].Sym.Kind != cfsm.Send {
		t.Fatalf("expected Client's initial transition to be a send, got %v", out)
	}
}

func TestProjectAsymmetricChoice(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.project")
	defer teardown()

	// OAuth-style choice: Server decides, Client always receives a
	// distinguishing first message, Auditor never participates.
	g, _ := buildGraph(t, `
protocol OAuth(role Client, role Server, role Auditor) {
	choice at Server {
		Server -> Client: granted();
	} or {
		Server -> Client: denied();
	}
}
`)
	reg := registry.New()
	reg.Register(g)
	m, diags := Project(g, reg, 0)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected projection errors: %v", diags)
	}
	auditor := m["Auditor"]
	visited := map[int]bool{}
	var walk func(id int)
	sawNonTau := false
	walk = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, tr := range auditor.Out(id) {
			if tr.Sym.Kind != cfsm.Tau {
				sawNonTau = true
			}
			walk(tr.To)
		}
	}
	walk(auditor.Initial)
	if sawNonTau {
		t.Errorf("expected Auditor's CFSM to be all-tau (non-participant), found an observable transition")
	}
}

// TestProjectNestedSubProtocolSameRecursionLabel covers the "nested
// sub-protocols with same recursion label" seed scenario: parent and
// child each declare their own `rec L`, and a `continue L` inside the
// child must never resolve to the parent's L (or vice versa). Each
// cfg.Build call keeps its own recStack, so there is no shared label
// namespace to collide in; this builds and projects both independently
// to confirm neither declaration's label resolution leaks into the
// other.
func TestProjectNestedSubProtocolSameRecursionLabel(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.project")
	defer teardown()

	src := `
protocol Child(role A, role B) {
	rec L {
		choice at A {
			A -> B: done();
		} or {
			A -> B: tick();
			continue L;
		}
	}
}
protocol Parent(role A, role B) {
	rec L {
		do Child(A, B);
		choice at A {
			A -> B: finish();
		} or {
			continue L;
		}
	}
}
`
	mod, diags := parse.Parse("test.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}
	reg := registry.New()
	var outer *cfg.Graph
	for _, d := range mod.Declarations {
		p, ok := d.(*ast.ProtocolDecl)
		if !ok {
			continue
		}
		g, bdiags := cfg.Build(p)
		if diag.HasErrors(bdiags) {
			t.Fatalf("build errors for %s: %v", p.Name, bdiags)
		}
		reg.Register(g)
		if p.Name == "Parent" {
			outer = g
		}
	}
	m, pdiags := Project(outer, reg, 0)
	if diag.HasErrors(pdiags) {
		t.Fatalf("unexpected projection errors: %v", pdiags)
	}
	if _, ok := m["A"]; !ok {
		t.Fatalf("expected role A to be projected")
	}
}

// TestProjectParallelArmsAreMandatoryNotChosen guards against Fork being
// projected as a Branch-style τ choice among arms: a role in more than
// one parallel arm must take every arm's actions, not skip one by
// picking the other's all-τ path. Every terminal-reaching path through
// Coordinator's CFSM must carry both sends.
func TestProjectParallelArmsAreMandatoryNotChosen(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.project")
	defer teardown()

	g, mod := buildGraph(t, `
protocol Commit(role Coordinator, role P1, role P2) {
	par {
		Coordinator -> P1: prepare();
		P1 -> Coordinator: vote1();
	} and {
		Coordinator -> P2: prepare();
		P2 -> Coordinator: vote2();
	}
}
`)
	_ = mod
	reg := registry.New()
	reg.Register(g)
	m, pdiags := Project(g, reg, 0)
	if diag.HasErrors(pdiags) {
		t.Fatalf("unexpected projection errors: %v", pdiags)
	}
	coord := m["Coordinator"]

	var walk func(id int, sawP1, sawP2 bool, visited map[int]bool)
	var terminalPaths int
	walk = func(id int, sawP1, sawP2 bool, visited map[int]bool) {
		if visited[id] {
			return
		}
		visited = mergeVisited(visited, id)
		out := coord.Out(id)
		if coord.State(id).Terminal && len(out) == 0 {
			terminalPaths++
			if !sawP1 || !sawP2 {
				t.Errorf("reached a terminal state having sent prepare to both P1 (%v) and P2 (%v)? expected both true", sawP1, sawP2)
			}
			return
		}
		for _, tr := range out {
			nextP1, nextP2 := sawP1, sawP2
			if tr.Sym.Kind == cfsm.Send && tr.Sym.Peer.Name == "P1" && tr.Sym.Msg.Label == "prepare" {
				nextP1 = true
			}
			if tr.Sym.Kind == cfsm.Send && tr.Sym.Peer.Name == "P2" && tr.Sym.Msg.Label == "prepare" {
				nextP2 = true
			}
			walk(tr.To, nextP1, nextP2, visited)
		}
	}
	walk(coord.Initial, false, false, map[int]bool{})
	if terminalPaths == 0 {
		t.Errorf("expected at least one terminal-reaching path to be explored")
	}
}

func mergeVisited(v map[int]bool, id int) map[int]bool {
	out := make(map[int]bool, len(v)+1)
	for k := range v {
		out[k] = true
	}
	out[id] = true
	return out
}

func TestProjectDoSplicesSubProtocol(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.project")
	defer teardown()

	src := `
protocol Inner(role A, role B) {
	A -> B: step();
}
protocol Outer(role X, role Y) {
	do Inner(X, Y);
	X -> Y: done();
}
`
	mod, diags := parse.Parse("test.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}
	reg := registry.New()
	var outer *cfg.Graph
	for _, d := range mod.Declarations {
		p, ok := d.(*ast.ProtocolDecl)
		if !ok {
			continue
		}
		g, bdiags := cfg.Build(p)
		if diag.HasErrors(bdiags) {
			t.Fatalf("build errors for %s: %v", p.Name, bdiags)
		}
		reg.Register(g)
		if p.Name == "Outer" {
			outer = g
		}
	}
	m, pdiags := Project(outer, reg, 0)
	if diag.HasErrors(pdiags) {
		t.Fatalf("unexpected projection errors: %v", pdiags)
	}
	x := m["X"]
	sendCount := 0
	visited := map[int]bool{}
	var walk func(id int)
	walk = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, tr := range x.Out(id) {
			if tr.Sym.Kind == cfsm.Send {
				sendCount++
			}
			walk(tr.To)
		}
	}
	walk(x.Initial)
	if sendCount != 2 {
		t.Errorf("expected X to send twice (spliced step() + done()), got %d", sendCount)
	}
}

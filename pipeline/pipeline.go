// Package pipeline wires the analysis stages together to match the API
// surface table of spec §6. It lives outside the root mpst package
// because every stage package (cfg, cfsm, project, safety, sim, ...)
// imports mpst for its shared domain types (Role, Message, ...); a
// wiring type that imports those stage packages cannot itself live in
// mpst without an import cycle, the same reason gorgo.go's root package
// carries only data types and never imports lr/terex/runtime.
package pipeline

import (
	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/cfg"
	"github.com/mpstkit/mpst/cfsm"
	"github.com/mpstkit/mpst/config"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/parse"
	"github.com/mpstkit/mpst/project"
	"github.com/mpstkit/mpst/registry"
	"github.com/mpstkit/mpst/safety"
	"github.com/mpstkit/mpst/sim"
	"github.com/mpstkit/mpst/verify"
)

// Pipeline wires the analysis stages together to match the API surface
// table of spec §6: parse, buildCFG, verifyWellFormed, project,
// checkSafety, simulateGlobal, simulateAsync. It owns a Registry so
// multi-protocol source (one with `do` sub-invocations) resolves
// correctly across calls.
type Pipeline struct {
	Options  config.Options
	Registry *registry.Registry
}

// NewPipeline builds a Pipeline with the given configuration and a
// fresh, empty Registry.
func NewPipeline(opts config.Options) *Pipeline {
	return &Pipeline{Options: opts, Registry: registry.New()}
}

// Parse lexes and parses source text into an ast.Module (spec §6 "parse").
func (p *Pipeline) Parse(filename, src string) (*ast.Module, []diag.Diagnostic) {
	return parse.Parse(filename, src)
}

// BuildCFG lowers one protocol declaration into a CFG and registers it
// under its declared name, so later `do` invocations from other
// protocols in the same module can resolve it (spec §6 "buildCFG").
func (p *Pipeline) BuildCFG(decl *ast.ProtocolDecl) (*cfg.Graph, []diag.Diagnostic) {
	g, diags := cfg.Build(decl)
	if g != nil {
		p.Registry.Register(g)
	}
	return g, diags
}

// BuildAll runs BuildCFG over every protocol declaration in mod, in
// declaration order, returning each by name.
func (p *Pipeline) BuildAll(mod *ast.Module) (map[string]*cfg.Graph, []diag.Diagnostic) {
	out := map[string]*cfg.Graph{}
	var allDiags []diag.Diagnostic
	for _, d := range mod.Declarations {
		decl, ok := d.(*ast.ProtocolDecl)
		if !ok {
			continue
		}
		g, diags := p.BuildCFG(decl)
		allDiags = append(allDiags, diags...)
		if g != nil {
			out[decl.Name] = g
		}
	}
	return out, allDiags
}

// VerifyWellFormed checks connectedness, choice determinism and race
// freedom over g (spec §6 "verifyWellFormed").
func (p *Pipeline) VerifyWellFormed(g *cfg.Graph) verify.Result {
	return verify.WellFormed(g)
}

// Project derives the Role -> CFSM map for g (spec §6 "project").
func (p *Pipeline) Project(g *cfg.Graph) (cfsm.Map, []diag.Diagnostic) {
	return project.Project(g, p.Registry, int(p.Options.CallStackMax))
}

// CheckSafety decides Γ ⊨ φ over cfsms under the configured
// SafetyProperty and buffer bound (spec §6 "checkSafety").
func (p *Pipeline) CheckSafety(cfsms cfsm.Map, roles []mpst.Role) safety.Result {
	return safety.Check(cfsms, roles, p.Options)
}

// SimulateGlobal runs the CFG-level simulator to completion/stuck/max-
// steps and returns its trace (spec §6 "simulateGlobal").
func (p *Pipeline) SimulateGlobal(g *cfg.Graph) (sim.Status, []sim.Event, []diag.Diagnostic) {
	s := sim.NewGlobal(g, p.Registry, p.Options)
	status := s.Run()
	return status, s.Trace(), s.Diagnostics()
}

// SimulateAsync runs the CFSM-level simulator to completion/stuck/max-
// steps and returns its trace plus final Γ (spec §6 "simulateAsync").
func (p *Pipeline) SimulateAsync(cfsms cfsm.Map, roles []mpst.Role) (sim.Status, []sim.Event, *safety.Context, []diag.Diagnostic) {
	s := sim.NewAsync(cfsms, roles, p.Options)
	status := s.Run()
	return status, s.Trace(), s.Context(), s.Diagnostics()
}

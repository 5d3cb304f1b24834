/*
Package mpst is a static analyzer and interactive simulator for Multiparty
Session Type (MPST) protocols written in a Scribble-like surface syntax.

Given protocol source text, the package lowers it through a pipeline:

	source text -> lex.Lexer -> parse.Parser -> ast.Module
	            -> cfg.Build            (control-flow graph per global protocol)
	            -> verify.WellFormed    (connectedness, choice determinism, race freedom)
	            -> project.Project      (per-role CFSMs)
	            -> safety.Check         (Γ ⊨ φ under weak-transition semantics)
	            -> sim.Global / sim.Async (interactive stepping)

Package structure mirrors the stages above:

■ lex: tokenizes source text.
■ ast: the abstract syntax tree, immutable after construction.
■ parse: recursive-descent parser producing an ast.Module plus diagnostics.
■ cfg: lowers one global protocol into a control-flow graph.
■ verify: checks well-formedness properties over a cfg.Graph.
■ project: derives one CFSM per role from a cfg.Graph.
■ cfsm: the communicating finite state machine data model.
■ safety: decides Γ ⊨ φ over a composed CFSM map under weak-transition semantics.
■ sim: stepwise interpreters, both over the CFG and over composed CFSMs.
■ registry: resolves sub-protocol invocations and manages the shared call stack.

The base package contains only the data types shared by every other
package (Role, Message, TypeExpr, SourceLocation, Channel); it imports
nothing else in this module. Package pipeline wires the stages above
into a Pipeline type matching the specification's API surface.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package mpst

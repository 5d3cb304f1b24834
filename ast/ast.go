/*
Package ast defines the algebraic AST node types for the Scribble-subset
grammar (spec §3, §4.1). Nodes are tagged sums over an Interaction
interface with exhaustive switches at consumers (cfg.Build), matching the
"variant-heavy AST/CFG node kinds" guidance of the core spec's design
notes: no inheritance hierarchies, just discriminated unions.

AST is immutable after construction: nothing in this package exposes a
setter once a Module has been returned from parse.Parse.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package ast

import "github.com/mpstkit/mpst"

// Node is implemented by every AST node; it exposes the node's source
// location for diagnostics.
type Node interface {
	Loc() mpst.SourceLocation
}

// Base carries the source location shared by every node; embed it to
// satisfy Node / Declaration / Interaction.
type Base struct {
	Location mpst.SourceLocation
}

// Loc implements Node.
func (b Base) Loc() mpst.SourceLocation { return b.Location }

// At constructs a Base from a location, for use by the parser when
// building node literals.
func At(loc mpst.SourceLocation) Base { return Base{Location: loc} }

// Module is an ordered sequence of top-level declarations.
type Module struct {
	Base
	Declarations []Declaration
}

// Declaration is the sum type for top-level Module entries.
type Declaration interface {
	Node
	declNode()
}

// Import is `import Ident;` — accepted syntactically; the analyzer does
// not resolve cross-file imports (out of scope, spec §1).
type Import struct {
	Base
	Path string
}

func (Import) declNode() {}

// TypeDecl is `type Ident as TypeExpr;` (also `type Ident: TypeExpr;`, or
// a bare `type Ident;`) nominal type aliasing, accepted syntactically for
// the payload-type sublanguage.
type TypeDecl struct {
	Base
	Name string
	Expr mpst.TypeExpr
}

func (TypeDecl) declNode() {}

// ProtocolDecl is a (global or local) protocol declaration.
type ProtocolDecl struct {
	Base
	Name       string
	Global     bool // false for `local protocol`, true for `global`/bare `protocol`
	TypeParams []string
	Roles      []mpst.Role
	Body       []Interaction
}

func (ProtocolDecl) declNode() {}

// Interaction is the sum type for statements inside a protocol body.
type Interaction interface {
	Node
	interactionNode()
}

// MessageTransfer is `p -> q1, q2: label(Type);` (or the `from`/`to`
// equivalent surface form — both parse to this same node).
type MessageTransfer struct {
	Base
	From    mpst.Role
	To      []mpst.Role // one or more receivers (multicast)
	Message mpst.Message
}

func (MessageTransfer) interactionNode() {}

// Choice is `choice at r { ... } or { ... } (or { ... })*`, at least two
// branches.
type Choice struct {
	Base
	At       mpst.Role
	Branches [][]Interaction
}

func (Choice) interactionNode() {}

// Parallel is `par { ... } and { ... } (and { ... })*`, at least two
// branches.
type Parallel struct {
	Base
	Branches [][]Interaction
}

func (Parallel) interactionNode() {}

// Recursion is `rec L { ... }`.
type Recursion struct {
	Base
	Label string
	Body  []Interaction
}

func (Recursion) interactionNode() {}

// Continue is `continue L;`.
type Continue struct {
	Base
	Label string
}

func (Continue) interactionNode() {}

// Do is `do P<TypeArgs>(r1, r2, ...);` — a sub-protocol invocation with
// role substitution. Resolution against a registry is deferred to
// cfg.Build / project.Project / sim.
type Do struct {
	Base
	Protocol string
	TypeArgs []mpst.TypeExpr
	Roles    []mpst.Role
}

func (Do) interactionNode() {}

// UnsupportedConstruct marks a syntactically-accepted but unimplemented
// "dynamic MPST" extension (spec §4.1: updatableRecursion, protocolCall,
// createParticipants, invitation, dynamicRoleDeclaration). It is never
// silently dropped: a downstream pass that encounters one must emit a
// diag.UnsupportedConstruct diagnostic rather than ignore it.
type UnsupportedConstruct struct {
	Base
	Keyword string
}

func (UnsupportedConstruct) interactionNode() {}

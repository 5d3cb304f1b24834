/*
Package diag implements the structured diagnostic type shared by every
pipeline stage (lexer, parser, CFG builder, verifier, projector, safety
checker, simulator) plus a caret-aligned pretty-printer.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package diag

import (
	"fmt"

	"github.com/mpstkit/mpst"
)

// Severity distinguishes blocking errors from advisory warnings.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind enumerates every diagnostic kind visible at the API boundary
// (spec §6).
type Kind string

const (
	LexError                Kind = "LexError"
	ParseError              Kind = "ParseError"
	UndeclaredRole          Kind = "UndeclaredRole"
	DuplicateRole           Kind = "DuplicateRole"
	Disconnected            Kind = "Disconnected"
	EmptyChoice             Kind = "EmptyChoice"
	EmptyParallel           Kind = "EmptyParallel"
	DanglingContinue        Kind = "DanglingContinue"
	DuplicateRecursionLabel Kind = "DuplicateRecursionLabel"
	UnprojectableMerge      Kind = "UnprojectableMerge"
	UnresolvedSubProtocol   Kind = "UnresolvedSubProtocol"
	RoleArityMismatch       Kind = "RoleArityMismatch"
	Race                    Kind = "Race"
	AmbiguousChoice         Kind = "AmbiguousChoice"
	UnusedRole              Kind = "UnusedRole" // warning
	MaxSteps                Kind = "MaxSteps"
	CallStackOverflow       Kind = "CallStackOverflow"
	SafetyViolation         Kind = "SafetyViolation"
	BufferOverflow          Kind = "BufferOverflow"
	UnsupportedConstruct    Kind = "UnsupportedConstruct"
	Internal                Kind = "Internal"
)

// Diagnostic is the structured value every stage reports through.
type Diagnostic struct {
	Kind            Kind
	Severity        Severity
	Message         string
	Location        mpst.SourceLocation
	OffendingEntity string
}

func (d Diagnostic) String() string {
	if d.Location.IsZero() {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: [%s] %s: %s", d.Location, d.Severity, d.Kind, d.Message)
}

// New builds an error-severity diagnostic.
func New(kind Kind, loc mpst.SourceLocation, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Severity: Error, Message: fmt.Sprintf(format, args...), Location: loc}
}

// Warn builds a warning-severity diagnostic.
func Warn(kind Kind, loc mpst.SourceLocation, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Severity: Warning, Message: fmt.Sprintf(format, args...), Location: loc}
}

// HasErrors reports whether any diagnostic in ds has Severity == Error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Errors filters ds down to error-severity diagnostics.
func Errors(ds []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// Warnings filters ds down to warning-severity diagnostics.
func Warnings(ds []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		if d.Severity == Warning {
			out = append(out, d)
		}
	}
	return out
}

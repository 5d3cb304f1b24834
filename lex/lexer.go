/*
Package lex tokenizes Scribble-subset source text using a lexmachine
DFA, following the pattern of lr/scanner/lexmachine.go and
terex/terexlang/scan.go: a regex-driven rule set compiled once per
process and reused across Scanner() calls.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package lex

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mpstkit/mpst"
	"github.com/npillmayer/schuko/tracing"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.lex")
}

var (
	lexerOnce sync.Once
	sharedLM  *lexmachine.Lexer
	lmErr     error
)

func tokenAction(tt TokType) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(int(tt), string(m.Bytes), m), nil
	}
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

// buildLexer compiles the shared DFA exactly once, mirroring the
// sync.Once pattern in terex/terexlang/scan.go's initTokens().
func buildLexer() (*lexmachine.Lexer, error) {
	lexerOnce.Do(func() {
		lx := lexmachine.NewLexer()
		lx.Add([]byte(`//[^\n]*`), skip) // line comments, stripped before tokenization
		lx.Add([]byte(`( |\t|\n|\r)+`), skip)

		// keywords, longest-match-first handled by lexmachine's DFA priority
		for word, tt := range keywords {
			lx.Add([]byte(word), tokenAction(tt))
		}

		lx.Add([]byte(`->`), tokenAction(Arrow))
		lx.Add([]byte(`\(`), tokenAction(LParen))
		lx.Add([]byte(`\)`), tokenAction(RParen))
		lx.Add([]byte(`\{`), tokenAction(LBrace))
		lx.Add([]byte(`\}`), tokenAction(RBrace))
		lx.Add([]byte(`,`), tokenAction(Comma))
		lx.Add([]byte(`;`), tokenAction(Semi))
		lx.Add([]byte(`:`), tokenAction(Colon))
		lx.Add([]byte(`<`), tokenAction(Lt))
		lx.Add([]byte(`>`), tokenAction(Gt))

		lx.Add([]byte(`"[^"]*"`), tokenAction(String))
		lx.Add([]byte(`[0-9]+(\.[0-9]+)?`), tokenAction(Number))
		lx.Add([]byte(`[A-Za-z][A-Za-z0-9_]*`), tokenAction(Ident))

		lmErr = lx.Compile()
		sharedLM = lx
	})
	return sharedLM, lmErr
}

// Lexer tokenizes one source text into a Token stream.
type Lexer struct {
	sourceID string
	scanner  *lexmachine.Scanner
	errs     []error
}

// New creates a Lexer for input, identified by sourceID for diagnostics.
func New(sourceID, input string) (*Lexer, error) {
	lx, err := buildLexer()
	if err != nil {
		return nil, fmt.Errorf("lexer DFA did not compile: %w", err)
	}
	s, err := lx.Scanner([]byte(input))
	if err != nil {
		return nil, err
	}
	return &Lexer{sourceID: sourceID, scanner: s}, nil
}

// Errors returns lexical errors accumulated during scanning (unconsumed
// input spans the DFA rule set could not match).
func (l *Lexer) Errors() []error { return l.errs }

// Next returns the next Token, or a Token with Type == EOF at end of input.
func (l *Lexer) Next() Token {
	for {
		tok, err, eof := l.scanner.Next()
		if eof {
			return Token{Type: EOF}
		}
		if err != nil {
			l.errs = append(l.errs, err)
			tracer().Errorf("lex error in %s: %v", l.sourceID, err)
			if ui, ok := err.(*machines.UnconsumedInput); ok {
				l.scanner.TC = ui.FailTC
				continue
			}
			continue
		}
		t := tok.(*lexmachine.Token)
		return Token{
			Type:   TokType(t.Type),
			Lexeme: string(t.Lexeme),
			Loc: mpst.SourceLocation{
				Line:   t.StartLine,
				Column: t.StartColumn,
				Offset: t.TC,
				Length: len(t.Lexeme),
			},
		}
	}
}

// Tokens lexes the entire input into a slice, for tests and tooling.
func Tokens(sourceID, input string) ([]Token, error) {
	l, err := New(sourceID, input)
	if err != nil {
		return nil, err
	}
	var out []Token
	for {
		t := l.Next()
		out = append(out, t)
		if t.Type == EOF {
			break
		}
	}
	return out, nil
}

// StripComments removes `// ...` line comments from src, as a textual
// pre-pass (spec §4.1: "Comments // … are stripped before tokenization").
// The lexer's own skip-rule for comments makes this redundant in practice,
// but callers that want to pretty-print source without the lexer may use
// it directly.
func StripComments(src string) string {
	lines := strings.Split(src, "\n")
	for i, ln := range lines {
		if idx := strings.Index(ln, "//"); idx >= 0 {
			lines[i] = ln[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

/*
Package parse implements a recursive-descent parser over the token
stream produced by package lex. It follows the "fold-style recursive
descent rather than a mutable-state visitor class" guidance of the core
spec's design notes: each AST node kind is built in exactly one function.

Error recovery: on a parse error at the declaration level the parser
resynchronizes at the next token that can start a top-level declaration
and continues, accumulating diagnostics (spec §4.1). Inside a protocol
body a failed expectation is recorded and parsing continues at the
current token; a token that cannot start an interaction is recorded and
skipped.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package parse

import (
	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/lex"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.parse")
}

// Parser holds the state of one parse over a token stream.
type Parser struct {
	sourceID string
	toks     []lex.Token
	pos      int
	diags    []diag.Diagnostic
}

// Parse tokenizes and parses source text into a Module, plus any
// diagnostics accumulated along the way (lex errors are folded in as
// diag.LexError). A non-nil Module is always returned, even in the
// presence of errors, containing whatever declarations were recovered.
func Parse(sourceID, source string) (*ast.Module, []diag.Diagnostic) {
	p := &Parser{sourceID: sourceID}
	l, err := lex.New(sourceID, source)
	if err != nil {
		p.diags = append(p.diags, diag.New(diag.LexError, mpst.SourceLocation{}, "tokenizing %s: %v", sourceID, err))
		return &ast.Module{}, p.diags
	}
	for t := l.Next(); ; t = l.Next() {
		p.toks = append(p.toks, t)
		if t.Type == lex.EOF {
			break
		}
	}
	for _, e := range l.Errors() {
		p.diags = append(p.diags, diag.New(diag.LexError, mpst.SourceLocation{}, "tokenizing %s: %v", sourceID, e))
	}
	return p.parseModule(), p.diags
}

func (p *Parser) cur() lex.Token {
	if p.pos >= len(p.toks) {
		return lex.Token{Type: lex.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) lex.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return lex.Token{Type: lex.EOF}
	}
	return p.toks[i]
}

func (p *Parser) advance() lex.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt lex.TokType) bool { return p.cur().Type == tt }

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diags = append(p.diags, diag.New(diag.ParseError, p.cur().Loc, format, args...))
}

// expect consumes a token of type tt or records a ParseError and returns
// the zero Token, leaving the cursor in place so resync logic can inspect
// what's actually there.
func (p *Parser) expect(tt lex.TokType, what string) (lex.Token, bool) {
	if p.at(tt) {
		return p.advance(), true
	}
	p.errorf("expected %s, got %q", what, p.cur().Lexeme)
	return lex.Token{}, false
}

// isDeclStart reports whether t can begin a top-level declaration; used
// both by the main loop and by error-recovery resync.
func isDeclStart(t lex.Token) bool {
	switch t.Type {
	case lex.KwImport, lex.KwType, lex.KwGlobal, lex.KwLocal, lex.KwProtocol:
		return true
	}
	return false
}

// resync skips tokens until one that can start a new declaration, or EOF.
// This is the "attempt to resynchronize at the next top-level declaration"
// behavior required by spec §4.1.
func (p *Parser) resync() {
	for !p.at(lex.EOF) && !isDeclStart(p.cur()) {
		p.advance()
	}
}

func (p *Parser) parseModule() *ast.Module {
	m := &ast.Module{}
	for !p.at(lex.EOF) {
		if !isDeclStart(p.cur()) {
			p.errorf("expected a declaration, got %q", p.cur().Lexeme)
			p.advance()
			p.resync()
			continue
		}
		before := p.pos
		d := p.parseDecl()
		if d != nil {
			m.Declarations = append(m.Declarations, d)
		}
		if p.pos == before { // safety valve: guarantee forward progress
			p.advance()
		}
	}
	return m
}

func (p *Parser) parseDecl() ast.Declaration {
	switch p.cur().Type {
	case lex.KwImport:
		return p.parseImport()
	case lex.KwType:
		return p.parseTypeDecl()
	case lex.KwGlobal, lex.KwLocal, lex.KwProtocol:
		return p.parseProtocol()
	default:
		p.errorf("unexpected token %q at top level", p.cur().Lexeme)
		p.resync()
		return nil
	}
}

func (p *Parser) parseImport() ast.Declaration {
	loc := p.cur().Loc
	p.advance() // 'import'
	name, ok := p.expect(lex.Ident, "identifier")
	if !ok {
		p.resync()
		return nil
	}
	p.expect(lex.Semi, "';'")
	return &ast.Import{Base: ast.At(loc), Path: name.Lexeme}
}

func (p *Parser) parseTypeDecl() ast.Declaration {
	loc := p.cur().Loc
	p.advance() // 'type'
	name, ok := p.expect(lex.Ident, "identifier")
	if !ok {
		p.resync()
		return nil
	}
	decl := &ast.TypeDecl{Base: ast.At(loc), Name: name.Lexeme}
	if p.at(lex.KwAs) || p.at(lex.Colon) {
		p.advance()
		decl.Expr = p.parseTypeExpr()
	}
	p.expect(lex.Semi, "';'")
	return decl
}

func (p *Parser) parseTypeExpr() mpst.TypeExpr {
	name, _ := p.expect(lex.Ident, "type name")
	t := mpst.TypeExpr{Name: name.Lexeme}
	if p.at(lex.Lt) {
		p.advance()
		t.Args = append(t.Args, p.parseTypeExpr())
		for p.at(lex.Comma) {
			p.advance()
			t.Args = append(t.Args, p.parseTypeExpr())
		}
		p.expect(lex.Gt, "'>'")
	}
	return t
}

func (p *Parser) parseProtocol() ast.Declaration {
	loc := p.cur().Loc
	global := false
	local := false
	if p.at(lex.KwGlobal) {
		global = true
		p.advance()
	} else if p.at(lex.KwLocal) {
		local = true
		p.advance()
	}
	if !p.at(lex.KwProtocol) {
		p.errorf("expected 'protocol', got %q", p.cur().Lexeme)
		p.resync()
		return nil
	}
	p.advance()
	name, ok := p.expect(lex.Ident, "protocol name")
	if !ok {
		p.resync()
		return nil
	}
	decl := &ast.ProtocolDecl{Base: ast.At(loc), Name: name.Lexeme, Global: global || !local}
	if p.at(lex.Lt) {
		p.advance()
		for {
			tp, ok := p.expect(lex.Ident, "type parameter")
			if ok {
				decl.TypeParams = append(decl.TypeParams, tp.Lexeme)
			}
			if !p.at(lex.Comma) {
				break
			}
			p.advance()
		}
		p.expect(lex.Gt, "'>'")
	}
	if _, ok := p.expect(lex.LParen, "'('"); !ok {
		p.resync()
		return decl
	}
	decl.Roles = p.parseRoleList()
	p.expect(lex.RParen, "')'")
	if _, ok := p.expect(lex.LBrace, "'{'"); !ok {
		p.resync()
		return decl
	}
	decl.Body = p.parseBody()
	p.expect(lex.RBrace, "'}'")
	return decl
}

func (p *Parser) parseRoleList() []mpst.Role {
	var roles []mpst.Role
	for {
		if !p.at(lex.KwRole) {
			p.errorf("expected 'role', got %q", p.cur().Lexeme)
			break
		}
		p.advance()
		name, ok := p.expect(lex.Ident, "role name")
		if ok {
			roles = append(roles, mpst.Role{Name: name.Lexeme})
		}
		if !p.at(lex.Comma) {
			break
		}
		p.advance()
	}
	return roles
}

// bodyEnd reports whether the current token ends an interaction body
// (closing brace, 'or', 'and', or EOF).
func (p *Parser) bodyEnd() bool {
	switch p.cur().Type {
	case lex.RBrace, lex.KwOr, lex.KwAnd, lex.EOF:
		return true
	}
	return false
}

func (p *Parser) parseBody() []Interaction {
	return p.parseInteractions()
}

// Interaction aliases ast.Interaction for brevity within this file.
type Interaction = ast.Interaction

func (p *Parser) parseInteractions() []Interaction {
	var body []Interaction
	for !p.bodyEnd() {
		before := p.pos
		it := p.parseInteraction()
		if it != nil {
			body = append(body, it)
		}
		if p.pos == before {
			p.advance()
		}
	}
	return body
}

func (p *Parser) parseInteraction() Interaction {
	switch p.cur().Type {
	case lex.KwChoice:
		return p.parseChoice()
	case lex.KwPar:
		return p.parseParallel()
	case lex.KwRec:
		return p.parseRecursion()
	case lex.KwContinue:
		return p.parseContinue()
	case lex.KwDo:
		return p.parseDo()
	case lex.KwTry, lex.KwThrow, lex.KwTimeout, lex.KwNew, lex.KwCreates, lex.KwInvites:
		return p.parseUnsupported()
	case lex.Ident:
		return p.parseMessageOrTransfer()
	default:
		p.errorf("unexpected token %q in protocol body", p.cur().Lexeme)
		return nil
	}
}

func (p *Parser) parseUnsupported() Interaction {
	tok := p.advance()
	// best-effort: skip to the statement terminator so later content still
	// parses; the kind is preserved for the caller to diagnose.
	for !p.at(lex.Semi) && !p.at(lex.RBrace) && !p.at(lex.EOF) {
		p.advance()
	}
	if p.at(lex.Semi) {
		p.advance()
	}
	return &ast.UnsupportedConstruct{Base: ast.At(tok.Loc), Keyword: tok.Lexeme}
}

func (p *Parser) parseChoice() Interaction {
	loc := p.cur().Loc
	p.advance() // 'choice'
	p.expect(lex.KwAt, "'at'")
	roleTok, _ := p.expect(lex.Ident, "role name")
	n := &ast.Choice{Base: ast.At(loc), At: mpst.Role{Name: roleTok.Lexeme}}
	p.expect(lex.LBrace, "'{'")
	n.Branches = append(n.Branches, p.parseInteractions())
	p.expect(lex.RBrace, "'}'")
	for p.at(lex.KwOr) {
		p.advance()
		p.expect(lex.LBrace, "'{'")
		n.Branches = append(n.Branches, p.parseInteractions())
		p.expect(lex.RBrace, "'}'")
	}
	if len(n.Branches) < 2 {
		p.diags = append(p.diags, diag.New(diag.EmptyChoice, loc, "choice at %s has fewer than 2 branches", n.At.Name))
	}
	return n
}

func (p *Parser) parseParallel() Interaction {
	loc := p.cur().Loc
	p.advance() // 'par'
	n := &ast.Parallel{Base: ast.At(loc)}
	p.expect(lex.LBrace, "'{'")
	n.Branches = append(n.Branches, p.parseInteractions())
	p.expect(lex.RBrace, "'}'")
	for p.at(lex.KwAnd) {
		p.advance()
		p.expect(lex.LBrace, "'{'")
		n.Branches = append(n.Branches, p.parseInteractions())
		p.expect(lex.RBrace, "'}'")
	}
	if len(n.Branches) < 2 {
		p.diags = append(p.diags, diag.New(diag.EmptyParallel, loc, "par has fewer than 2 branches"))
	}
	return n
}

func (p *Parser) parseRecursion() Interaction {
	loc := p.cur().Loc
	p.advance() // 'rec'
	label, _ := p.expect(lex.Ident, "recursion label")
	n := &ast.Recursion{Base: ast.At(loc), Label: label.Lexeme}
	p.expect(lex.LBrace, "'{'")
	n.Body = p.parseInteractions()
	p.expect(lex.RBrace, "'}'")
	return n
}

func (p *Parser) parseContinue() Interaction {
	loc := p.cur().Loc
	p.advance() // 'continue'
	label, _ := p.expect(lex.Ident, "recursion label")
	p.expect(lex.Semi, "';'")
	return &ast.Continue{Base: ast.At(loc), Label: label.Lexeme}
}

func (p *Parser) parseDo() Interaction {
	loc := p.cur().Loc
	p.advance() // 'do'
	name, _ := p.expect(lex.Ident, "protocol name")
	n := &ast.Do{Base: ast.At(loc), Protocol: name.Lexeme}
	if p.at(lex.Lt) {
		p.advance()
		for {
			n.TypeArgs = append(n.TypeArgs, p.parseTypeExpr())
			if !p.at(lex.Comma) {
				break
			}
			p.advance()
		}
		p.expect(lex.Gt, "'>'")
	}
	p.expect(lex.LParen, "'('")
	for !p.at(lex.RParen) && !p.at(lex.EOF) {
		r, ok := p.expect(lex.Ident, "role argument")
		if ok {
			n.Roles = append(n.Roles, mpst.Role{Name: r.Lexeme})
		}
		if !p.at(lex.Comma) {
			break
		}
		p.advance()
	}
	p.expect(lex.RParen, "')'")
	p.expect(lex.Semi, "';'")
	return n
}

// parseMessageOrTransfer parses both surface syntaxes for a message
// transfer (spec §4.1):
//
//	Arrow:    p -> q1, q2: label(Type);
//	Standard: label(Type) from p to q1, q2;
func (p *Parser) parseMessageOrTransfer() Interaction {
	loc := p.cur().Loc
	// Disambiguate: arrow form starts with an identifier followed by '->';
	// standard form starts with a message (ident possibly followed by '(').
	if p.peek(1).Type == lex.Arrow {
		from, _ := p.expect(lex.Ident, "sender role")
		p.advance() // '->'
		to := p.parseRoleRefList()
		p.expect(lex.Colon, "':'")
		msg := p.parseMessage()
		p.expect(lex.Semi, "';'")
		return &ast.MessageTransfer{Base: ast.At(loc), From: mpst.Role{Name: from.Lexeme}, To: to, Message: msg}
	}
	msg := p.parseMessage()
	p.expect(lex.KwFrom, "'from'")
	from, _ := p.expect(lex.Ident, "sender role")
	p.expect(lex.KwTo, "'to'")
	to := p.parseRoleRefList()
	p.expect(lex.Semi, "';'")
	return &ast.MessageTransfer{Base: ast.At(loc), From: mpst.Role{Name: from.Lexeme}, To: to, Message: msg}
}

func (p *Parser) parseRoleRefList() []mpst.Role {
	var roles []mpst.Role
	for {
		name, ok := p.expect(lex.Ident, "role name")
		if ok {
			roles = append(roles, mpst.Role{Name: name.Lexeme})
		}
		if !p.at(lex.Comma) {
			break
		}
		p.advance()
	}
	return roles
}

func (p *Parser) parseMessage() mpst.Message {
	label, _ := p.expect(lex.Ident, "message label")
	m := mpst.Message{Label: label.Lexeme}
	if p.at(lex.LParen) {
		p.advance()
		if !p.at(lex.RParen) {
			t := p.parseTypeExpr()
			m.Payload = &t
		}
		p.expect(lex.RParen, "')'")
	}
	return m
}

package lex

import "github.com/mpstkit/mpst"

// TokType categorizes a Token. The literal categories (EOF, Ident, Number,
// String, Comment) are negative values; keyword types start at 100 and
// punctuation types at 200.
type TokType int

const (
	EOF TokType = -(iota + 1)
	Ident
	Number
	String
	Comment
)

// Keyword token types, one per reserved word in spec §4.1.
const (
	KwProtocol TokType = 100 + iota
	KwGlobal
	KwLocal
	KwRole
	KwChoice
	KwAt
	KwOr
	KwPar
	KwAnd
	KwRec
	KwContinue
	KwDo
	KwFrom
	KwTo
	KwImport
	KwType
	KwAs
	KwNew
	KwCalls
	KwCreates
	KwInvites
	KwWith
	KwWithin
	KwTry
	KwCatch
	KwThrow
	KwTimeout
	KwExtends
)

// Punctuation token types.
const (
	LParen TokType = 200 + iota
	RParen
	LBrace
	RBrace
	Comma
	Semi
	Colon
	Lt
	Gt
	Arrow // ->
)

// keywords maps the reserved-word lexemes to their token type.
var keywords = map[string]TokType{
	"protocol": KwProtocol,
	"global":   KwGlobal,
	"local":    KwLocal,
	"role":     KwRole,
	"choice":   KwChoice,
	"at":       KwAt,
	"or":       KwOr,
	"par":      KwPar,
	"and":      KwAnd,
	"rec":      KwRec,
	"continue": KwContinue,
	"do":       KwDo,
	"from":     KwFrom,
	"to":       KwTo,
	"import":   KwImport,
	"type":     KwType,
	"as":       KwAs,
	"new":      KwNew,
	"calls":    KwCalls,
	"creates":  KwCreates,
	"invites":  KwInvites,
	"with":     KwWith,
	"within":   KwWithin,
	"try":      KwTry,
	"catch":    KwCatch,
	"throw":    KwThrow,
	"timeout":  KwTimeout,
	"extends":  KwExtends,
}

func (t TokType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case Ident:
		return "Ident"
	case Number:
		return "Number"
	case String:
		return "String"
	case Comment:
		return "Comment"
	}
	for kw, tt := range keywords {
		if tt == t {
			return kw
		}
	}
	switch t {
	case LParen:
		return "("
	case RParen:
		return ")"
	case LBrace:
		return "{"
	case RBrace:
		return "}"
	case Comma:
		return ","
	case Semi:
		return ";"
	case Colon:
		return ":"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Arrow:
		return "->"
	}
	return "?"
}

// Token is one lexical unit produced by the Lexer.
type Token struct {
	Type   TokType
	Lexeme string
	Loc    mpst.SourceLocation
}

func (t Token) String() string { return t.Type.String() + "(" + t.Lexeme + ")" }

// Package token defines the lexical tokens of the Plasma surface
// syntax.
package token

import "plasma/internal/source"

// Kind enumerates token kinds.
type Kind uint8

const (
	EOF Kind = iota
	Ident
	Number
	String

	// Keywords
	KwModule
	KwFunc
	KwType
	KwVar
	KwMatch
	KwUses
	KwObserves
	KwAnd
	KwOr
	KwNot

	// Punctuation and operators
	LParen
	RParen
	LBrace
	RBrace
	Comma
	Equal
	Colon
	Arrow    // ->
	Bar      // |
	Plus
	Minus
	Star
	Slash
	Percent
	PlusPlus // ++
	Lt
	Gt
	EqEq
	BangEq
	Underscore
)

var kindNames = map[Kind]string{
	EOF:        "end of file",
	Ident:      "identifier",
	Number:     "number",
	String:     "string",
	KwModule:   "'module'",
	KwFunc:     "'func'",
	KwType:     "'type'",
	KwVar:      "'var'",
	KwMatch:    "'match'",
	KwUses:     "'uses'",
	KwObserves: "'observes'",
	KwAnd:      "'and'",
	KwOr:       "'or'",
	KwNot:      "'not'",
	LParen:     "'('",
	RParen:     "')'",
	LBrace:     "'{'",
	RBrace:     "'}'",
	Comma:      "','",
	Equal:      "'='",
	Colon:      "':'",
	Arrow:      "'->'",
	Bar:        "'|'",
	Plus:       "'+'",
	Minus:      "'-'",
	Star:       "'*'",
	Slash:      "'/'",
	Percent:    "'%'",
	PlusPlus:   "'++'",
	Lt:         "'<'",
	Gt:         "'>'",
	EqEq:       "'=='",
	BangEq:     "'!='",
	Underscore: "'_'",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "token?"
}

// Keywords maps identifier spellings to keyword kinds.
var Keywords = map[string]Kind{
	"module":   KwModule,
	"func":     KwFunc,
	"type":     KwType,
	"var":      KwVar,
	"match":    KwMatch,
	"uses":     KwUses,
	"observes": KwObserves,
	"and":      KwAnd,
	"or":       KwOr,
	"not":      KwNot,
}

// Token is one lexical token.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
	Num  int64 // Number tokens
}

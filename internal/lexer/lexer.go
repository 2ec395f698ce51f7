// Package lexer turns Plasma source bytes into tokens.
package lexer

import (
	"fmt"
	"strconv"

	"plasma/internal/diag"
	"plasma/internal/source"
	"plasma/internal/token"
)

type Lexer struct {
	file *source.File
	pos  uint32
	r    diag.Reporter
	look *token.Token // one-token lookahead buffer
}

func New(file *source.File, r diag.Reporter) *Lexer {
	return &Lexer{file: file, r: r}
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	if lx.look == nil {
		t := lx.scan()
		lx.look = &t
	}
	return *lx.look
}

// Next returns the next significant token. After EOF it always returns
// EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		t := *lx.look
		lx.look = nil
		return t
	}
	return lx.scan()
}

func (lx *Lexer) scan() token.Token {
	lx.skipTrivia()
	start := lx.pos
	if lx.eof() {
		return token.Token{Kind: token.EOF, Span: lx.span(start)}
	}
	c := lx.byte()
	switch {
	case isIdentStart(c):
		return lx.scanIdent()
	case c >= '0' && c <= '9':
		return lx.scanNumber()
	case c == '"':
		return lx.scanString()
	}
	lx.pos++
	two := func(kind token.Kind) token.Token {
		lx.pos++
		return token.Token{Kind: kind, Span: lx.span(start)}
	}
	switch c {
	case '(':
		return token.Token{Kind: token.LParen, Span: lx.span(start)}
	case ')':
		return token.Token{Kind: token.RParen, Span: lx.span(start)}
	case '{':
		return token.Token{Kind: token.LBrace, Span: lx.span(start)}
	case '}':
		return token.Token{Kind: token.RBrace, Span: lx.span(start)}
	case ',':
		return token.Token{Kind: token.Comma, Span: lx.span(start)}
	case ':':
		return token.Token{Kind: token.Colon, Span: lx.span(start)}
	case '|':
		return token.Token{Kind: token.Bar, Span: lx.span(start)}
	case '=':
		if !lx.eof() && lx.byte() == '=' {
			return two(token.EqEq)
		}
		return token.Token{Kind: token.Equal, Span: lx.span(start)}
	case '-':
		if !lx.eof() && lx.byte() == '>' {
			return two(token.Arrow)
		}
		return token.Token{Kind: token.Minus, Span: lx.span(start)}
	case '+':
		if !lx.eof() && lx.byte() == '+' {
			return two(token.PlusPlus)
		}
		return token.Token{Kind: token.Plus, Span: lx.span(start)}
	case '*':
		return token.Token{Kind: token.Star, Span: lx.span(start)}
	case '/':
		return token.Token{Kind: token.Slash, Span: lx.span(start)}
	case '%':
		return token.Token{Kind: token.Percent, Span: lx.span(start)}
	case '<':
		return token.Token{Kind: token.Lt, Span: lx.span(start)}
	case '>':
		return token.Token{Kind: token.Gt, Span: lx.span(start)}
	case '!':
		if !lx.eof() && lx.byte() == '=' {
			return two(token.BangEq)
		}
	}
	lx.r.Report(diag.NewError(diag.LexUnknownChar, lx.span(start),
		fmt.Sprintf("unknown character %q", string(c))))
	return lx.scan()
}

func (lx *Lexer) scanIdent() token.Token {
	start := lx.pos
	for !lx.eof() && isIdentContinue(lx.byte()) {
		lx.pos++
	}
	text := string(lx.file.Content[start:lx.pos])
	if text == "_" {
		return token.Token{Kind: token.Underscore, Span: lx.span(start), Text: text}
	}
	if kw, ok := token.Keywords[text]; ok {
		return token.Token{Kind: kw, Span: lx.span(start), Text: text}
	}
	return token.Token{Kind: token.Ident, Span: lx.span(start), Text: text}
}

func (lx *Lexer) scanNumber() token.Token {
	start := lx.pos
	for !lx.eof() && lx.byte() >= '0' && lx.byte() <= '9' {
		lx.pos++
	}
	text := string(lx.file.Content[start:lx.pos])
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		lx.r.Report(diag.NewError(diag.LexBadNumber, lx.span(start),
			fmt.Sprintf("bad number %q", text)))
	}
	return token.Token{Kind: token.Number, Span: lx.span(start), Text: text, Num: n}
}

func (lx *Lexer) scanString() token.Token {
	start := lx.pos
	lx.pos++ // opening quote
	var out []byte
	for {
		if lx.eof() || lx.byte() == '\n' {
			lx.r.Report(diag.NewError(diag.LexUnterminatedString, lx.span(start), "unterminated string"))
			break
		}
		c := lx.byte()
		lx.pos++
		if c == '"' {
			break
		}
		if c == '\\' && !lx.eof() {
			esc := lx.byte()
			lx.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"', '\\':
				out = append(out, esc)
			default:
				lx.r.Report(diag.NewError(diag.LexUnknownChar, lx.span(start),
					fmt.Sprintf("unknown escape \\%c", esc)))
			}
			continue
		}
		out = append(out, c)
	}
	return token.Token{Kind: token.String, Span: lx.span(start), Text: string(out)}
}

func (lx *Lexer) skipTrivia() {
	for !lx.eof() {
		c := lx.byte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			lx.pos++
		case c == '/' && lx.pos+1 < uint32(len(lx.file.Content)) && lx.file.Content[lx.pos+1] == '/':
			for !lx.eof() && lx.byte() != '\n' {
				lx.pos++
			}
		case c == '/' && lx.pos+1 < uint32(len(lx.file.Content)) && lx.file.Content[lx.pos+1] == '*':
			lx.skipBlockComment()
		default:
			return
		}
	}
}

func (lx *Lexer) skipBlockComment() {
	start := lx.pos
	lx.pos += 2
	for {
		if lx.pos+1 >= uint32(len(lx.file.Content)) {
			lx.pos = uint32(len(lx.file.Content))
			lx.r.Report(diag.NewError(diag.LexUnterminatedBlockComment, lx.span(start), "unterminated block comment"))
			return
		}
		if lx.byte() == '*' && lx.file.Content[lx.pos+1] == '/' {
			lx.pos += 2
			return
		}
		lx.pos++
	}
}

func (lx *Lexer) eof() bool {
	return lx.pos >= uint32(len(lx.file.Content))
}

func (lx *Lexer) byte() byte {
	return lx.file.Content[lx.pos]
}

func (lx *Lexer) span(start uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: lx.pos}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Package parser builds the surface AST with one-token-lookahead
// recursive descent. Errors accumulate in the reporter; the parser
// produces the best tree it can.
package parser

import (
	"fmt"

	"plasma/internal/ast"
	"plasma/internal/diag"
	"plasma/internal/lexer"
	"plasma/internal/source"
	"plasma/internal/token"
)

type Parser struct {
	lx  *lexer.Lexer
	r   diag.Reporter
	tok token.Token
}

// ParseModule parses one source file.
func ParseModule(file *source.File, r diag.Reporter) *ast.Module {
	p := &Parser{lx: lexer.New(file, r), r: r}
	p.next()
	return p.parseModule()
}

func (p *Parser) next() {
	p.tok = p.lx.Next()
}

func (p *Parser) at(k token.Kind) bool {
	return p.tok.Kind == k
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind) token.Token {
	t := p.tok
	if !p.at(k) {
		p.errorf(diag.SynUnexpectedToken, "expected %s, found %s", k, p.tok.Kind)
		return t
	}
	p.next()
	return t
}

func (p *Parser) errorf(code diag.Code, format string, args ...any) {
	p.r.Report(diag.NewError(code, p.tok.Span, fmt.Sprintf(format, args...)))
}

func (p *Parser) parseModule() *ast.Module {
	m := &ast.Module{Span: p.tok.Span}
	p.expect(token.KwModule)
	m.Name = p.expect(token.Ident).Text

	for !p.at(token.EOF) {
		switch p.tok.Kind {
		case token.KwType:
			m.Types = append(m.Types, p.parseTypeDecl())
		case token.KwFunc:
			m.Funcs = append(m.Funcs, p.parseFuncDecl())
		default:
			p.errorf(diag.SynUnexpectedToken, "expected declaration, found %s", p.tok.Kind)
			p.next()
		}
	}
	return m
}

func (p *Parser) parseTypeDecl() *ast.TypeDecl {
	span := p.tok.Span
	p.expect(token.KwType)
	td := &ast.TypeDecl{Span: span, Name: p.expect(token.Ident).Text}
	if p.eat(token.LParen) {
		for {
			td.Params = append(td.Params, p.expect(token.Ident).Text)
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RParen)
	}
	p.expect(token.Equal)
	td.Ctors = append(td.Ctors, p.parseCtorDecl())
	for p.eat(token.Bar) {
		td.Ctors = append(td.Ctors, p.parseCtorDecl())
	}
	return td
}

func (p *Parser) parseCtorDecl() ast.CtorDecl {
	name := p.expect(token.Ident)
	cd := ast.CtorDecl{Name: name.Text, Span: name.Span}
	if p.eat(token.LParen) {
		for {
			f := ast.FieldDecl{Span: p.tok.Span, Name: p.expect(token.Ident).Text}
			p.expect(token.Colon)
			f.Type = p.parseTypeExpr()
			cd.Fields = append(cd.Fields, f)
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RParen)
	}
	return cd
}

func (p *Parser) parseTypeExpr() ast.TypeExpr {
	name := p.expect(token.Ident)
	te := ast.TypeExpr{Name: name.Text, Span: name.Span}
	if p.eat(token.LParen) {
		for {
			te.Args = append(te.Args, p.parseTypeExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RParen)
	}
	return te
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	span := p.tok.Span
	p.expect(token.KwFunc)
	fd := &ast.FuncDecl{Span: span, Name: p.expect(token.Ident).Text}
	p.expect(token.LParen)
	if !p.at(token.RParen) {
		for {
			prm := ast.ParamDecl{Span: p.tok.Span, Name: p.expect(token.Ident).Text}
			p.expect(token.Colon)
			prm.Type = p.parseTypeExpr()
			fd.Params = append(fd.Params, prm)
			if !p.eat(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen)

	for p.at(token.KwUses) || p.at(token.KwObserves) {
		observes := p.at(token.KwObserves)
		p.next()
		for {
			name := p.expect(token.Ident).Text
			if observes {
				fd.Observes = append(fd.Observes, name)
			} else {
				fd.Uses = append(fd.Uses, name)
			}
			if !p.eat(token.Comma) {
				break
			}
		}
	}

	if p.eat(token.Arrow) {
		for {
			fd.Results = append(fd.Results, p.parseTypeExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
	}
	fd.Body = p.parseBlock()
	return fd
}

func (p *Parser) parseBlock() *ast.Block {
	b := &ast.Block{Span: p.tok.Span}
	p.expect(token.LBrace)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	b.Span = b.Span.Cover(p.tok.Span)
	p.expect(token.RBrace)
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	st := ast.Stmt{Span: p.tok.Span}
	if p.eat(token.KwVar) {
		for {
			st.Vars = append(st.Vars, p.expect(token.Ident).Text)
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.Equal)
	}
	st.Expr = p.parseExpr()
	if st.Expr != nil {
		st.Span = st.Span.Cover(st.Expr.Span())
	}
	return st
}

// Binary operators desugar to builtin function calls; the parser records
// the builtin's name directly.
var binOps = map[token.Kind]string{
	token.Plus:     "add_int",
	token.Minus:    "sub_int",
	token.Star:     "mul_int",
	token.Slash:    "div_int",
	token.Percent:  "mod_int",
	token.PlusPlus: "concat_string",
	token.Lt:       "lt_int",
	token.Gt:       "gt_int",
	token.EqEq:     "eq_int",
	token.BangEq:   "neq_int",
	token.KwAnd:    "and_bool",
	token.KwOr:     "or_bool",
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(0)
}

// Precedence levels, loosest first.
var precLevels = [][]token.Kind{
	{token.KwOr},
	{token.KwAnd},
	{token.Lt, token.Gt, token.EqEq, token.BangEq},
	{token.Plus, token.Minus, token.PlusPlus},
	{token.Star, token.Slash, token.Percent},
}

func (p *Parser) parseBinary(level int) ast.Expr {
	if level >= len(precLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for {
		matched := false
		for _, k := range precLevels[level] {
			if p.at(k) {
				op := binOps[k]
				opSpan := p.tok.Span
				p.next()
				right := p.parseBinary(level + 1)
				span := opSpan
				if left != nil {
					span = left.Span().Cover(opSpan)
				}
				if right != nil {
					span = span.Cover(right.Span())
				}
				left = &ast.BinaryExpr{Sp: span, Op: op, Left: left, Right: right}
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	if p.at(token.KwNot) {
		span := p.tok.Span
		p.next()
		operand := p.parseUnary()
		if operand != nil {
			span = span.Cover(operand.Span())
		}
		return &ast.UnaryExpr{Sp: span, Op: "not_bool", Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.tok.Kind {
	case token.Number:
		t := p.tok
		p.next()
		return &ast.NumberLit{Sp: t.Span, Value: t.Num}

	case token.String:
		t := p.tok
		p.next()
		return &ast.StringLit{Sp: t.Span, Value: t.Text}

	case token.Ident:
		t := p.tok
		p.next()
		if p.at(token.LParen) {
			return p.parseCallArgs(t)
		}
		return &ast.NameRef{Sp: t.Span, Name: t.Text}

	case token.LParen:
		span := p.tok.Span
		p.next()
		var elems []ast.Expr
		for {
			elems = append(elems, p.parseExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
		span = span.Cover(p.tok.Span)
		p.expect(token.RParen)
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.TupleExpr{Sp: span, Elems: elems}

	case token.KwMatch:
		return p.parseMatch()

	default:
		p.errorf(diag.SynExpectExpr, "expected expression, found %s", p.tok.Kind)
		t := p.tok
		p.next()
		return &ast.NumberLit{Sp: t.Span}
	}
}

func (p *Parser) parseCallArgs(callee token.Token) ast.Expr {
	span := callee.Span
	p.expect(token.LParen)
	var args []ast.Expr
	if !p.at(token.RParen) {
		for {
			args = append(args, p.parseExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
	}
	span = span.Cover(p.tok.Span)
	p.expect(token.RParen)
	return &ast.CallExpr{Sp: span, Callee: callee.Text, Args: args}
}

func (p *Parser) parseMatch() ast.Expr {
	span := p.tok.Span
	p.expect(token.KwMatch)
	m := &ast.MatchExpr{Sp: span, Scrutinee: p.parseExpr()}
	p.expect(token.LBrace)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		cs := ast.MatchCase{Sp: p.tok.Span, Pattern: p.parsePattern()}
		p.expect(token.Arrow)
		if p.at(token.LBrace) {
			blk := p.parseBlock()
			cs.Body = &ast.BlockExpr{Sp: blk.Span, Block: blk}
		} else {
			cs.Body = p.parseExpr()
		}
		m.Cases = append(m.Cases, cs)
	}
	m.Sp = m.Sp.Cover(p.tok.Span)
	p.expect(token.RBrace)
	return m
}

func (p *Parser) parsePattern() ast.Pattern {
	switch p.tok.Kind {
	case token.Underscore:
		t := p.tok
		p.next()
		return ast.Pattern{Kind: ast.PatWildcard, Sp: t.Span}

	case token.Number:
		t := p.tok
		p.next()
		return ast.Pattern{Kind: ast.PatNumber, Sp: t.Span, Num: t.Num}

	case token.Ident:
		t := p.tok
		p.next()
		pat := ast.Pattern{Kind: ast.PatName, Sp: t.Span, Name: t.Text}
		if p.eat(token.LParen) {
			pat.Kind = ast.PatCtor
			for {
				switch p.tok.Kind {
				case token.Underscore:
					pat.Subs = append(pat.Subs, ast.Pattern{Kind: ast.PatWildcard, Sp: p.tok.Span})
					p.next()
				case token.Ident:
					pat.Subs = append(pat.Subs, ast.Pattern{Kind: ast.PatName, Sp: p.tok.Span, Name: p.tok.Text})
					p.next()
				default:
					p.errorf(diag.SynExpectPattern, "expected field pattern, found %s", p.tok.Kind)
					p.next()
				}
				if !p.eat(token.Comma) {
					break
				}
			}
			p.expect(token.RParen)
		}
		return pat

	default:
		p.errorf(diag.SynExpectPattern, "expected pattern, found %s", p.tok.Kind)
		t := p.tok
		p.next()
		return ast.Pattern{Kind: ast.PatWildcard, Sp: t.Span}
	}
}

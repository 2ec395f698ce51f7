package parser_test

import (
	"testing"

	"plasma/internal/ast"
	"plasma/internal/diag"
	"plasma/internal/parser"
	"plasma/internal/source"
)

func parse(t *testing.T, src string) (*ast.Module, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.p", []byte(src))
	bag := diag.NewBag(20)
	m := parser.ParseModule(fs.Get(id), diag.BagReporter{Bag: bag})
	return m, bag
}

func TestParseTypeDecl(t *testing.T) {
	m, bag := parse(t, `
module demo

type List2(t) = Nil2 | Cons2(head: t, tail: List2(t))
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	if m.Name != "demo" || len(m.Types) != 1 {
		t.Fatalf("module shape wrong: %+v", m)
	}
	td := m.Types[0]
	if td.Name != "List2" || len(td.Params) != 1 || td.Params[0] != "t" {
		t.Errorf("type header: %+v", td)
	}
	if len(td.Ctors) != 2 {
		t.Fatalf("ctor count %d", len(td.Ctors))
	}
	cons := td.Ctors[1]
	if cons.Name != "Cons2" || len(cons.Fields) != 2 {
		t.Fatalf("Cons2: %+v", cons)
	}
	if cons.Fields[1].Type.Name != "List2" || len(cons.Fields[1].Type.Args) != 1 {
		t.Errorf("tail field type: %+v", cons.Fields[1].Type)
	}
}

func TestParseFuncDecl(t *testing.T) {
	m, bag := parse(t, `
module demo

func greet(name: String) uses IO -> String {
    var msg = "hi " ++ name
    msg
}
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	fd := m.Funcs[0]
	if fd.Name != "greet" || len(fd.Params) != 1 || len(fd.Results) != 1 {
		t.Fatalf("func header: %+v", fd)
	}
	if len(fd.Uses) != 1 || fd.Uses[0] != "IO" {
		t.Errorf("uses clause: %v", fd.Uses)
	}
	if len(fd.Body.Stmts) != 2 {
		t.Fatalf("stmt count %d", len(fd.Body.Stmts))
	}
	if fd.Body.Stmts[0].Vars[0] != "msg" {
		t.Errorf("var binding: %+v", fd.Body.Stmts[0])
	}
	if _, ok := fd.Body.Stmts[0].Expr.(*ast.BinaryExpr); !ok {
		t.Errorf("rhs not a binary expr: %T", fd.Body.Stmts[0].Expr)
	}
}

func TestParsePrecedence(t *testing.T) {
	m, bag := parse(t, `
module demo

func f() -> Bool {
    1 + 2 * 3 < 10
}
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	cmp, ok := m.Funcs[0].Body.Stmts[0].Expr.(*ast.BinaryExpr)
	if !ok || cmp.Op != "lt_int" {
		t.Fatalf("top is %+v, want lt_int", m.Funcs[0].Body.Stmts[0].Expr)
	}
	add, ok := cmp.Left.(*ast.BinaryExpr)
	if !ok || add.Op != "add_int" {
		t.Fatalf("left of < is %+v, want add_int", cmp.Left)
	}
	if mul, ok := add.Right.(*ast.BinaryExpr); !ok || mul.Op != "mul_int" {
		t.Errorf("right of + is %+v, want mul_int", add.Right)
	}
}

func TestParseMatch(t *testing.T) {
	m, bag := parse(t, `
module demo

func f(xs: List(Int)) -> Int {
    match xs {
        Cons(h, _) -> h
        Nil -> 0
        _ -> 0 - 1
    }
}
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	match, ok := m.Funcs[0].Body.Stmts[0].Expr.(*ast.MatchExpr)
	if !ok {
		t.Fatalf("not a match: %T", m.Funcs[0].Body.Stmts[0].Expr)
	}
	if len(match.Cases) != 3 {
		t.Fatalf("case count %d", len(match.Cases))
	}
	if match.Cases[0].Pattern.Kind != ast.PatCtor || len(match.Cases[0].Pattern.Subs) != 2 {
		t.Errorf("first pattern: %+v", match.Cases[0].Pattern)
	}
	if match.Cases[0].Pattern.Subs[1].Kind != ast.PatWildcard {
		t.Errorf("second sub-pattern should be wildcard")
	}
	if match.Cases[2].Pattern.Kind != ast.PatWildcard {
		t.Errorf("last pattern should be wildcard")
	}
}

func TestParseErrorsAccumulate(t *testing.T) {
	_, bag := parse(t, `
module demo

func f( -> Int {
    $$
}
`)
	if !bag.HasErrors() {
		t.Fatal("malformed source parsed cleanly")
	}
}

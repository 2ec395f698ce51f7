package lower_test

import (
	"testing"

	"plasma/internal/builtin"
	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/lower"
	"plasma/internal/parser"
	"plasma/internal/source"
)

func lowerSource(t *testing.T, src string) (*core.Core, *builtin.Table, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.p", []byte(src))
	bag := diag.NewBag(20)
	rep := diag.BagReporter{Bag: bag}
	m := parser.ParseModule(fs.Get(id), rep)
	c := core.NewCore(core.Name(m.Name))
	tbl := builtin.Install(c)
	lower.Module(m, tbl, c, rep)
	return c, tbl, bag
}

func TestLowerSimpleFunction(t *testing.T) {
	c, _, bag := lowerSource(t, `
module demo

func add3(x: Int, y: Int, z: Int) -> Int {
    x + y + z
}
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	id, ok := c.FuncByName(core.Name("demo").Qualify("add3"))
	if !ok {
		t.Fatal("add3 not registered")
	}
	f := c.MustFunction(id)
	if len(f.Sig.Inputs) != 3 || f.Sig.Arity != 1 {
		t.Fatalf("signature: %+v", f.Sig)
	}
	if f.Body == nil || len(f.Body.Params) != 3 {
		t.Fatal("body or params missing")
	}
	if f.Body.Expr.Kind != core.ExprCall {
		t.Errorf("body kind %v, want Call", f.Body.Expr.Kind)
	}
}

func TestLowerSCCOrder(t *testing.T) {
	c, _, bag := lowerSource(t, `
module demo

func top() -> Int {
    mid() + 1
}

func mid() -> Int {
    bottom()
}

func bottom() -> Int {
    7
}
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	pos := make(map[string]int)
	for i, scc := range c.SCCs() {
		for _, id := range scc {
			pos[c.MustFunction(id).Name.Unqual()] = i
		}
	}
	if !(pos["bottom"] < pos["mid"] && pos["mid"] < pos["top"]) {
		t.Errorf("SCC order not callees-first: %v", pos)
	}
}

func TestLowerMatchIntroducesScrutineeTemp(t *testing.T) {
	c, _, bag := lowerSource(t, `
module demo

func f() -> Int {
    match 1 + 2 {
        3 -> 1
        _ -> 0
    }
}
`)
	if bag.HasErrors() {
		t.Fatalf("errors: %v", bag.Items())
	}
	id, _ := c.FuncByName(core.Name("demo").Qualify("f"))
	body := c.MustFunction(id).Body.Expr
	let, ok := body.Data.(core.LetData)
	if !ok {
		t.Fatalf("scrutinee expression should be let-bound, got %v", body.Kind)
	}
	if let.Body.Kind != core.ExprMatch {
		t.Errorf("let body kind %v, want Match", let.Body.Kind)
	}
	match := let.Body.Data.(core.MatchData)
	if len(let.Vars) != 1 || match.Var != let.Vars[0] {
		t.Errorf("match does not dispatch on the bound temp")
	}
}

func TestLowerUnknownNameError(t *testing.T) {
	_, _, bag := lowerSource(t, `
module demo

func f() -> Int {
    frob(1)
}
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemaUnresolvedSymbol {
			found = true
		}
	}
	if !found {
		t.Errorf("want unresolved symbol, got %v", bag.Items())
	}
}

func TestLowerDuplicateFunction(t *testing.T) {
	_, _, bag := lowerSource(t, `
module demo

func f() -> Int { 1 }
func f() -> Int { 2 }
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemaDuplicateSymbol {
			found = true
		}
	}
	if !found {
		t.Errorf("want duplicate symbol, got %v", bag.Items())
	}
}

func TestLowerCtorArityChecked(t *testing.T) {
	_, _, bag := lowerSource(t, `
module demo

func f() -> List(Int) {
    Cons(1)
}
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemaParameterNumber {
			found = true
		}
	}
	if !found {
		t.Errorf("want parameter number error, got %v", bag.Items())
	}
}

package codegen

import (
	"bytes"
	"testing"

	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/pz"
	"plasma/internal/source"
)

func coreWithStrings(t *testing.T, strs ...string) *core.Core {
	t.Helper()
	c := core.NewCore(core.Name("test"))
	exprs := make([]*core.Expr, 0, len(strs))
	for _, s := range strs {
		exprs = append(exprs, core.NewExpr(source.Span{}, core.ConstantData{
			Const: core.Constant{Kind: core.ConstString, Str: s},
		}))
	}
	vm := core.NewVarmap()
	c.AddFunction(&core.Function{
		Name: core.Name("f"),
		Sig:  core.Signature{Outputs: []core.Type{core.StringType()}, Arity: 1},
		Body: &core.Body{Vars: vm, Expr: core.NewExpr(source.Span{}, core.SequenceData{Exprs: exprs})},
	})
	return c
}

func TestInternSharesIdenticalLiterals(t *testing.T) {
	c := coreWithStrings(t, "yes", "no", "yes")
	prog := pz.New()
	dm := CollectConstData(c, prog, diag.NopReporter{})
	if len(dm) != 2 {
		t.Fatalf("interned %d strings, want 2", len(dm))
	}
	if len(prog.DataIDs()) != 2 {
		t.Fatalf("registered %d data entries, want 2", len(prog.DataIDs()))
	}
	d := prog.MustData(dm["yes"])
	if !bytes.Equal(d.Bytes, []byte("yes\x00")) {
		t.Errorf("payload %q, want NUL-terminated \"yes\"", d.Bytes)
	}
	if d.Kind != pz.DataArray || d.Width != pz.W8 {
		t.Errorf("data shape %+v, want w8 array", d)
	}
}

func TestInternIdempotent(t *testing.T) {
	c := coreWithStrings(t, "a", "b", "a")
	first := CollectConstData(c, pz.New(), diag.NopReporter{})
	second := CollectConstData(c, pz.New(), diag.NopReporter{})
	if len(first) != len(second) {
		t.Fatalf("maps differ in size: %d vs %d", len(first), len(second))
	}
	for s, id := range first {
		if second[s] != id {
			t.Errorf("literal %q: id %d vs %d across runs", s, id, second[s])
		}
	}
}

func TestInternRejectsNonASCII(t *testing.T) {
	c := coreWithStrings(t, "héllo")
	bag := diag.NewBag(10)
	CollectConstData(c, pz.New(), diag.BagReporter{Bag: bag})
	if bag.Len() == 0 || bag.Items()[0].Code != diag.LimNonASCIIString {
		t.Fatalf("want non-ASCII limitation, got %v", bag.Items())
	}
}

package sema_test

import (
	"testing"

	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/sema"
	"plasma/internal/source"
)

func intConst(n int64) *core.Expr {
	return core.NewExpr(source.Span{}, core.ConstantData{
		Const: core.Constant{Kind: core.ConstNumber, Num: n},
	})
}

func strConst(s string) *core.Expr {
	return core.NewExpr(source.Span{}, core.ConstantData{
		Const: core.Constant{Kind: core.ConstString, Str: s},
	})
}

// addFunc registers a function with a single-expression body.
func addFunc(c *core.Core, name string, inputs, outputs []core.Type, build func(vm *core.Varmap, params []core.VarID) *core.Expr) core.FuncID {
	vm := core.NewVarmap()
	params := make([]core.VarID, len(inputs))
	for i := range inputs {
		params[i] = vm.NewVar("arg")
	}
	f := &core.Function{
		Name: core.Name(name),
		Sig: core.Signature{
			Inputs:  inputs,
			Outputs: outputs,
			Arity:   len(outputs),
		},
	}
	if build != nil {
		f.Body = &core.Body{Vars: vm, Params: params, Expr: build(vm, params)}
	}
	return c.AddFunction(f)
}

func TestArityAnnotatesBody(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	id := addFunc(c, "f", nil, []core.Type{core.IntType()}, func(vm *core.Varmap, _ []core.VarID) *core.Expr {
		return core.NewExpr(source.Span{}, core.SequenceData{
			Exprs: []*core.Expr{strConst("side"), intConst(1)},
		})
	})
	c.SetSCCs([][]core.FuncID{{id}})

	bag := diag.NewBag(10)
	failed := sema.InferArity(c, diag.BagReporter{Bag: bag})
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v (%v)", failed, bag.Items())
	}
	body := c.MustFunction(id).Body.Expr
	if body.Info.Arity != 1 {
		t.Errorf("sequence arity = %d, want 1", body.Info.Arity)
	}
	seq := body.Data.(core.SequenceData)
	for _, sub := range seq.Exprs {
		if sub.Info.Arity != 1 {
			t.Errorf("element arity = %d, want 1", sub.Info.Arity)
		}
	}
}

func TestArityRerunIsStable(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	id := addFunc(c, "f", nil, []core.Type{core.IntType()}, func(vm *core.Varmap, _ []core.VarID) *core.Expr {
		return intConst(7)
	})
	c.SetSCCs([][]core.FuncID{{id}})

	sema.InferArity(c, diag.NopReporter{})
	first := c.MustFunction(id).Body.Expr.Info.Arity
	bag := diag.NewBag(10)
	failed := sema.InferArity(c, diag.BagReporter{Bag: bag})
	if len(failed) != 0 || bag.Len() != 0 {
		t.Fatalf("second run reported errors: %v", bag.Items())
	}
	if got := c.MustFunction(id).Body.Expr.Info.Arity; got != first {
		t.Errorf("arity changed on rerun: %d -> %d", first, got)
	}
}

func TestArityParameterNumber(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	callee := addFunc(c, "g", []core.Type{core.IntType(), core.IntType()}, []core.Type{core.IntType()}, func(vm *core.Varmap, params []core.VarID) *core.Expr {
		return core.NewExpr(source.Span{}, core.VarData{Var: params[0]})
	})
	caller := addFunc(c, "f", nil, []core.Type{core.IntType()}, func(vm *core.Varmap, _ []core.VarID) *core.Expr {
		return core.NewExpr(source.Span{}, core.CallData{Func: callee, Args: []*core.Expr{intConst(1)}})
	})
	c.SetSCCs([][]core.FuncID{{callee}, {caller}})

	bag := diag.NewBag(10)
	failed := sema.InferArity(c, diag.BagReporter{Bag: bag})
	if !failed[caller] {
		t.Fatal("caller with wrong argument count should fail")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemaParameterNumber {
			found = true
		}
	}
	if !found {
		t.Errorf("want SemaParameterNumber, got %v", bag.Items())
	}
}

func TestArityMutualRecursionLimitation(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	a := addFunc(c, "a", nil, []core.Type{core.IntType()}, nil)
	b := addFunc(c, "b", nil, []core.Type{core.IntType()}, nil)
	c.SetSCCs([][]core.FuncID{{a, b}})

	bag := diag.NewBag(10)
	failed := sema.InferArity(c, diag.BagReporter{Bag: bag})
	if !failed[a] || !failed[b] {
		t.Fatal("both members of the component should fail")
	}
	if bag.Len() == 0 || bag.Items()[0].Code != diag.LimMutualRecursion {
		t.Errorf("want mutual recursion limitation, got %v", bag.Items())
	}
}

func TestMatchCaseArityDisagreement(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	id := addFunc(c, "f", []core.Type{core.IntType()}, []core.Type{core.IntType()}, func(vm *core.Varmap, params []core.VarID) *core.Expr {
		twoVals := core.NewExpr(source.Span{}, core.TupleData{Exprs: []*core.Expr{intConst(1), intConst(2)}})
		return core.NewExpr(source.Span{}, core.MatchData{
			Var: params[0],
			Cases: []core.Case{
				{Pattern: core.Pattern{Kind: core.PatNumber, Num: 0}, Body: intConst(1)},
				{Pattern: core.Pattern{Kind: core.PatWildcard}, Body: twoVals},
			},
		})
	})
	c.SetSCCs([][]core.FuncID{{id}})

	bag := diag.NewBag(10)
	failed := sema.InferArity(c, diag.BagReporter{Bag: bag})
	if !failed[id] {
		t.Fatal("disagreeing case arities should fail")
	}
}

func TestInferTypesIdentityPolymorphism(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	// func id(x: t) -> t = x
	idFn := addFunc(c, "id", []core.Type{core.VarType("t")}, []core.Type{core.VarType("t")}, func(vm *core.Varmap, params []core.VarID) *core.Expr {
		return core.NewExpr(source.Span{}, core.VarData{Var: params[0]})
	})
	// func f() -> Int = id(3)
	caller := addFunc(c, "f", nil, []core.Type{core.IntType()}, func(vm *core.Varmap, _ []core.VarID) *core.Expr {
		return core.NewExpr(source.Span{}, core.CallData{Func: idFn, Args: []*core.Expr{intConst(3)}})
	})
	c.SetSCCs([][]core.FuncID{{idFn}, {caller}})

	bag := diag.NewBag(10)
	rep := diag.BagReporter{Bag: bag}
	failed := sema.InferArity(c, rep)
	failed = sema.InferTypes(c, failed, rep)
	if len(failed) != 0 {
		t.Fatalf("inference failed: %v", bag.Items())
	}

	// id's body stays abstract.
	idBody := c.MustFunction(idFn).Body.Expr
	if len(idBody.Info.Types) != 1 || idBody.Info.Types[0].Kind != core.TypeVar {
		t.Errorf("id body type = %v, want abstract variable", idBody.Info.Types)
	}
	// The call site unifies t with Int without touching id.
	callBody := c.MustFunction(caller).Body.Expr
	if len(callBody.Info.Types) != 1 || !callBody.Info.Types[0].Equal(core.IntType()) {
		t.Errorf("call type = %v, want Int", callBody.Info.Types)
	}
	arg := callBody.Data.(core.CallData).Args[0]
	if len(arg.Info.Types) != 1 || !arg.Info.Types[0].Equal(core.IntType()) {
		t.Errorf("argument type = %v, want Int", arg.Info.Types)
	}
}

func TestInferTypesMismatch(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	id := addFunc(c, "f", nil, []core.Type{core.IntType()}, func(vm *core.Varmap, _ []core.VarID) *core.Expr {
		return strConst("not an int")
	})
	c.SetSCCs([][]core.FuncID{{id}})

	bag := diag.NewBag(10)
	rep := diag.BagReporter{Bag: bag}
	failed := sema.InferArity(c, rep)
	failed = sema.InferTypes(c, failed, rep)
	if !failed[id] {
		t.Fatal("Int function returning String should fail")
	}
	if bag.Len() == 0 || bag.Items()[0].Code != diag.SemaTypeMismatch {
		t.Errorf("want type mismatch, got %v", bag.Items())
	}
}

func TestInferTypesConstruction(t *testing.T) {
	c := core.NewCore(core.Name("test"))
	listID := c.AddType(&core.TypeDef{Name: core.BuiltinName("List"), Params: []string{"t"}})
	nilID := c.AddCtor(&core.Constructor{Name: core.BuiltinName("Nil"), Type: listID, Params: []string{"t"}})
	consID := c.AddCtor(&core.Constructor{
		Name: core.BuiltinName("Cons"), Type: listID, Params: []string{"t"},
		Fields: []core.Field{
			{Name: "head", Type: core.VarType("t")},
			{Name: "tail", Type: core.RefType(listID, core.VarType("t"))},
		},
	})

	// func f() -> List(Int) = Cons(1, Nil)
	listInt := core.RefType(listID, core.IntType())
	fn := addFunc(c, "f", nil, []core.Type{listInt}, func(vm *core.Varmap, _ []core.VarID) *core.Expr {
		nilExpr := core.NewExpr(source.Span{}, core.ConstantData{
			Const: core.Constant{Kind: core.ConstCtor, Ctor: nilID},
		})
		return core.NewExpr(source.Span{}, core.ConstructionData{
			Ctor: consID,
			Args: []*core.Expr{intConst(1), nilExpr},
		})
	})
	c.SetSCCs([][]core.FuncID{{fn}})

	bag := diag.NewBag(10)
	rep := diag.BagReporter{Bag: bag}
	failed := sema.InferArity(c, rep)
	failed = sema.InferTypes(c, failed, rep)
	if len(failed) != 0 {
		t.Fatalf("inference failed: %v", bag.Items())
	}
	body := c.MustFunction(fn).Body.Expr
	if len(body.Info.Types) != 1 || !body.Info.Types[0].Equal(listInt) {
		t.Errorf("construction type = %v, want List(Int)", body.Info.Types)
	}
	// The Nil argument is List(Int) too, through the shared site map.
	nilArg := body.Data.(core.ConstructionData).Args[1]
	if len(nilArg.Info.Types) != 1 || !nilArg.Info.Types[0].Equal(listInt) {
		t.Errorf("Nil type = %v, want List(Int)", nilArg.Info.Types)
	}
}

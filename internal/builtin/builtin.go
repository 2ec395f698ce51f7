// Package builtin installs the fixed builtin module into a Core before
// compilation: the Bool and List types, the effect resources, and the
// builtin operator and runtime function table.
//
// Each builtin is one of three kinds: inline-PZ (a canned instruction
// sequence the code generator splices at every call site), core (a real
// core body, inferred and compiled like user code), or runtime (a named
// import resolved by the VM).
package builtin

import (
	"plasma/internal/core"
	"plasma/internal/pz"
	"plasma/internal/source"
)

// Impl describes how a builtin function is realized.
type Impl struct {
	Kind   core.ImplKind
	Instrs []pz.Instr // ImplInlinePZ only
	RTName string     // ImplRuntime only
}

// Table records what Install created. The code generator consults Impls;
// the lowerer resolves names through Funcs.
type Table struct {
	Bool   core.TypeID
	FalseC core.CtorID
	TrueC  core.CtorID
	List   core.TypeID
	NilC   core.CtorID
	ConsC  core.CtorID

	IO          core.ResourceID
	Environment core.ResourceID
	Time        core.ResourceID

	Impls map[core.FuncID]Impl
	Funcs map[string]core.FuncID
}

// BoolType is the builtin.Bool reference type.
func (t *Table) BoolType() core.Type { return core.RefType(t.Bool) }

// ListType is builtin.List applied to one element type.
func (t *Table) ListType(elem core.Type) core.Type { return core.RefType(t.List, elem) }

// Install populates the Core with the builtin module and returns the
// table. It must run once, before any user declarations are added.
func Install(c *core.Core) *Table {
	t := &Table{
		Impls: make(map[core.FuncID]Impl),
		Funcs: make(map[string]core.FuncID),
	}

	// Bool is a strict enum: False is declaration index 0 and True 1, so
	// the encodings line up with the usual C convention.
	t.Bool = c.AddType(&core.TypeDef{Name: core.BuiltinName("Bool")})
	t.FalseC = c.AddCtor(&core.Constructor{Name: core.BuiltinName("False"), Type: t.Bool})
	t.TrueC = c.AddCtor(&core.Constructor{Name: core.BuiltinName("True"), Type: t.Bool})

	t.List = c.AddType(&core.TypeDef{Name: core.BuiltinName("List"), Params: []string{"t"}})
	t.NilC = c.AddCtor(&core.Constructor{Name: core.BuiltinName("Nil"), Type: t.List, Params: []string{"t"}})
	t.ConsC = c.AddCtor(&core.Constructor{
		Name: core.BuiltinName("Cons"), Type: t.List, Params: []string{"t"},
		Fields: []core.Field{
			{Name: "head", Type: core.VarType("t")},
			{Name: "tail", Type: core.RefType(t.List, core.VarType("t"))},
		},
	})

	t.IO = c.AddResource(&core.Resource{Name: core.BuiltinName("IO")})
	t.Environment = c.AddResource(&core.Resource{Name: core.BuiltinName("Environment")})
	t.Time = c.AddResource(&core.Resource{Name: core.BuiltinName("Time"), FromEnv: true})

	installOperators(c, t)
	installRuntime(c, t)
	installBoolToString(c, t)
	return t
}

func inline(ops ...pz.Instr) Impl {
	return Impl{Kind: core.ImplInlinePZ, Instrs: ops}
}

func op(o pz.Opcode) pz.Instr {
	return pz.Instr{Op: o, Width: pz.WFast}
}

func imm(v uint64) pz.Instr {
	return pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: v}
}

func installOperators(c *core.Core, t *Table) {
	intT := core.IntType()
	boolT := t.BoolType()

	binInt := func(name string, o pz.Opcode) {
		t.addFunc(c, name, []core.Type{intT, intT}, []core.Type{intT}, nil, nil, inline(op(o)))
	}
	cmpInt := func(name string, ops ...pz.Instr) {
		t.addFunc(c, name, []core.Type{intT, intT}, []core.Type{boolT}, nil, nil, inline(ops...))
	}

	binInt("add_int", pz.OpAdd)
	binInt("sub_int", pz.OpSub)
	binInt("mul_int", pz.OpMul)
	binInt("div_int", pz.OpDiv)
	binInt("mod_int", pz.OpMod)
	binInt("lshift_int", pz.OpLShift)
	binInt("rshift_int", pz.OpRShift)
	binInt("and_int", pz.OpAnd)
	binInt("or_int", pz.OpOr)
	binInt("xor_int", pz.OpXor)

	cmpInt("lt_int", op(pz.OpLtS))
	cmpInt("gt_int", op(pz.OpGtS))
	cmpInt("eq_int", op(pz.OpEq))
	// Comparisons leave 0 or 1, so "not" is xor with 1.
	cmpInt("neq_int", op(pz.OpEq), imm(1), op(pz.OpXor))

	t.addFunc(c, "and_bool", []core.Type{boolT, boolT}, []core.Type{boolT}, nil, nil, inline(op(pz.OpAnd)))
	t.addFunc(c, "or_bool", []core.Type{boolT, boolT}, []core.Type{boolT}, nil, nil, inline(op(pz.OpOr)))
	t.addFunc(c, "not_bool", []core.Type{boolT}, []core.Type{boolT}, nil, nil, inline(imm(1), op(pz.OpXor)))
}

func installRuntime(c *core.Core, t *Table) {
	strT := core.StringType()
	intT := core.IntType()

	rt := func(name string, ins, outs []core.Type, uses, observes []core.ResourceID) {
		t.addFunc(c, name, ins, outs, uses, observes, Impl{Kind: core.ImplRuntime, RTName: "builtin." + name})
	}

	rt("print", []core.Type{strT}, nil, []core.ResourceID{t.IO}, nil)
	rt("int_to_string", []core.Type{intT}, []core.Type{strT}, nil, nil)
	rt("concat_string", []core.Type{strT, strT}, []core.Type{strT}, nil, nil)
	rt("setenv", []core.Type{strT, strT}, nil, []core.ResourceID{t.Environment}, nil)
	rt("gettimeofday", nil, []core.Type{intT}, nil, []core.ResourceID{t.Time})
	rt("set_parameter", []core.Type{strT, intT}, nil, []core.ResourceID{t.Environment}, nil)
	rt("die", []core.Type{strT}, nil, []core.ResourceID{t.IO}, nil)
}

// installBoolToString gives bool_to_string a real core body:
// match b { True -> "True"; False -> "False" }.
func installBoolToString(c *core.Core, t *Table) {
	vm := core.NewVarmap()
	b := vm.NewVar("b")
	strConst := func(s string) *core.Expr {
		return core.NewExpr(source.Span{}, core.ConstantData{
			Const: core.Constant{Kind: core.ConstString, Str: s},
		})
	}
	body := core.NewExpr(source.Span{}, core.MatchData{
		Var: b,
		Cases: []core.Case{
			{Pattern: core.Pattern{Kind: core.PatCtor, Ctor: t.TrueC}, Body: strConst("True")},
			{Pattern: core.Pattern{Kind: core.PatCtor, Ctor: t.FalseC}, Body: strConst("False")},
		},
	})
	id := c.AddFunction(&core.Function{
		Name: core.BuiltinName("bool_to_string"),
		Sig: core.Signature{
			Inputs:  []core.Type{t.BoolType()},
			Outputs: []core.Type{core.StringType()},
			Arity:   1,
		},
		Impl: core.ImplCore,
		Body: &core.Body{Vars: vm, Params: []core.VarID{b}, Expr: body},
	})
	t.Impls[id] = Impl{Kind: core.ImplCore}
	t.Funcs["bool_to_string"] = id
}

func (t *Table) addFunc(c *core.Core, name string, ins, outs []core.Type, uses, observes []core.ResourceID, impl Impl) {
	id := c.AddFunction(&core.Function{
		Name: core.BuiltinName(name),
		Sig: core.Signature{
			Inputs:   ins,
			Outputs:  outs,
			Uses:     uses,
			Observes: observes,
			Arity:    len(outs),
		},
		Impl: impl.Kind,
	})
	t.Impls[id] = impl
	t.Funcs[name] = id
}

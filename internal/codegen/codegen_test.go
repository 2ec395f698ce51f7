package codegen

import (
	"fmt"
	"testing"

	"plasma/internal/builtin"
	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/pz"
	"plasma/internal/sema"
	"plasma/internal/source"
)

// buildAndGen runs the full back half of the pipeline over a Core whose
// user functions were added by populate.
func buildAndGen(t *testing.T, populate func(c *core.Core, tbl *builtin.Table) core.FuncID) (*pz.PZ, core.FuncID, *core.Core) {
	t.Helper()
	c := core.NewCore(core.Name("test"))
	tbl := builtin.Install(c)
	target := populate(c, tbl)

	bag := diag.NewBag(50)
	rep := diag.BagReporter{Bag: bag}

	// bool_to_string and the user functions need the standard SCC walk.
	var sccs [][]core.FuncID
	for _, id := range c.FuncIDs() {
		sccs = append(sccs, []core.FuncID{id})
	}
	c.SetSCCs(sccs)

	failed := sema.InferArity(c, rep)
	failed = sema.InferTypes(c, failed, rep)
	if bag.HasErrors() {
		t.Fatalf("inference failed: %v", bag.Items())
	}
	prog := pz.New()
	tags, ok := AssignTags(c, rep)
	if !ok {
		t.Fatalf("tags failed: %v", bag.Items())
	}
	data := CollectConstData(c, prog, rep)
	prog, ok = Generate(c, tags, data, tbl.Impls, failed, prog, rep)
	if !ok || bag.HasErrors() {
		t.Fatalf("codegen failed: %v", bag.Items())
	}
	return prog, target, c
}

func procFor(t *testing.T, prog *pz.PZ, name string) *pz.Proc {
	t.Helper()
	for _, id := range prog.ProcIDs() {
		if p := prog.MustProc(id); p.Name == name {
			return p
		}
	}
	t.Fatalf("no procedure named %s", name)
	return nil
}

func TestAddConstantsLowering(t *testing.T) {
	// func f() -> Int = 1 + 2
	prog, _, _ := buildAndGen(t, func(c *core.Core, tbl *builtin.Table) core.FuncID {
		vm := core.NewVarmap()
		one := core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstNumber, Num: 1}})
		two := core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstNumber, Num: 2}})
		body := core.NewExpr(source.Span{}, core.CallData{Func: tbl.Funcs["add_int"], Args: []*core.Expr{one, two}})
		return c.AddFunction(&core.Function{
			Name: core.Name("f"),
			Sig:  core.Signature{Outputs: []core.Type{core.IntType()}, Arity: 1},
			Body: &core.Body{Vars: vm, Expr: body},
		})
	})

	p := procFor(t, prog, "f")
	if len(p.Sig.Before) != 0 || len(p.Sig.After) != 1 || p.Sig.After[0] != pz.WFast {
		t.Fatalf("signature = %+v, want ( - w )", p.Sig)
	}
	want := []pz.Instr{
		{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: 1},
		{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: 2},
		{Op: pz.OpAdd, Width: pz.WFast},
		{Op: pz.OpRet},
	}
	got := p.Blocks[0].Instrs
	if len(got) != len(want) {
		t.Fatalf("instrs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instr %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTrueLiteralEncoding(t *testing.T) {
	// func f() -> Bool = True
	prog, _, _ := buildAndGen(t, func(c *core.Core, tbl *builtin.Table) core.FuncID {
		vm := core.NewVarmap()
		body := core.NewExpr(source.Span{}, core.ConstantData{
			Const: core.Constant{Kind: core.ConstCtor, Ctor: tbl.TrueC},
		})
		return c.AddFunction(&core.Function{
			Name: core.Name("f"),
			Sig:  core.Signature{Outputs: []core.Type{tbl.BoolType()}, Arity: 1},
			Body: &core.Body{Vars: vm, Expr: body},
		})
	})
	p := procFor(t, prog, "f")
	first := p.Blocks[0].Instrs[0]
	if first.Op != pz.OpLoadImmediate || first.Imm != 1 {
		t.Errorf("True lowered to %+v, want load_immediate 1", first)
	}
}

func TestMatchBoolLowering(t *testing.T) {
	// func f(b: Bool) -> String = match b { True -> "yes"; False -> "no" }
	prog, _, _ := buildAndGen(t, func(c *core.Core, tbl *builtin.Table) core.FuncID {
		vm := core.NewVarmap()
		b := vm.NewVar("b")
		yes := core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstString, Str: "yes"}})
		no := core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstString, Str: "no"}})
		body := core.NewExpr(source.Span{}, core.MatchData{
			Var: b,
			Cases: []core.Case{
				{Pattern: core.Pattern{Kind: core.PatCtor, Ctor: tbl.TrueC}, Body: yes},
				{Pattern: core.Pattern{Kind: core.PatCtor, Ctor: tbl.FalseC}, Body: no},
			},
		})
		return c.AddFunction(&core.Function{
			Name: core.Name("f"),
			Sig: core.Signature{
				Inputs:  []core.Type{tbl.BoolType()},
				Outputs: []core.Type{core.StringType()},
				Arity:   1,
			},
			Body: &core.Body{Vars: vm, Params: []core.VarID{b}, Expr: body},
		})
	})

	p := procFor(t, prog, "f")
	if len(p.Blocks) != 3 {
		t.Fatalf("got %d blocks, want entry + join + one body", len(p.Blocks))
	}
	// The entry block tests the True encoding and branches.
	entry := p.Blocks[0].Instrs
	foundTest := false
	for i := 0; i+2 < len(entry); i++ {
		if entry[i].Op == pz.OpLoadImmediate && entry[i].Imm == 1 &&
			entry[i+1].Op == pz.OpEq && entry[i+2].Op == pz.OpCJmp {
			foundTest = true
		}
	}
	if !foundTest {
		t.Errorf("entry block has no tag test: %v", entry)
	}
	// Both bodies load an interned string and reach the join block.
	loads := 0
	for _, b := range p.Blocks {
		for _, ins := range b.Instrs {
			if ins.Op == pz.OpLoadData {
				loads++
			}
		}
	}
	if loads != 2 {
		t.Errorf("found %d string loads, want 2", loads)
	}
}

func TestConsConstruction(t *testing.T) {
	// func f() -> List(Int) = Cons(1, Nil)
	prog, _, _ := buildAndGen(t, func(c *core.Core, tbl *builtin.Table) core.FuncID {
		vm := core.NewVarmap()
		one := core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstNumber, Num: 1}})
		nil_ := core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstCtor, Ctor: tbl.NilC}})
		body := core.NewExpr(source.Span{}, core.ConstructionData{Ctor: tbl.ConsC, Args: []*core.Expr{one, nil_}})
		return c.AddFunction(&core.Function{
			Name: core.Name("f"),
			Sig:  core.Signature{Outputs: []core.Type{tbl.ListType(core.IntType())}, Arity: 1},
			Body: &core.Body{Vars: vm, Expr: body},
		})
	})

	p := procFor(t, prog, "f")
	instrs := p.Blocks[0].Instrs
	// Nil is the zero word, the allocation stores two fields, and the
	// result goes through make_tag with ptag 1.
	var sawNilZero, sawAlloc, sawMakeTag bool
	stores := 0
	for i, ins := range instrs {
		switch ins.Op {
		case pz.OpLoadImmediate:
			if ins.Imm == 0 {
				sawNilZero = true
			}
		case pz.OpAlloc:
			sawAlloc = true
		case pz.OpStore:
			stores++
		case pz.OpCall:
			if imp, ok := prog.Import(ins.Import); ok && imp.Name == "builtin.make_tag" {
				sawMakeTag = true
				if i == 0 || instrs[i-1].Op != pz.OpLoadImmediate || instrs[i-1].Imm != 1 {
					t.Errorf("make_tag not preceded by ptag 1: %v", instrs)
				}
			}
		}
	}
	if !sawNilZero || !sawAlloc || stores != 2 || !sawMakeTag {
		t.Errorf("construction shape wrong (nil=%v alloc=%v stores=%d maketag=%v): %v",
			sawNilZero, sawAlloc, stores, sawMakeTag, instrs)
	}
}

// TestStackDiscipline simulates the stack effect of every generated
// procedure: starting from the input widths, every ret must see exactly
// the output widths.
func TestStackDiscipline(t *testing.T) {
	prog, _, _ := buildAndGen(t, func(c *core.Core, tbl *builtin.Table) core.FuncID {
		vm := core.NewVarmap()
		xs := vm.NewVar("xs")
		h := vm.NewVar("h")
		one := func() *core.Expr {
			return core.NewExpr(source.Span{}, core.ConstantData{Const: core.Constant{Kind: core.ConstNumber, Num: 1}})
		}
		sum := core.NewExpr(source.Span{}, core.CallData{
			Func: tbl.Funcs["add_int"],
			Args: []*core.Expr{core.NewExpr(source.Span{}, core.VarData{Var: h}), one()},
		})
		body := core.NewExpr(source.Span{}, core.MatchData{
			Var: xs,
			Cases: []core.Case{
				{
					Pattern: core.Pattern{Kind: core.PatCtor, Ctor: tbl.ConsC, Subs: []core.Pattern{
						{Kind: core.PatVar, Var: h},
						{Kind: core.PatWildcard},
					}},
					Body: sum,
				},
				{Pattern: core.Pattern{Kind: core.PatCtor, Ctor: tbl.NilC}, Body: one()},
			},
		})
		return c.AddFunction(&core.Function{
			Name: core.Name("headplus"),
			Sig: core.Signature{
				Inputs:  []core.Type{tbl.ListType(core.IntType())},
				Outputs: []core.Type{core.IntType()},
				Arity:   1,
			},
			Body: &core.Body{Vars: vm, Params: []core.VarID{xs}, Expr: body},
		})
	})

	for _, id := range prog.ProcIDs() {
		p := prog.MustProc(id)
		if len(p.Blocks) == 0 {
			continue
		}
		if err := simulateProc(prog, p); err != nil {
			t.Errorf("%s: %v", p.Name, err)
		}
	}
}

// simulateProc runs a worklist depth simulation over the block CFG.
func simulateProc(prog *pz.PZ, p *pz.Proc) error {
	entry := map[pz.BlockID]int{0: len(p.Sig.Before)}
	done := map[pz.BlockID]bool{}
	work := []pz.BlockID{0}
	blocks := map[pz.BlockID]*pz.Block{}
	for _, b := range p.Blocks {
		blocks[b.ID] = b
	}

	setEntry := func(id pz.BlockID, depth int) error {
		if have, ok := entry[id]; ok {
			if have != depth {
				return fmt.Errorf("block b%d entered with depths %d and %d", id, have, depth)
			}
			return nil
		}
		entry[id] = depth
		work = append(work, id)
		return nil
	}

	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if done[id] {
			continue
		}
		done[id] = true
		depth := entry[id]
		b := blocks[id]
		for _, ins := range b.Instrs {
			var err error
			depth, err = applyInstr(prog, p, ins, depth, setEntry)
			if err != nil {
				return fmt.Errorf("block b%d: %w", id, err)
			}
			if depth < 0 {
				return fmt.Errorf("block b%d: stack underflow at %v", id, ins)
			}
		}
	}
	return nil
}

func applyInstr(prog *pz.PZ, p *pz.Proc, ins pz.Instr, depth int, branch func(pz.BlockID, int) error) (int, error) {
	switch ins.Op {
	case pz.OpLoadImmediate, pz.OpLoadData, pz.OpDup, pz.OpAlloc:
		return depth + 1, nil
	case pz.OpPick:
		if int(ins.Depth) >= depth {
			return depth, fmt.Errorf("pick %d beyond depth %d", ins.Depth, depth)
		}
		return depth + 1, nil
	case pz.OpRoll:
		if int(ins.Depth) >= depth {
			return depth, fmt.Errorf("roll %d beyond depth %d", ins.Depth, depth)
		}
		return depth, nil
	case pz.OpSwap, pz.OpLoadField, pz.OpNot:
		return depth, nil
	case pz.OpDrop, pz.OpStore:
		return depth - 1, nil
	case pz.OpAdd, pz.OpSub, pz.OpMul, pz.OpDiv, pz.OpMod,
		pz.OpLShift, pz.OpRShift, pz.OpAnd, pz.OpOr, pz.OpXor,
		pz.OpLtS, pz.OpGtS, pz.OpLtU, pz.OpGtU, pz.OpEq:
		return depth - 1, nil
	case pz.OpCall:
		sig, err := calleeSig(prog, ins)
		if err != nil {
			return depth, err
		}
		return depth - len(sig.Before) + len(sig.After), nil
	case pz.OpTCall:
		sig, err := calleeSig(prog, ins)
		if err != nil {
			return depth, err
		}
		if depth != len(sig.Before) {
			return depth, fmt.Errorf("tcall with %d live values, callee consumes %d", depth, len(sig.Before))
		}
		return depth, nil
	case pz.OpCJmp:
		if err := branch(ins.Block, depth-1); err != nil {
			return depth, err
		}
		return depth - 1, nil
	case pz.OpJmp:
		return depth, branch(ins.Block, depth)
	case pz.OpRet:
		if depth != len(p.Sig.After) {
			return depth, fmt.Errorf("ret with depth %d, declared outputs %d", depth, len(p.Sig.After))
		}
		return depth, nil
	}
	return depth, fmt.Errorf("unknown opcode %v", ins.Op)
}

func calleeSig(prog *pz.PZ, ins pz.Instr) (pz.Signature, error) {
	if ins.Proc.IsValid() {
		return prog.MustProc(ins.Proc).Sig, nil
	}
	if ins.Import.IsValid() {
		return prog.MustImport(ins.Import).Sig, nil
	}
	return pz.Signature{}, fmt.Errorf("call with no target")
}

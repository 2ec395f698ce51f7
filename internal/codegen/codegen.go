package codegen

import (
	"fmt"

	"fortio.org/safecast"

	"plasma/internal/builtin"
	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/pz"
)

// Helpers are the runtime procedures the tag scheme relies on, allocated
// once per program and referenced by imported id everywhere.
type Helpers struct {
	MakeTag       pz.ImportID
	ShiftMakeTag  pz.ImportID
	BreakTag      pz.ImportID
	BreakShiftTag pz.ImportID
	UnshiftValue  pz.ImportID
	// StagStruct holds a single secondary-tag word; reserved for the
	// secondary-tag extension.
	StagStruct pz.StructID
}

// Generator lowers core functions into PZ procedures.
type Generator struct {
	c       *core.Core
	prog    *pz.PZ
	tags    TagMap
	data    DataMap
	impls   map[core.FuncID]builtin.Impl
	failed  map[core.FuncID]bool
	r       diag.Reporter
	helpers Helpers

	procIDs   map[core.FuncID]pz.ProcID
	rtImports map[core.FuncID]pz.ImportID
	ctorLayts map[core.CtorID]pz.StructID
}

// Generate lowers every non-failed function with a body into the
// returned program. The bool result is false when an internal error
// aborted a function.
func Generate(c *core.Core, tags TagMap, data DataMap, impls map[core.FuncID]builtin.Impl,
	failed map[core.FuncID]bool, prog *pz.PZ, r diag.Reporter) (*pz.PZ, bool) {

	g := &Generator{
		c: c, prog: prog, tags: tags, data: data, impls: impls, failed: failed, r: r,
		procIDs:   make(map[core.FuncID]pz.ProcID),
		rtImports: make(map[core.FuncID]pz.ImportID),
		ctorLayts: make(map[core.CtorID]pz.StructID),
	}
	g.helpers = Helpers{
		MakeTag: prog.AddImport(&pz.Import{Name: "builtin.make_tag",
			Sig: pz.Signature{Before: []pz.Width{pz.WPtr, pz.WFast}, After: []pz.Width{pz.WPtr}}}),
		ShiftMakeTag: prog.AddImport(&pz.Import{Name: "builtin.shift_make_tag",
			Sig: pz.Signature{Before: []pz.Width{pz.WFast, pz.WFast}, After: []pz.Width{pz.WFast}}}),
		BreakTag: prog.AddImport(&pz.Import{Name: "builtin.break_tag",
			Sig: pz.Signature{Before: []pz.Width{pz.WPtr}, After: []pz.Width{pz.WPtr, pz.WFast}}}),
		BreakShiftTag: prog.AddImport(&pz.Import{Name: "builtin.break_shift_tag",
			Sig: pz.Signature{Before: []pz.Width{pz.WFast}, After: []pz.Width{pz.WFast, pz.WFast}}}),
		UnshiftValue: prog.AddImport(&pz.Import{Name: "builtin.unshift_value",
			Sig: pz.Signature{Before: []pz.Width{pz.WFast}, After: []pz.Width{pz.WFast}}}),
		StagStruct: prog.AddStruct(&pz.Struct{Fields: []pz.Width{pz.WFast}}),
	}

	// Allocate proc ids up front so calls between procedures resolve in
	// one pass regardless of definition order.
	for _, id := range c.FuncIDs() {
		f := c.MustFunction(id)
		switch f.Impl {
		case core.ImplCore:
			if !f.HasBody() || g.failed[id] {
				continue
			}
			g.procIDs[id] = prog.AddProc(&pz.Proc{
				Name: f.Name.String(),
				Sig:  g.signature(f),
			})
		case core.ImplRuntime:
			name := f.Name.String()
			if impl, ok := impls[id]; ok && impl.RTName != "" {
				name = impl.RTName
			}
			g.rtImports[id] = prog.AddImport(&pz.Import{Name: name, Sig: g.signature(f)})
		}
	}

	ok := true
	for _, id := range c.FuncIDs() {
		procID, found := g.procIDs[id]
		if !found {
			continue
		}
		f := c.MustFunction(id)
		fg := &funcGen{g: g, f: f, proc: prog.MustProc(procID)}
		if !fg.run() {
			ok = false
		}
		if f.Name.Unqual() == "main" {
			prog.Entry = procID
		}
	}
	return prog, ok
}

func (g *Generator) signature(f *core.Function) pz.Signature {
	sig := pz.Signature{}
	for _, t := range f.Sig.Inputs {
		sig.Before = append(sig.Before, g.widthOf(t))
	}
	for _, t := range f.Sig.Outputs {
		sig.After = append(sig.After, g.widthOf(t))
	}
	return sig
}

// widthOf picks the stack width for a value of the given type. Strict
// enums travel as raw words; every other reference is a (possibly
// tagged) pointer.
func (g *Generator) widthOf(t core.Type) pz.Width {
	switch t.Kind {
	case core.TypeBuiltin:
		switch t.Builtin {
		case core.BuiltinInt:
			return pz.WFast
		case core.BuiltinCodepoint:
			return pz.W32
		default:
			return pz.WPtr
		}
	case core.TypeRef:
		if g.isStrictEnum(t.Ref) {
			return pz.WFast
		}
		return pz.WPtr
	default:
		return pz.WPtr
	}
}

func (g *Generator) isStrictEnum(id core.TypeID) bool {
	td, ok := g.c.Type(id)
	if !ok {
		return false
	}
	for _, cid := range td.Ctors {
		if !g.c.MustCtor(cid).IsNullary() {
			return false
		}
	}
	return len(td.Ctors) > 0
}

// ctorLayout interns the struct layout for a non-nullary constructor.
func (g *Generator) ctorLayout(id core.CtorID) pz.StructID {
	if sid, ok := g.ctorLayts[id]; ok {
		return sid
	}
	ctor := g.c.MustCtor(id)
	fields := make([]pz.Width, len(ctor.Fields))
	for i, f := range ctor.Fields {
		fields[i] = g.widthOf(f.Type)
	}
	sid := g.prog.AddStruct(&pz.Struct{Fields: fields})
	g.ctorLayts[id] = sid
	return sid
}

// funcGen holds the per-function lowering state: the current block, the
// simulated stack depth, and where each live variable sits on the
// stack.
type funcGen struct {
	g     *Generator
	f     *core.Function
	proc  *pz.Proc
	cur   *pz.Block
	depth int
	vars  map[core.VarID]int // var -> depth from stack bottom
	bad   bool
}

func (fg *funcGen) run() bool {
	fg.vars = make(map[core.VarID]int, len(fg.f.Body.Params))
	fg.cur = fg.newBlock()
	for i, p := range fg.f.Body.Params {
		fg.vars[p] = i
	}
	fg.depth = len(fg.f.Body.Params)

	terminated := fg.genExpr(fg.f.Body.Expr, true)
	if fg.bad {
		return false
	}
	if !terminated {
		results := fg.f.Sig.Arity
		fg.cleanupBelow(results, fg.depth-results)
		fg.emit(pz.Instr{Op: pz.OpRet})
	}
	return !fg.bad
}

func (fg *funcGen) newBlock() *pz.Block {
	id, err := safecast.Conv[uint32](len(fg.proc.Blocks))
	if err != nil {
		panic(fmt.Errorf("block count overflow: %w", err))
	}
	b := &pz.Block{ID: pz.BlockID(id)}
	fg.proc.Blocks = append(fg.proc.Blocks, b)
	return b
}

func (fg *funcGen) emit(ins pz.Instr) {
	fg.cur.Instrs = append(fg.cur.Instrs, ins)
}

// internalf reports a compiler bug. Type and arity errors should have
// been caught upstream; any unexpected shape here aborts compilation.
func (fg *funcGen) internalf(e *core.Expr, format string, args ...any) {
	fg.bad = true
	fg.g.r.Report(diag.NewInternal("codegen", e.Info.Span, fmt.Sprintf(format, args...)))
}

// cleanupBelow drops junk values sitting directly below the top
// `results` values.
func (fg *funcGen) cleanupBelow(results, junk int) {
	for i := 0; i < junk; i++ {
		if results > 0 {
			fg.emit(pz.Instr{Op: pz.OpRoll, Depth: uint32(results)}) // #nosec G115
		}
		fg.emit(pz.Instr{Op: pz.OpDrop})
		fg.depth--
	}
}

// genExpr pushes the expression's results. The tail flag marks the
// syntactic tail position; it enables tcall when nothing else is live on
// the stack. Returns true when the generated code cannot fall through
// (it ended in a tail call).
func (fg *funcGen) genExpr(e *core.Expr, tail bool) bool {
	switch data := e.Data.(type) {
	case core.SequenceData:
		for i, sub := range data.Exprs {
			last := i == len(data.Exprs)-1
			if last {
				return fg.genExpr(sub, tail)
			}
			fg.genExpr(sub, false)
			for r := 0; r < sub.Info.Arity; r++ {
				fg.emit(pz.Instr{Op: pz.OpDrop})
				fg.depth--
			}
		}
		return false

	case core.LetData:
		base := fg.depth
		fg.genExpr(data.RHS, false)
		for i, v := range data.Vars {
			fg.vars[v] = base + i
		}
		terminated := fg.genExpr(data.Body, tail)
		if !terminated {
			fg.cleanupBelow(data.Body.Info.Arity, len(data.Vars))
		}
		return terminated

	case core.TupleData:
		for _, sub := range data.Exprs {
			fg.genExpr(sub, false)
		}
		return false

	case core.CallData:
		return fg.genCall(e, data, tail)

	case core.VarData:
		pos, ok := fg.vars[data.Var]
		if !ok {
			fg.internalf(e, "variable %d has no stack slot", data.Var)
			return false
		}
		fg.emit(pz.Instr{Op: pz.OpPick, Depth: uint32(fg.depth - pos - 1)}) // #nosec G115
		fg.depth++
		return false

	case core.ConstantData:
		fg.genConstant(e, data.Const)
		return false

	case core.ConstructionData:
		fg.genConstruction(e, data)
		return false

	case core.MatchData:
		fg.genMatch(e, data, tail)
		return false

	default:
		fg.internalf(e, "unexpected expression payload %T", e.Data)
		return false
	}
}

func (fg *funcGen) genConstant(e *core.Expr, c core.Constant) {
	switch c.Kind {
	case core.ConstNumber:
		fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: uint64(c.Num)}) // #nosec G115
		fg.depth++
	case core.ConstString:
		id, ok := fg.g.data[c.Str]
		if !ok {
			fg.internalf(e, "string literal %q was not interned", c.Str)
			return
		}
		fg.emit(pz.Instr{Op: pz.OpLoadData, Data: id})
		fg.depth++
	case core.ConstCtor:
		ti, ok := fg.g.tags[c.Ctor]
		if !ok {
			fg.internalf(e, "constructor %d has no tag assignment", c.Ctor)
			return
		}
		if ti.Kind == TagTaggedPointer {
			fg.internalf(e, "non-nullary constructor used as constant")
			return
		}
		fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: ti.Encode()})
		fg.depth++
	case core.ConstFunc:
		fg.internalf(e, "function constants are not supported by the backend")
	}
}

func (fg *funcGen) genCall(e *core.Expr, data core.CallData, tail bool) bool {
	base := fg.depth
	for _, arg := range data.Args {
		fg.genExpr(arg, false)
	}
	callee := fg.g.c.MustFunction(data.Func)
	arity := callee.Sig.Arity

	if impl, ok := fg.g.impls[data.Func]; ok && impl.Kind == core.ImplInlinePZ {
		// Inline builtins splice their canned instruction sequence in
		// place of the call.
		for _, ins := range impl.Instrs {
			fg.emit(ins)
		}
		fg.depth = base + arity
		return false
	}
	if imp, ok := fg.g.rtImports[data.Func]; ok {
		fg.emit(pz.Instr{Op: pz.OpCall, Import: imp})
		fg.depth = base + arity
		return false
	}
	procID, ok := fg.g.procIDs[data.Func]
	if !ok {
		fg.internalf(e, "call to %s, which generated no procedure", callee.Name)
		return false
	}
	// Tail position with nothing live below the arguments: reuse the
	// frame.
	if tail && base == 0 {
		fg.emit(pz.Instr{Op: pz.OpTCall, Proc: procID})
		fg.depth = arity
		return true
	}
	fg.emit(pz.Instr{Op: pz.OpCall, Proc: procID})
	fg.depth = base + arity
	return false
}

func (fg *funcGen) genConstruction(e *core.Expr, data core.ConstructionData) {
	ti, ok := fg.g.tags[data.Ctor]
	if !ok {
		fg.internalf(e, "constructor %d has no tag assignment", data.Ctor)
		return
	}
	if ti.Kind != TagTaggedPointer {
		if len(data.Args) != 0 {
			fg.internalf(e, "constant-encoded constructor applied to arguments")
			return
		}
		fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: ti.Encode()})
		fg.depth++
		return
	}

	for _, arg := range data.Args {
		fg.genExpr(arg, false)
	}
	layout := fg.g.ctorLayout(data.Ctor)
	fg.emit(pz.Instr{Op: pz.OpAlloc, Struct: layout})
	fg.depth++
	// Fields were pushed left to right, so the last field is directly
	// under the fresh pointer; store them back to front.
	for j := len(data.Args) - 1; j >= 0; j-- {
		fg.emit(pz.Instr{Op: pz.OpSwap})
		fg.emit(pz.Instr{Op: pz.OpStore, Struct: layout, Field: uint32(j)}) // #nosec G115
		fg.depth--
	}
	fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: uint64(ti.PTag)})
	fg.emit(pz.Instr{Op: pz.OpCall, Import: fg.g.helpers.MakeTag})
	// make_tag consumes pointer and tag, leaves the tagged pointer.
}

// genMatch compiles tag dispatch. The scrutinee is pushed once; each
// case tests it with compare-and-branch, bodies live in their own
// blocks, and everything joins in a continuation block holding exactly
// the match results. The final case is entered without a test: match
// evaluation order makes it the default.
func (fg *funcGen) genMatch(e *core.Expr, data core.MatchData, tail bool) {
	pos, ok := fg.vars[data.Var]
	if !ok {
		fg.internalf(e, "match scrutinee %d has no stack slot", data.Var)
		return
	}
	fg.emit(pz.Instr{Op: pz.OpPick, Depth: uint32(fg.depth - pos - 1)}) // #nosec G115
	fg.depth++
	base := fg.depth - 1 // depth of the scrutinee copy
	results := e.Info.Arity

	join := fg.newBlock()
	entryDepth := fg.depth // every test leaves the stack at this depth
	type pendingBody struct {
		block   *pz.Block
		cs      core.Case
		payload bool // body entry stack carries the untagged payload
	}
	var bodies []pendingBody

	for i, cs := range data.Cases {
		last := i == len(data.Cases)-1
		if last || cs.Pattern.Kind == core.PatVar || cs.Pattern.Kind == core.PatWildcard {
			// Unconditional: either the final case or an
			// always-matching pattern. Generate the body inline; any
			// cases after an always-matching pattern are unreachable.
			fg.enterUncondCase(e, cs)
			fg.genCaseBody(e, cs, base, results, tail, join,
				cs.Pattern.Kind == core.PatCtor && !fg.g.c.MustCtor(cs.Pattern.Ctor).IsNullary())
			break
		}

		switch cs.Pattern.Kind {
		case core.PatNumber:
			fg.emit(pz.Instr{Op: pz.OpPick, Depth: 0})
			fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: uint64(cs.Pattern.Num)}) // #nosec G115
			fg.emit(pz.Instr{Op: pz.OpEq, Width: pz.WFast})
			body := fg.newBlock()
			fg.emit(pz.Instr{Op: pz.OpCJmp, Width: pz.WFast, Block: body.ID})
			bodies = append(bodies, pendingBody{block: body, cs: cs})

		case core.PatCtor:
			ti, tok := fg.g.tags[cs.Pattern.Ctor]
			if !tok {
				fg.internalf(e, "constructor %d has no tag assignment", cs.Pattern.Ctor)
				return
			}
			body := fg.newBlock()
			if ti.Kind == TagTaggedPointer {
				// Split into payload and primary tag, dispatch on the
				// tag; the payload rides into the body block.
				fg.emit(pz.Instr{Op: pz.OpPick, Depth: 0})
				fg.emit(pz.Instr{Op: pz.OpCall, Import: fg.g.helpers.BreakTag})
				fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: uint64(ti.PTag)})
				fg.emit(pz.Instr{Op: pz.OpEq, Width: pz.WFast})
				fg.emit(pz.Instr{Op: pz.OpCJmp, Width: pz.WFast, Block: body.ID})
				fg.emit(pz.Instr{Op: pz.OpDrop}) // discard the payload on the fall-through path
				bodies = append(bodies, pendingBody{block: body, cs: cs, payload: true})
			} else {
				fg.emit(pz.Instr{Op: pz.OpPick, Depth: 0})
				fg.emit(pz.Instr{Op: pz.OpLoadImmediate, Width: pz.WFast, Imm: ti.Encode()})
				fg.emit(pz.Instr{Op: pz.OpEq, Width: pz.WFast})
				fg.emit(pz.Instr{Op: pz.OpCJmp, Width: pz.WFast, Block: body.ID})
				bodies = append(bodies, pendingBody{block: body, cs: cs})
			}

		default:
			fg.internalf(e, "unexpected pattern kind %d", cs.Pattern.Kind)
			return
		}
	}

	// Emit the pending conditional bodies.
	for _, pb := range bodies {
		fg.cur = pb.block
		fg.depth = entryDepth
		if pb.payload {
			fg.depth++ // break_tag left the payload under the test
		}
		fg.genCaseBody(e, pb.cs, base, results, tail, join, pb.payload)
	}

	fg.cur = join
	fg.depth = base + results
}

// enterUncondCase prepares the stack for a case entered without a test:
// tagged-pointer patterns still need the payload split off.
func (fg *funcGen) enterUncondCase(e *core.Expr, cs core.Case) {
	if cs.Pattern.Kind != core.PatCtor {
		return
	}
	ctor := fg.g.c.MustCtor(cs.Pattern.Ctor)
	if ctor.IsNullary() {
		return
	}
	fg.emit(pz.Instr{Op: pz.OpPick, Depth: 0})
	fg.emit(pz.Instr{Op: pz.OpCall, Import: fg.g.helpers.BreakTag})
	fg.emit(pz.Instr{Op: pz.OpDrop}) // tag value is already decided
	fg.depth++
}

// genCaseBody binds pattern variables, generates the body, cleans the
// stack down to the match results and jumps to the join block.
func (fg *funcGen) genCaseBody(e *core.Expr, cs core.Case, base, results int, tail bool, join *pz.Block, hasPayload bool) {
	switch cs.Pattern.Kind {
	case core.PatVar:
		fg.vars[cs.Pattern.Var] = base
	case core.PatCtor:
		if hasPayload {
			layout := fg.g.ctorLayout(cs.Pattern.Ctor)
			payloadPos := base + 1
			for j, sub := range cs.Pattern.Subs {
				switch sub.Kind {
				case core.PatVar:
					fg.emit(pz.Instr{Op: pz.OpPick, Depth: uint32(fg.depth - payloadPos - 1)}) // #nosec G115
					fg.emit(pz.Instr{Op: pz.OpLoadField, Struct: layout, Field: uint32(j)})    // #nosec G115
					fg.vars[sub.Var] = fg.depth
					fg.depth++
				case core.PatWildcard:
					// nothing to bind
				default:
					fg.internalf(e, "nested pattern kind %d reached the backend", sub.Kind)
					return
				}
			}
		}
	}

	// A tail call cannot fire inside a case (the scrutinee copy is
	// live below), but the flag still shapes nested matches.
	terminated := fg.genExpr(cs.Body, tail)
	if terminated {
		return
	}
	// Junk below the results: the scrutinee copy, the payload if any,
	// and the bound fields.
	junk := fg.depth - results - base
	fg.cleanupBelow(results, junk)
	fg.emit(pz.Instr{Op: pz.OpJmp, Block: join.ID})
}

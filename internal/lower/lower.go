// Package lower translates the surface AST into the core IR: name
// resolution, varmap construction, operator desugaring and call-graph
// ordering.
package lower

import (
	"fmt"

	"plasma/internal/ast"
	"plasma/internal/builtin"
	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/source"
)

type lowerer struct {
	c   *core.Core
	tbl *builtin.Table
	r   diag.Reporter

	types     map[string]core.TypeID
	ctors     map[string]core.CtorID
	funcs     map[string]core.FuncID
	resources map[string]core.ResourceID
	bad       bool
}

// Module lowers one parsed module into the Core. The builtin table must
// already be installed. Returns false when resolution errors occurred.
func Module(m *ast.Module, tbl *builtin.Table, c *core.Core, r diag.Reporter) bool {
	lo := &lowerer{
		c: c, tbl: tbl, r: r,
		types: map[string]core.TypeID{
			"Bool": tbl.Bool,
			"List": tbl.List,
		},
		ctors: map[string]core.CtorID{
			"False": tbl.FalseC,
			"True":  tbl.TrueC,
			"Nil":   tbl.NilC,
			"Cons":  tbl.ConsC,
		},
		funcs: make(map[string]core.FuncID, len(tbl.Funcs)),
		resources: map[string]core.ResourceID{
			"IO":          tbl.IO,
			"Environment": tbl.Environment,
			"Time":        tbl.Time,
		},
	}
	for name, id := range tbl.Funcs {
		lo.funcs[name] = id
	}

	modName := core.Name(m.Name)
	lo.declareTypes(modName, m)
	lo.declareFuncs(modName, m)
	lo.lowerBodies(m)
	lo.c.SetSCCs(computeSCCs(lo.c))
	return !lo.bad
}

func (lo *lowerer) errorf(code diag.Code, span source.Span, format string, args ...any) {
	lo.bad = true
	lo.r.Report(diag.NewError(code, span, fmt.Sprintf(format, args...)))
}

func (lo *lowerer) declareTypes(modName core.QName, m *ast.Module) {
	// Two phases so constructors can reference any declared type,
	// including their own (cyclic references go through ids).
	for _, td := range m.Types {
		if _, exists := lo.types[td.Name]; exists {
			lo.errorf(diag.SemaDuplicateSymbol, td.Span, "type %s is already defined", td.Name)
			continue
		}
		id := lo.c.AddType(&core.TypeDef{
			Name:   modName.Qualify(td.Name),
			Span:   td.Span,
			Params: td.Params,
		})
		lo.types[td.Name] = id
	}
	for _, td := range m.Types {
		tid, ok := lo.types[td.Name]
		if !ok {
			continue
		}
		for _, cd := range td.Ctors {
			if _, exists := lo.ctors[cd.Name]; exists {
				lo.errorf(diag.SemaDuplicateSymbol, cd.Span, "constructor %s is already defined", cd.Name)
				continue
			}
			fields := make([]core.Field, 0, len(cd.Fields))
			for _, fd := range cd.Fields {
				fields = append(fields, core.Field{
					Name: fd.Name,
					Type: lo.lowerType(fd.Type, td.Params),
				})
			}
			id := lo.c.AddCtor(&core.Constructor{
				Name:   modName.Qualify(cd.Name),
				Span:   cd.Span,
				Type:   tid,
				Params: td.Params,
				Fields: fields,
			})
			lo.ctors[cd.Name] = id
		}
	}
}

// lowerType translates a surface type term. Lowercase names are type
// variables; they take no arguments.
func (lo *lowerer) lowerType(te ast.TypeExpr, tparams []string) core.Type {
	switch te.Name {
	case "Int":
		return core.IntType()
	case "String":
		return core.StringType()
	case "Codepoint":
		return core.CodepointType()
	}
	if isTypeVarName(te.Name) {
		if len(te.Args) != 0 {
			lo.errorf(diag.SemaTypeArgCount, te.Span, "type variable %s takes no arguments", te.Name)
		}
		return core.VarType(te.Name)
	}
	tid, ok := lo.types[te.Name]
	if !ok {
		lo.errorf(diag.SemaUnresolvedType, te.Span, "unknown type %s", te.Name)
		return core.VarType("_")
	}
	td := lo.c.MustType(tid)
	if len(te.Args) != td.Arity() {
		lo.errorf(diag.SemaTypeArgCount, te.Span,
			"type %s expects %d argument(s), got %d", te.Name, td.Arity(), len(te.Args))
	}
	args := make([]core.Type, 0, len(te.Args))
	for _, a := range te.Args {
		args = append(args, lo.lowerType(a, tparams))
	}
	return core.RefType(tid, args...)
}

func isTypeVarName(s string) bool {
	return len(s) > 0 && s[0] >= 'a' && s[0] <= 'z'
}

func (lo *lowerer) declareFuncs(modName core.QName, m *ast.Module) {
	for _, fd := range m.Funcs {
		if _, exists := lo.funcs[fd.Name]; exists {
			lo.errorf(diag.SemaDuplicateSymbol, fd.Span, "function %s is already defined", fd.Name)
			continue
		}
		sig := core.Signature{Arity: len(fd.Results)}
		for _, prm := range fd.Params {
			sig.Inputs = append(sig.Inputs, lo.lowerType(prm.Type, nil))
		}
		for _, res := range fd.Results {
			sig.Outputs = append(sig.Outputs, lo.lowerType(res, nil))
		}
		for _, name := range fd.Uses {
			if id, ok := lo.resources[name]; ok {
				sig.Uses = append(sig.Uses, id)
			} else {
				lo.errorf(diag.SemaResourceUnknown, fd.Span, "unknown resource %s", name)
			}
		}
		for _, name := range fd.Observes {
			if id, ok := lo.resources[name]; ok {
				sig.Observes = append(sig.Observes, id)
			} else {
				lo.errorf(diag.SemaResourceUnknown, fd.Span, "unknown resource %s", name)
			}
		}
		id := lo.c.AddFunction(&core.Function{
			Name: modName.Qualify(fd.Name),
			Span: fd.Span,
			Sig:  sig,
			Impl: core.ImplCore,
		})
		lo.funcs[fd.Name] = id
	}
}

func (lo *lowerer) lowerBodies(m *ast.Module) {
	for _, fd := range m.Funcs {
		id, ok := lo.funcs[fd.Name]
		if !ok {
			continue
		}
		f := lo.c.MustFunction(id)
		if f.Span != fd.Span {
			// Duplicate that lost resolution; skip its body.
			continue
		}
		vm := core.NewVarmap()
		scope := make(map[string]core.VarID, len(fd.Params))
		params := make([]core.VarID, len(fd.Params))
		for i, prm := range fd.Params {
			params[i] = vm.NewVar(prm.Name)
			scope[prm.Name] = params[i]
		}
		fl := &funcLowerer{lo: lo, vm: vm}
		expr := fl.lowerStmts(fd.Body.Stmts, fd.Body.Span, scope)
		f.Body = &core.Body{Vars: vm, Params: params, Expr: expr}
	}
}

type funcLowerer struct {
	lo *lowerer
	vm *core.Varmap
}

// lowerStmts folds a statement list into nested let/sequence
// expressions. An empty list becomes the empty tuple.
func (fl *funcLowerer) lowerStmts(stmts []ast.Stmt, span source.Span, scope map[string]core.VarID) *core.Expr {
	if len(stmts) == 0 {
		return core.NewExpr(span, core.TupleData{})
	}
	first := stmts[0]
	if len(first.Vars) > 0 {
		rhs := fl.lowerExpr(first.Expr, scope)
		inner := cloneScope(scope)
		vars := make([]core.VarID, len(first.Vars))
		for i, name := range first.Vars {
			vars[i] = fl.vm.NewVar(name)
			inner[name] = vars[i]
		}
		body := fl.lowerStmts(stmts[1:], span, inner)
		return core.NewExpr(first.Span, core.LetData{Vars: vars, RHS: rhs, Body: body})
	}
	head := fl.lowerExpr(first.Expr, scope)
	if len(stmts) == 1 {
		return head
	}
	rest := fl.lowerStmts(stmts[1:], span, scope)
	return core.NewExpr(first.Span.Cover(span), core.SequenceData{Exprs: []*core.Expr{head, rest}})
}

func cloneScope(scope map[string]core.VarID) map[string]core.VarID {
	out := make(map[string]core.VarID, len(scope)+2)
	for k, v := range scope {
		out[k] = v
	}
	return out
}

func (fl *funcLowerer) lowerExpr(e ast.Expr, scope map[string]core.VarID) *core.Expr {
	lo := fl.lo
	switch n := e.(type) {
	case *ast.NumberLit:
		return core.NewExpr(n.Sp, core.ConstantData{
			Const: core.Constant{Kind: core.ConstNumber, Num: n.Value},
		})

	case *ast.StringLit:
		return core.NewExpr(n.Sp, core.ConstantData{
			Const: core.Constant{Kind: core.ConstString, Str: n.Value},
		})

	case *ast.NameRef:
		if v, ok := scope[n.Name]; ok {
			return core.NewExpr(n.Sp, core.VarData{Var: v})
		}
		if cid, ok := lo.ctors[n.Name]; ok {
			if !lo.c.MustCtor(cid).IsNullary() {
				lo.errorf(diag.SemaParameterNumber, n.Sp,
					"constructor %s requires arguments", n.Name)
			}
			return core.NewExpr(n.Sp, core.ConstantData{
				Const: core.Constant{Kind: core.ConstCtor, Ctor: cid},
			})
		}
		if fid, ok := lo.funcs[n.Name]; ok {
			lo.errorf(diag.SemaParameterNumber, n.Sp,
				"function %s is used without a call; function values are not supported", n.Name)
			return core.NewExpr(n.Sp, core.ConstantData{
				Const: core.Constant{Kind: core.ConstFunc, Func: fid},
			})
		}
		lo.errorf(diag.SemaUnresolvedSymbol, n.Sp, "unknown name %s", n.Name)
		return core.NewExpr(n.Sp, core.ConstantData{
			Const: core.Constant{Kind: core.ConstNumber},
		})

	case *ast.CallExpr:
		args := make([]*core.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = fl.lowerExpr(a, scope)
		}
		if cid, ok := lo.ctors[n.Callee]; ok {
			ctor := lo.c.MustCtor(cid)
			if len(args) != len(ctor.Fields) {
				lo.errorf(diag.SemaParameterNumber, n.Sp,
					"constructor %s expects %d argument(s), got %d", n.Callee, len(ctor.Fields), len(args))
			}
			return core.NewExpr(n.Sp, core.ConstructionData{Ctor: cid, Args: args})
		}
		if fid, ok := lo.funcs[n.Callee]; ok {
			return core.NewExpr(n.Sp, core.CallData{Func: fid, Args: args})
		}
		lo.errorf(diag.SemaUnresolvedSymbol, n.Sp, "unknown function %s", n.Callee)
		return core.NewExpr(n.Sp, core.ConstantData{
			Const: core.Constant{Kind: core.ConstNumber},
		})

	case *ast.BinaryExpr:
		fid := lo.funcs[n.Op]
		return core.NewExpr(n.Sp, core.CallData{
			Func: fid,
			Args: []*core.Expr{fl.lowerExpr(n.Left, scope), fl.lowerExpr(n.Right, scope)},
		})

	case *ast.UnaryExpr:
		fid := lo.funcs[n.Op]
		return core.NewExpr(n.Sp, core.CallData{
			Func: fid,
			Args: []*core.Expr{fl.lowerExpr(n.Operand, scope)},
		})

	case *ast.TupleExpr:
		elems := make([]*core.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = fl.lowerExpr(el, scope)
		}
		return core.NewExpr(n.Sp, core.TupleData{Exprs: elems})

	case *ast.BlockExpr:
		return fl.lowerStmts(n.Block.Stmts, n.Block.Span, cloneScope(scope))

	case *ast.MatchExpr:
		return fl.lowerMatch(n, scope)

	default:
		lo.errorf(diag.InternalError, e.Span(), "lower: unexpected AST node %T", e)
		return core.NewExpr(e.Span(), core.TupleData{})
	}
}

// lowerMatch binds the scrutinee to a variable when it is not one
// already: the core match dispatches on a var.
func (fl *funcLowerer) lowerMatch(n *ast.MatchExpr, scope map[string]core.VarID) *core.Expr {
	var scrutVar core.VarID
	var wrap bool
	if ref, ok := n.Scrutinee.(*ast.NameRef); ok {
		if v, found := scope[ref.Name]; found {
			scrutVar = v
		}
	}
	var rhs *core.Expr
	if !scrutVar.IsValid() {
		rhs = fl.lowerExpr(n.Scrutinee, scope)
		scrutVar = fl.vm.NewVar("match")
		wrap = true
	}

	cases := make([]core.Case, 0, len(n.Cases))
	for _, cs := range n.Cases {
		inner := cloneScope(scope)
		pat := fl.lowerPattern(cs.Pattern, inner)
		body := fl.lowerExpr(cs.Body, inner)
		cases = append(cases, core.Case{Pattern: pat, Body: body})
	}
	match := core.NewExpr(n.Sp, core.MatchData{Var: scrutVar, Cases: cases})
	if !wrap {
		return match
	}
	return core.NewExpr(n.Sp, core.LetData{
		Vars: []core.VarID{scrutVar},
		RHS:  rhs,
		Body: match,
	})
}

func (fl *funcLowerer) lowerPattern(p ast.Pattern, scope map[string]core.VarID) core.Pattern {
	lo := fl.lo
	switch p.Kind {
	case ast.PatWildcard:
		return core.Pattern{Kind: core.PatWildcard}

	case ast.PatNumber:
		return core.Pattern{Kind: core.PatNumber, Num: p.Num}

	case ast.PatName:
		// A known constructor name matches that constructor; anything
		// else binds a fresh variable.
		if cid, ok := lo.ctors[p.Name]; ok {
			if !lo.c.MustCtor(cid).IsNullary() {
				lo.errorf(diag.SemaPatternFieldCount, p.Sp,
					"constructor %s requires %d field pattern(s)", p.Name, len(lo.c.MustCtor(cid).Fields))
			}
			return core.Pattern{Kind: core.PatCtor, Ctor: cid}
		}
		v := fl.vm.NewVar(p.Name)
		scope[p.Name] = v
		return core.Pattern{Kind: core.PatVar, Var: v}

	case ast.PatCtor:
		cid, ok := lo.ctors[p.Name]
		if !ok {
			lo.errorf(diag.SemaUnresolvedCtor, p.Sp, "unknown constructor %s", p.Name)
			return core.Pattern{Kind: core.PatWildcard}
		}
		ctor := lo.c.MustCtor(cid)
		if len(p.Subs) != len(ctor.Fields) {
			lo.errorf(diag.SemaPatternFieldCount, p.Sp,
				"constructor %s has %d field(s), pattern names %d", p.Name, len(ctor.Fields), len(p.Subs))
		}
		subs := make([]core.Pattern, 0, len(p.Subs))
		for _, sub := range p.Subs {
			if sub.Kind == ast.PatWildcard {
				subs = append(subs, core.Pattern{Kind: core.PatWildcard})
				continue
			}
			v := fl.vm.NewVar(sub.Name)
			scope[sub.Name] = v
			subs = append(subs, core.Pattern{Kind: core.PatVar, Var: v})
		}
		return core.Pattern{Kind: core.PatCtor, Ctor: cid, Subs: subs}
	}
	return core.Pattern{Kind: core.PatWildcard}
}

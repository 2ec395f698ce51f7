package sema

import (
	"fmt"

	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/solver"
)

// InferTypes annotates every expression result of every function body
// with its inferred type. Functions in failed (from arity inference) are
// skipped; functions that fail here are added to the returned set.
func InferTypes(c *core.Core, failed map[core.FuncID]bool, r diag.Reporter) map[core.FuncID]bool {
	out := make(map[core.FuncID]bool, len(failed))
	for id, bad := range failed {
		out[id] = bad
	}
	for _, scc := range c.SCCs() {
		if len(scc) > 1 {
			// Already reported by arity inference.
			continue
		}
		id := scc[0]
		if out[id] {
			continue
		}
		f := c.MustFunction(id)
		if !f.HasBody() {
			continue
		}
		if !inferFunc(c, f, r) {
			out[id] = true
		}
	}
	return out
}

// typeWalker posts constraints for one function body. Expressions are
// numbered in pre-order; each result r of expression n is the solver
// variable tp_expr(n, r).
type typeWalker struct {
	c        *core.Core
	prob     *solver.Problem
	exprNums map[*core.Expr]int
	nextExpr int
	nextTmp  int
	vars     map[core.VarID]solver.Var
}

func inferFunc(c *core.Core, f *core.Function, r diag.Reporter) bool {
	w := &typeWalker{
		c:        c,
		prob:     solver.NewProblem(),
		exprNums: make(map[*core.Expr]int),
		vars:     make(map[core.VarID]solver.Var),
	}

	// Translate the signature. Type variables are shared across the
	// whole signature through one per-function map and pinned abstract,
	// so inference cannot specialize them.
	sigVars := make(map[string]solver.Var)
	for i, out := range f.Sig.Outputs {
		w.translate(out, solver.OutputVar(i), sigVars, true)
	}
	for i, in := range f.Sig.Inputs {
		w.translate(in, solver.InputVar(i), sigVars, true)
		w.vars[f.Body.Params[i]] = solver.InputVar(i)
	}

	bodyNum := w.walk(f.Body.Expr)

	// The body's results are the function's results.
	for i := 0; i < f.Sig.Arity; i++ {
		w.prob.ConstrainAlias(solver.OutputVar(i), solver.ExprVar(bodyNum, i))
	}

	sol, serr := w.prob.Solve(c)
	if serr != nil {
		r.Report(diag.NewError(solverCode(serr), f.Body.Expr.Info.Span,
			fmt.Sprintf("in function %s: %s", f.Name, serr.Error())))
		return false
	}

	// Attach per-result types.
	w.attach(f.Body.Expr, sol)
	return true
}

func solverCode(e *solver.Error) diag.Code {
	switch e.Kind {
	case solver.ErrOccursCheck:
		return diag.SemaOccursCheck
	case solver.ErrArityMismatch:
		return diag.SemaArityMismatchCall
	default:
		return diag.SemaTypeMismatch
	}
}

// fresh allocates a solver variable outside the expression numbering,
// used for signature instantiation and pattern bindings.
func (w *typeWalker) fresh() solver.Var {
	v := solver.ParamVar(w.nextTmp)
	w.nextTmp++
	return v
}

// translate posts constraints requiring target to have type t. tvars
// maps type-variable names to their solver variables; pin controls
// whether unseen type variables are pinned abstract (signatures) or left
// free to specialize (call-site instantiations).
func (w *typeWalker) translate(t core.Type, target solver.Var, tvars map[string]solver.Var, pin bool) {
	switch t.Kind {
	case core.TypeBuiltin:
		w.prob.ConstrainBuiltin(target, t.Builtin)
	case core.TypeVar:
		tv, ok := tvars[t.Var]
		if !ok {
			tv = w.fresh()
			if pin {
				w.prob.ConstrainAbstract(tv, t.Var)
			}
			tvars[t.Var] = tv
		}
		w.prob.ConstrainAlias(target, tv)
	case core.TypeRef:
		args := make([]solver.Var, len(t.Args))
		for i, at := range t.Args {
			args[i] = w.fresh()
			w.translate(at, args[i], tvars, pin)
		}
		w.prob.ConstrainUserType(target, t.Ref, args)
	default:
		panic(fmt.Sprintf("sema: translate invalid type kind %d", t.Kind))
	}
}

// walk numbers e, posts its constraints, and returns its number.
func (w *typeWalker) walk(e *core.Expr) int {
	n := w.nextExpr
	w.nextExpr++
	w.exprNums[e] = n

	switch data := e.Data.(type) {
	case core.SequenceData:
		var lastNum int
		for _, sub := range data.Exprs {
			lastNum = w.walk(sub)
		}
		last := data.Exprs[len(data.Exprs)-1]
		for r := 0; r < last.Info.Arity; r++ {
			w.prob.ConstrainAlias(solver.ExprVar(n, r), solver.ExprVar(lastNum, r))
		}

	case core.LetData:
		rhsNum := w.walk(data.RHS)
		for i, v := range data.Vars {
			w.vars[v] = solver.ExprVar(rhsNum, i)
		}
		bodyNum := w.walk(data.Body)
		for r := 0; r < data.Body.Info.Arity; r++ {
			w.prob.ConstrainAlias(solver.ExprVar(n, r), solver.ExprVar(bodyNum, r))
		}

	case core.TupleData:
		for i, sub := range data.Exprs {
			subNum := w.walk(sub)
			w.prob.ConstrainAlias(solver.ExprVar(n, i), solver.ExprVar(subNum, 0))
		}

	case core.CallData:
		callee := w.c.MustFunction(data.Func)
		argNums := make([]int, len(data.Args))
		for i, arg := range data.Args {
			argNums[i] = w.walk(arg)
		}
		// One fresh type-variable map per call site: type variables in
		// the callee's signature are distinct per call, which is the
		// whole polymorphism mechanism.
		callVars := make(map[string]solver.Var)
		for i, in := range callee.Sig.Inputs {
			if i >= len(argNums) {
				break
			}
			w.translate(in, solver.ExprVar(argNums[i], 0), callVars, false)
		}
		for i, out := range callee.Sig.Outputs {
			w.translate(out, solver.ExprVar(n, i), callVars, false)
		}

	case core.VarData:
		pv, ok := w.vars[data.Var]
		if !ok {
			panic(fmt.Sprintf("sema: unbound variable %d reached type inference", data.Var))
		}
		w.prob.ConstrainAlias(solver.ExprVar(n, 0), pv)

	case core.ConstantData:
		w.walkConstant(n, data.Const)

	case core.ConstructionData:
		ctor := w.c.MustCtor(data.Ctor)
		argNums := make([]int, len(data.Args))
		for i, arg := range data.Args {
			argNums[i] = w.walk(arg)
		}
		siteVars := make(map[string]solver.Var)
		for i, field := range ctor.Fields {
			if i >= len(argNums) {
				break
			}
			w.translate(field.Type, solver.ExprVar(argNums[i], 0), siteVars, false)
		}
		w.constrainCtorResult(solver.ExprVar(n, 0), ctor, siteVars)

	case core.MatchData:
		scrutinee, ok := w.vars[data.Var]
		if !ok {
			panic(fmt.Sprintf("sema: unbound match scrutinee %d", data.Var))
		}
		for _, cs := range data.Cases {
			w.walkPattern(cs.Pattern, scrutinee)
			bodyNum := w.walk(cs.Body)
			for r := 0; r < cs.Body.Info.Arity; r++ {
				w.prob.ConstrainAlias(solver.ExprVar(n, r), solver.ExprVar(bodyNum, r))
			}
		}

	default:
		panic(fmt.Sprintf("sema: unexpected expression payload %T", e.Data))
	}
	return n
}

func (w *typeWalker) walkConstant(n int, c core.Constant) {
	target := solver.ExprVar(n, 0)
	switch c.Kind {
	case core.ConstNumber:
		w.prob.ConstrainBuiltin(target, core.BuiltinInt)
	case core.ConstString:
		w.prob.ConstrainBuiltin(target, core.BuiltinString)
	case core.ConstCtor:
		ctor := w.c.MustCtor(c.Ctor)
		w.constrainCtorResult(target, ctor, make(map[string]solver.Var))
	case core.ConstFunc:
		// Function values have no first-class type in the core type
		// model; the result stays free and labels abstract.
	}
}

// constrainCtorResult constrains target to the constructor's owning type
// applied to the site's type-parameter variables.
func (w *typeWalker) constrainCtorResult(target solver.Var, ctor *core.Constructor, siteVars map[string]solver.Var) {
	args := make([]solver.Var, len(ctor.Params))
	for i, p := range ctor.Params {
		tv, ok := siteVars[p]
		if !ok {
			tv = w.fresh()
			siteVars[p] = tv
		}
		args[i] = tv
	}
	w.prob.ConstrainUserType(target, ctor.Type, args)
}

// walkPattern constrains a pattern against the solver variable of the
// value it matches, binding pattern variables along the way.
func (w *typeWalker) walkPattern(p core.Pattern, against solver.Var) {
	switch p.Kind {
	case core.PatVar:
		w.vars[p.Var] = against
	case core.PatWildcard:
		// matches anything, binds nothing
	case core.PatNumber:
		w.prob.ConstrainBuiltin(against, core.BuiltinInt)
	case core.PatCtor:
		ctor := w.c.MustCtor(p.Ctor)
		siteVars := make(map[string]solver.Var)
		w.constrainCtorResult(against, ctor, siteVars)
		for i, sub := range p.Subs {
			if i >= len(ctor.Fields) {
				break
			}
			fieldVar := w.fresh()
			w.translate(ctor.Fields[i].Type, fieldVar, siteVars, false)
			w.walkPattern(sub, fieldVar)
		}
	}
}

// attach walks the body once more and records each result's resolved
// type in the expression's CodeInfo.
func (w *typeWalker) attach(e *core.Expr, sol *solver.Solution) {
	n := w.exprNums[e]
	arity := e.Info.Arity
	if arity < 0 {
		arity = 0
	}
	types := make([]core.Type, arity)
	for r := 0; r < arity; r++ {
		if t, ok := sol.Type(solver.ExprVar(n, r)); ok {
			types[r] = t
		}
	}
	e.Info.Types = types

	switch data := e.Data.(type) {
	case core.SequenceData:
		for _, sub := range data.Exprs {
			w.attach(sub, sol)
		}
	case core.LetData:
		w.attach(data.RHS, sol)
		w.attach(data.Body, sol)
	case core.TupleData:
		for _, sub := range data.Exprs {
			w.attach(sub, sol)
		}
	case core.CallData:
		for _, arg := range data.Args {
			w.attach(arg, sol)
		}
	case core.ConstructionData:
		for _, arg := range data.Args {
			w.attach(arg, sol)
		}
	case core.MatchData:
		for _, cs := range data.Cases {
			w.attach(cs.Body, sol)
		}
	}
}

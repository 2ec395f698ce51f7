package sema

import (
	"fmt"

	"plasma/internal/core"
	"plasma/internal/diag"
)

// InferArity annotates every sub-expression of every function body with
// the number of values it produces. Returns the set of functions that
// failed; downstream passes skip those.
func InferArity(c *core.Core, r diag.Reporter) map[core.FuncID]bool {
	failed := make(map[core.FuncID]bool)
	for _, scc := range c.SCCs() {
		if len(scc) > 1 {
			for _, id := range scc {
				f := c.MustFunction(id)
				r.Report(diag.NewError(diag.LimMutualRecursion, f.Span,
					fmt.Sprintf("function %s is mutually recursive; inference over mutually recursive functions is not implemented", f.Name)))
				failed[id] = true
			}
			continue
		}
		id := scc[0]
		f := c.MustFunction(id)
		if !f.HasBody() {
			continue
		}
		a := &arityChecker{c: c, r: r}
		got := a.annotate(f.Body.Expr)
		if a.bad {
			failed[id] = true
			continue
		}
		if got != f.Sig.Arity {
			r.Report(diag.NewError(diag.SemaArityMismatchFunc, f.Body.Expr.Info.Span,
				fmt.Sprintf("function %s declares %d result(s) but its body produces %d", f.Name, f.Sig.Arity, got)))
			failed[id] = true
		}
	}
	return failed
}

type arityChecker struct {
	c   *core.Core
	r   diag.Reporter
	bad bool
}

func (a *arityChecker) errorf(e *core.Expr, code diag.Code, format string, args ...any) {
	a.bad = true
	a.r.Report(diag.NewError(code, e.Info.Span, fmt.Sprintf(format, args...)))
}

// annotate computes and records the arity of e. Errors do not stop the
// walk; they mark the function failed so later passes skip it.
func (a *arityChecker) annotate(e *core.Expr) int {
	arity := a.arityOf(e)
	e.Info.Arity = arity
	return arity
}

func (a *arityChecker) arityOf(e *core.Expr) int {
	switch data := e.Data.(type) {
	case core.SequenceData:
		arity := 0
		for _, sub := range data.Exprs {
			arity = a.annotate(sub)
		}
		return arity

	case core.LetData:
		got := a.annotate(data.RHS)
		if got != len(data.Vars) {
			a.errorf(e, diag.SemaArityMismatch,
				"let binds %d variable(s) but its right-hand side produces %d value(s)", len(data.Vars), got)
		}
		return a.annotate(data.Body)

	case core.TupleData:
		for _, sub := range data.Exprs {
			a.checkOne(sub)
		}
		return len(data.Exprs)

	case core.CallData:
		callee := a.c.MustFunction(data.Func)
		if len(data.Args) != len(callee.Sig.Inputs) {
			a.errorf(e, diag.SemaParameterNumber,
				"%s expects %d argument(s), got %d", callee.Name, len(callee.Sig.Inputs), len(data.Args))
		}
		for _, arg := range data.Args {
			a.checkOne(arg)
		}
		return callee.Sig.Arity

	case core.VarData, core.ConstantData:
		return 1

	case core.ConstructionData:
		for _, arg := range data.Args {
			a.checkOne(arg)
		}
		return 1

	case core.MatchData:
		arity := core.ArityUnknown
		for _, cs := range data.Cases {
			got := a.annotate(cs.Body)
			if arity == core.ArityUnknown {
				arity = got
			} else if got != arity {
				a.errorf(cs.Body, diag.SemaArityMismatch,
					"match case produces %d value(s) but earlier cases produce %d", got, arity)
			}
		}
		return arity

	default:
		a.errorf(e, diag.InternalError, "arity: unexpected expression payload %T", e.Data)
		return core.ArityUnknown
	}
}

// checkOne annotates a sub-expression that must produce exactly one
// value (call arguments, construction arguments, tuple elements).
func (a *arityChecker) checkOne(e *core.Expr) {
	if got := a.annotate(e); got != 1 {
		a.errorf(e, diag.SemaArityMismatch,
			"expression must produce exactly one value, produces %d", got)
	}
}

// Package solver implements the Herbrand constraint solver used by type
// inference. Constraints relate named solver variables to built-in
// types, applications of user-declared types, pinned abstract type
// variables, or each other (aliases). Solving is unification with an
// occurs check; aliases form equivalence classes.
package solver

import "fmt"

// VarKind distinguishes where a solver variable comes from.
type VarKind uint8

const (
	// VarExpr names one result of one expression: tp_expr(n, r).
	VarExpr VarKind = iota
	// VarInput names a function parameter: tp_input(i).
	VarInput
	// VarOutput names a function result: tp_output(i).
	VarOutput
	// VarParam is a fresh variable standing for one type parameter of a
	// signature instantiation. One is allocated per type variable per
	// call site, which is what makes polymorphism per-call-site.
	VarParam
)

// Var is a named solver variable. The struct is comparable and used as a
// map key; identity is the full field tuple.
type Var struct {
	Kind   VarKind
	Expr   int32 // expression number, VarExpr only
	Result int32 // result number, VarExpr only
	Index  int32 // parameter/result/fresh-variable index, VarInput/VarOutput/VarParam only
}

// ExprVar names result r of expression n.
func ExprVar(n, r int) Var {
	return Var{Kind: VarExpr, Expr: int32(n), Result: int32(r)}
}

// InputVar names function parameter i.
func InputVar(i int) Var {
	return Var{Kind: VarInput, Index: int32(i)}
}

// OutputVar names function result i.
func OutputVar(i int) Var {
	return Var{Kind: VarOutput, Index: int32(i)}
}

// ParamVar names the i-th fresh type-parameter variable of a function
// walk.
func ParamVar(i int) Var {
	return Var{Kind: VarParam, Index: int32(i)}
}

// Signature reports whether the variable appears in the enclosing
// function's signature. Labeling order depends on this: signature-facing
// variables are labeled last so free inner variables do not force
// signatures.
func (v Var) Signature() bool {
	return v.Kind == VarInput || v.Kind == VarOutput
}

func (v Var) String() string {
	switch v.Kind {
	case VarExpr:
		return fmt.Sprintf("e%d.%d", v.Expr, v.Result)
	case VarInput:
		return fmt.Sprintf("in%d", v.Index)
	case VarOutput:
		return fmt.Sprintf("out%d", v.Index)
	case VarParam:
		return fmt.Sprintf("p%d", v.Index)
	}
	return "?"
}

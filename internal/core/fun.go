package core

import "plasma/internal/source"

// ImplKind distinguishes how a function body is provided.
type ImplKind uint8

const (
	// ImplCore functions have a real core body.
	ImplCore ImplKind = iota
	// ImplInlinePZ builtins carry a canned instruction sequence that the
	// code generator splices at every call site.
	ImplInlinePZ
	// ImplRuntime functions are named imports resolved by the runtime.
	ImplRuntime
)

// Signature describes a function's inputs, outputs and effects.
// Arity is the declared number of results (Plasma is multiple-return);
// it equals len(Outputs).
type Signature struct {
	Inputs   []Type
	Outputs  []Type
	Uses     []ResourceID
	Observes []ResourceID
	Arity    int
}

// Body is the executable part of a function. Imported functions carry
// none.
type Body struct {
	Vars   *Varmap
	Params []VarID
	Expr   *Expr
}

// Function pairs a signature with an optional body.
type Function struct {
	Name QName
	Span source.Span // declaration site; zero for builtins
	Sig  Signature
	Impl ImplKind
	Body *Body
}

// HasBody reports whether the function carries a core body.
func (f *Function) HasBody() bool { return f.Body != nil }

// UsesResources reports whether the function uses or observes any
// resource.
func (f *Function) UsesResources() bool {
	return len(f.Sig.Uses) > 0 || len(f.Sig.Observes) > 0
}

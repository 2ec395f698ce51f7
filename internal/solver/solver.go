package solver

import (
	"fmt"
	"strings"

	"plasma/internal/core"
)

// ErrKind enumerates solver failure kinds.
type ErrKind uint8

const (
	ErrTypeMismatch ErrKind = iota
	ErrOccursCheck
	ErrArityMismatch
)

// Error reports a unification failure. Left and Right describe the two
// conflicting terms; the sema layer attaches source spans.
type Error struct {
	Kind  ErrKind
	Left  string
	Right string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrOccursCheck:
		return fmt.Sprintf("infinite type: %s occurs in %s", e.Left, e.Right)
	case ErrArityMismatch:
		return fmt.Sprintf("type arity mismatch: %s vs %s", e.Left, e.Right)
	default:
		return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
	}
}

type state struct {
	core   *core.Core
	parent map[Var]Var
	vals   map[Var]*value
	fresh  int
}

// Solution maps solver variables to resolved types after a successful
// solve.
type Solution struct {
	st *state
}

// Solve runs propagation over the posted constraints, then labels: first
// variables outside the function signature (inventing fresh abstract
// type variables for anything still free), then the signature-facing
// variables. The Core is only consulted for type names in error
// messages.
func (p *Problem) Solve(c *core.Core) (*Solution, *Error) {
	st := &state{
		core:   c,
		parent: make(map[Var]Var, len(p.order)),
		vals:   make(map[Var]*value, len(p.order)),
	}
	for _, con := range p.constraints {
		var err *Error
		switch con.kind {
		case conAlias:
			err = st.union(con.v, con.other)
		default:
			v := con.val
			err = st.bind(con.v, &v)
		}
		if err != nil {
			return nil, err
		}
	}

	// Labeling. Signature-facing variables go last so free inner
	// variables do not force signatures.
	for _, v := range p.order {
		if !v.Signature() {
			st.label(v)
		}
	}
	for _, v := range p.order {
		if v.Signature() {
			st.label(v)
		}
	}
	return &Solution{st: st}, nil
}

// Type resolves a solver variable to a concrete core type. ok is false
// for variables the problem never saw.
func (s *Solution) Type(v Var) (core.Type, bool) {
	root := s.st.find(v)
	val := s.st.vals[root]
	if val == nil {
		return core.Type{}, false
	}
	return s.st.resolve(root), true
}

func (st *state) find(v Var) Var {
	p, ok := st.parent[v]
	if !ok || p == v {
		return v
	}
	root := st.find(p)
	st.parent[v] = root
	return root
}

// union merges the equivalence classes of v and w.
func (st *state) union(v, w Var) *Error {
	rv, rw := st.find(v), st.find(w)
	if rv == rw {
		return nil
	}
	valV, valW := st.vals[rv], st.vals[rw]
	st.parent[rw] = rv
	delete(st.vals, rw)
	switch {
	case valV == nil && valW == nil:
		return nil
	case valV == nil:
		return st.setValue(rv, valW)
	case valW == nil:
		st.vals[rv] = valV
		return st.checkOccurs(rv, valV)
	default:
		st.vals[rv] = valV
		return st.unifyValues(valV, valW)
	}
}

// bind constrains the class of v with a new value.
func (st *state) bind(v Var, val *value) *Error {
	root := st.find(v)
	if existing := st.vals[root]; existing != nil {
		return st.unifyValues(existing, val)
	}
	return st.setValue(root, val)
}

func (st *state) setValue(root Var, val *value) *Error {
	if err := st.checkOccurs(root, val); err != nil {
		return err
	}
	st.vals[root] = val
	return nil
}

// unifyValues merges two bindings of the same class.
func (st *state) unifyValues(a, b *value) *Error {
	if a.kind != b.kind {
		return &Error{Kind: ErrTypeMismatch, Left: st.describe(a), Right: st.describe(b)}
	}
	switch a.kind {
	case valBuiltin:
		if a.builtin != b.builtin {
			return &Error{Kind: ErrTypeMismatch, Left: st.describe(a), Right: st.describe(b)}
		}
	case valAbstract:
		if a.abstract != b.abstract {
			return &Error{Kind: ErrTypeMismatch, Left: st.describe(a), Right: st.describe(b)}
		}
	case valRef:
		if a.ref != b.ref {
			return &Error{Kind: ErrTypeMismatch, Left: st.describe(a), Right: st.describe(b)}
		}
		if len(a.args) != len(b.args) {
			return &Error{Kind: ErrArityMismatch, Left: st.describe(a), Right: st.describe(b)}
		}
		for i := range a.args {
			if err := st.union(a.args[i], b.args[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkOccurs rejects bindings that would make root reachable from its
// own value.
func (st *state) checkOccurs(root Var, val *value) *Error {
	if val.kind != valRef {
		return nil
	}
	for _, a := range val.args {
		ra := st.find(a)
		if ra == root {
			return &Error{Kind: ErrOccursCheck, Left: root.String(), Right: st.describe(val)}
		}
		if inner := st.vals[ra]; inner != nil {
			if err := st.checkOccurs(root, inner); err != nil {
				return err
			}
		}
	}
	return nil
}

// label grounds the class of v, inventing a fresh abstract type variable
// when the class is still free, and descending into reference arguments
// of the same signature-facing phase.
func (st *state) label(v Var) {
	root := st.find(v)
	val := st.vals[root]
	if val == nil {
		name := fmt.Sprintf("_t%d", st.fresh)
		st.fresh++
		st.vals[root] = &value{kind: valAbstract, abstract: name}
		return
	}
	if val.kind == valRef {
		for _, a := range val.args {
			st.label(a)
		}
	}
}

// resolve reads the class of root back as a core type. Labeling has
// already grounded every class, so free classes cannot be reached here.
func (st *state) resolve(root Var) core.Type {
	val := st.vals[root]
	if val == nil {
		panic(fmt.Sprintf("solver: unlabeled variable %s", root))
	}
	switch val.kind {
	case valBuiltin:
		return core.Type{Kind: core.TypeBuiltin, Builtin: val.builtin}
	case valAbstract:
		return core.VarType(val.abstract)
	case valRef:
		args := make([]core.Type, len(val.args))
		for i, a := range val.args {
			args[i] = st.resolve(st.find(a))
		}
		return core.RefType(val.ref, args...)
	}
	panic("solver: invalid value kind")
}

func (st *state) describe(val *value) string {
	switch val.kind {
	case valBuiltin:
		return val.builtin.String()
	case valAbstract:
		return val.abstract
	case valRef:
		name := fmt.Sprintf("type#%d", val.ref)
		if st.core != nil {
			if td, ok := st.core.Type(val.ref); ok {
				name = td.Name.String()
			}
		}
		if len(val.args) == 0 {
			return name
		}
		parts := make([]string, len(val.args))
		for i, a := range val.args {
			ra := st.find(a)
			if inner := st.vals[ra]; inner != nil {
				parts[i] = st.describe(inner)
			} else {
				parts[i] = "_"
			}
		}
		return name + "(" + strings.Join(parts, ", ") + ")"
	}
	return "<invalid>"
}

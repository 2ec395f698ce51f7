package solver

import (
	"plasma/internal/core"
)

// valueKind enumerates the shapes a variable can be bound to.
type valueKind uint8

const (
	valBuiltin valueKind = iota
	valRef
	valAbstract
)

// value is the binding of one equivalence class. Ref arguments are
// themselves solver variables, keeping terms flat.
type value struct {
	kind     valueKind
	builtin  core.Builtin
	ref      core.TypeID
	args     []Var
	abstract string
}

// constraintKind enumerates posted constraint kinds.
type constraintKind uint8

const (
	conBuiltin constraintKind = iota
	conUserType
	conAbstract
	conAlias
)

type constraint struct {
	kind  constraintKind
	v     Var
	other Var // alias target
	val   value
}

// Problem accumulates constraints for one function before solving.
type Problem struct {
	constraints []constraint
	order       []Var        // first-seen order, for deterministic labeling
	seen        map[Var]bool
}

func NewProblem() *Problem {
	return &Problem{seen: make(map[Var]bool)}
}

func (p *Problem) touch(v Var) {
	if !p.seen[v] {
		p.seen[v] = true
		p.order = append(p.order, v)
	}
}

// ConstrainBuiltin requires v to resolve to a built-in type.
func (p *Problem) ConstrainBuiltin(v Var, b core.Builtin) {
	p.touch(v)
	p.constraints = append(p.constraints, constraint{
		kind: conBuiltin, v: v,
		val: value{kind: valBuiltin, builtin: b},
	})
}

// ConstrainUserType requires v to resolve to id applied to the argument
// variables.
func (p *Problem) ConstrainUserType(v Var, id core.TypeID, args []Var) {
	p.touch(v)
	for _, a := range args {
		p.touch(a)
	}
	p.constraints = append(p.constraints, constraint{
		kind: conUserType, v: v,
		val: value{kind: valRef, ref: id, args: args},
	})
}

// ConstrainAbstract pins v to the named type variable; v must remain
// abstract.
func (p *Problem) ConstrainAbstract(v Var, tvar string) {
	p.touch(v)
	p.constraints = append(p.constraints, constraint{
		kind: conAbstract, v: v,
		val: value{kind: valAbstract, abstract: tvar},
	})
}

// ConstrainAlias unifies v and w.
func (p *Problem) ConstrainAlias(v, w Var) {
	p.touch(v)
	p.touch(w)
	p.constraints = append(p.constraints, constraint{kind: conAlias, v: v, other: w})
}

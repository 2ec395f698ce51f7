package core

import "plasma/internal/source"

// TypeDef is a user-declared algebraic type.
type TypeDef struct {
	Name   QName
	Span   source.Span // declaration site; zero for builtins
	Params []string    // type parameter names, in declaration order
	Ctors  []CtorID    // constructors, in declaration order
}

// Arity is the number of type parameters.
func (td *TypeDef) Arity() int { return len(td.Params) }

// Field is one named, typed constructor field.
type Field struct {
	Name string
	Type Type
}

// Constructor belongs to exactly one TypeDef.
type Constructor struct {
	Name   QName
	Span   source.Span
	Type   TypeID   // owning type
	Params []string // the owning type's parameters
	Fields []Field  // ordered; empty means nullary
}

// IsNullary reports whether the constructor has no fields.
func (c *Constructor) IsNullary() bool { return len(c.Fields) == 0 }

// Resource is a declared effect resource (IO, Environment, ...).
type Resource struct {
	Name QName
	// FromEnv marks resources observable without being declared, such as
	// Time.
	FromEnv bool
}

package core

import "strings"

// TypeKind enumerates the shapes a core type can take.
type TypeKind uint8

const (
	// TypeInvalid is the zero value; no well-formed type has it.
	TypeInvalid TypeKind = iota
	// TypeBuiltin is one of the built-in scalar types.
	TypeBuiltin
	// TypeRef references a user-declared algebraic type, possibly applied
	// to argument types.
	TypeRef
	// TypeVar is a free type variable scoped to the enclosing declaration.
	TypeVar
)

// Builtin enumerates built-in scalar types.
type Builtin uint8

const (
	BuiltinInt Builtin = iota
	BuiltinString
	BuiltinCodepoint
)

func (b Builtin) String() string {
	switch b {
	case BuiltinInt:
		return "Int"
	case BuiltinString:
		return "String"
	case BuiltinCodepoint:
		return "Codepoint"
	}
	return "?"
}

// Type is a core type term. Args is only meaningful for TypeRef and its
// length equals the declared arity of the referenced type.
type Type struct {
	Kind    TypeKind
	Builtin Builtin
	Ref     TypeID
	Args    []Type
	Var     string
}

func IntType() Type       { return Type{Kind: TypeBuiltin, Builtin: BuiltinInt} }
func StringType() Type    { return Type{Kind: TypeBuiltin, Builtin: BuiltinString} }
func CodepointType() Type { return Type{Kind: TypeBuiltin, Builtin: BuiltinCodepoint} }

func RefType(id TypeID, args ...Type) Type {
	return Type{Kind: TypeRef, Ref: id, Args: args}
}

func VarType(name string) Type {
	return Type{Kind: TypeVar, Var: name}
}

// Equal compares two types structurally.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TypeBuiltin:
		return t.Builtin == other.Builtin
	case TypeRef:
		if t.Ref != other.Ref || len(t.Args) != len(other.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(other.Args[i]) {
				return false
			}
		}
		return true
	case TypeVar:
		return t.Var == other.Var
	}
	return t.Kind == other.Kind
}

// FreeVars appends the names of free type variables in document order.
func (t Type) FreeVars(out []string) []string {
	switch t.Kind {
	case TypeVar:
		out = append(out, t.Var)
	case TypeRef:
		for _, a := range t.Args {
			out = a.FreeVars(out)
		}
	}
	return out
}

// Describe renders the type for diagnostics. Reference types print their
// id when no Core is available to resolve names.
func (t Type) Describe(c *Core) string {
	switch t.Kind {
	case TypeBuiltin:
		return t.Builtin.String()
	case TypeVar:
		return t.Var
	case TypeRef:
		name := "?"
		if c != nil {
			if td, ok := c.Type(t.Ref); ok {
				name = td.Name.String()
			}
		}
		if len(t.Args) == 0 {
			return name
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.Describe(c)
		}
		return name + "(" + strings.Join(parts, ", ") + ")"
	}
	return "<invalid>"
}

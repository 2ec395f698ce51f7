package core

import "strings"

// BuiltinModule is the name of the top-level builtin module.
const BuiltinModule = "builtin"

// QName is a qualified name: a non-empty sequence of identifier segments.
// Two qualified names are equal iff their segment sequences are equal.
type QName []string

// Name builds a single-segment qualified name.
func Name(s string) QName { return QName{s} }

// BuiltinName builds a name inside the builtin module.
func BuiltinName(s string) QName { return QName{BuiltinModule, s} }

// Qualify appends a segment.
func (q QName) Qualify(s string) QName {
	out := make(QName, 0, len(q)+1)
	out = append(out, q...)
	return append(out, s)
}

// Unqual returns the final segment.
func (q QName) Unqual() string {
	if len(q) == 0 {
		return ""
	}
	return q[len(q)-1]
}

func (q QName) Equal(other QName) bool {
	if len(q) != len(other) {
		return false
	}
	for i := range q {
		if q[i] != other[i] {
			return false
		}
	}
	return true
}

func (q QName) String() string {
	return strings.Join(q, ".")
}

package diag

import (
	"fmt"
)

type Code uint16

const (
	// UnknownCode is the catch-all for uncategorized failures.
	UnknownCode Code = 0

	// Lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexUnterminatedBlockComment Code = 1004

	// Syntax
	SynInfo            Code = 2000
	SynUnexpectedToken Code = 2001
	SynExpectIdent     Code = 2002
	SynExpectType      Code = 2003
	SynExpectExpr      Code = 2004
	SynExpectPattern   Code = 2005
	SynDuplicateField  Code = 2006

	// Semantic (name resolution, arity, types)
	SemaInfo              Code = 3000
	SemaDuplicateSymbol   Code = 3001
	SemaUnresolvedSymbol  Code = 3002
	SemaUnresolvedType    Code = 3003
	SemaUnresolvedCtor    Code = 3004
	SemaParameterNumber   Code = 3005
	SemaArityMismatch     Code = 3006
	SemaArityMismatchFunc Code = 3007
	SemaTypeMismatch      Code = 3008
	SemaOccursCheck       Code = 3009
	SemaArityMismatchCall Code = 3010
	SemaPatternWrongType  Code = 3011
	SemaPatternFieldCount Code = 3012
	SemaResourceUnknown   Code = 3013
	SemaTypeArgCount      Code = 3014

	// Code generation and design limitations
	GenInfo                 Code = 4000
	LimMutualRecursion      Code = 4001
	LimSecondaryTags        Code = 4002
	LimNonASCIIString       Code = 4003

	// I/O
	IOLoadFileError Code = 5001

	// Compiler bugs
	InternalError Code = 9000
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Lexical information",
	LexUnknownChar:              "Unknown character",
	LexUnterminatedString:       "Unterminated string",
	LexBadNumber:                "Bad number",
	LexUnterminatedBlockComment: "Unterminated block comment",
	SynInfo:                     "Syntax information",
	SynUnexpectedToken:          "Unexpected token",
	SynExpectIdent:              "Expect identifier",
	SynExpectType:               "Expect type",
	SynExpectExpr:               "Expect expression",
	SynExpectPattern:            "Expect pattern",
	SynDuplicateField:           "Duplicate field",
	SemaInfo:                    "Semantic information",
	SemaDuplicateSymbol:         "Duplicate symbol",
	SemaUnresolvedSymbol:        "Unresolved symbol",
	SemaUnresolvedType:          "Unresolved type",
	SemaUnresolvedCtor:          "Unresolved constructor",
	SemaParameterNumber:         "Wrong number of arguments",
	SemaArityMismatch:           "Arity mismatch",
	SemaArityMismatchFunc:       "Function arity mismatch",
	SemaTypeMismatch:            "Type mismatch",
	SemaOccursCheck:             "Occurs check failed (infinite type)",
	SemaArityMismatchCall:       "Call arity mismatch",
	SemaPatternWrongType:        "Pattern does not match scrutinee type",
	SemaPatternFieldCount:       "Pattern has wrong number of fields",
	SemaResourceUnknown:         "Unknown resource",
	SemaTypeArgCount:            "Wrong number of type arguments",
	GenInfo:                     "Code generation information",
	LimMutualRecursion:          "Mutual recursion is not supported",
	LimSecondaryTags:            "Secondary tags are not supported",
	LimNonASCIIString:           "Non-ASCII strings are not supported",
	IOLoadFileError:             "I/O load file error",
	InternalError:               "Internal compiler error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("ICE%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

// IsLimitation reports whether the code names a known design limitation
// rather than a user error.
func (c Code) IsLimitation() bool {
	switch c {
	case LimMutualRecursion, LimSecondaryTags, LimNonASCIIString:
		return true
	}
	return false
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Package evaluator implements the imp runtime: values, the stack machine and
// the recursive evaluation protocol.
package evaluator

import (
	"strconv"

	"github.com/imp-lang/imp/pkg/ast"
)

// Value is a tagged scalar. It is a plain struct, so assigning or pushing a
// Value copies its payload; no slot ever aliases another.
type Value struct {
	Kind ast.Type
	Int  int64
	Str  string
}

// Zero returns the zero value of kind: 0 for int, "" for string.
func Zero(kind ast.Type) Value {
	return Value{Kind: kind}
}

// IntValue creates an int value.
func IntValue(n int64) Value {
	return Value{Kind: ast.TypeInt, Int: n}
}

// StringValue creates a string value.
func StringValue(s string) Value {
	return Value{Kind: ast.TypeString, Str: s}
}

// BoolValue maps a Go bool onto the 0/1 int convention.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// IsInt reports whether v carries an int payload.
func (v Value) IsInt() bool {
	return v.Kind == ast.TypeInt
}

// Truthy reports whether v is a nonzero int. Strings are never truthy; callers
// type-check before asking.
func (v Value) Truthy() bool {
	return v.Kind == ast.TypeInt && v.Int != 0
}

// String renders v the way write() emits it: decimal for int, raw text for
// string.
func (v Value) String() string {
	if v.Kind == ast.TypeInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Str
}

// Quoted renders v as a source literal, used when listing variables.
func (v Value) Quoted() string {
	if v.Kind == ast.TypeInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return strconv.Quote(v.Str)
}

package evaluator

import (
	"errors"
	"fmt"

	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
)

// RuntimeError represents a runtime error during imp execution. Code is one of
// the diagnostics.E* runtime codes.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for diagnostics rendering.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

func errRedefinition(name string) error {
	return &RuntimeError{Code: diagnostics.ERedefinition, Message: "Redefinition of variable " + name}
}

func errUndefined(name string) error {
	return &RuntimeError{Code: diagnostics.EUndefined, Message: "No variable " + name}
}

func errStackUnderflow() error {
	return &RuntimeError{Code: diagnostics.EStackUnderflow, Message: "Stack underflow"}
}

func errNotInt() error {
	return &RuntimeError{Code: diagnostics.ENotInt, Message: "Not int in int expression"}
}

func errNotBoolInt() error {
	return &RuntimeError{Code: diagnostics.ENotBoolInt, Message: "Not int and not boolean in bool expression"}
}

func errTypeMismatch() error {
	return &RuntimeError{Code: diagnostics.ETypeMismatch, Message: "Variable and expression types are different"}
}

func errDivZero() error {
	return &RuntimeError{Code: diagnostics.EDivZero, Message: "Division by zero"}
}

func errCannotRead() error {
	return &RuntimeError{Code: diagnostics.ECannotRead, Message: "Can't read required type!"}
}

func errBudget(max int64) error {
	return &RuntimeError{
		Code:    diagnostics.EBudget,
		Message: fmt.Sprintf("iteration budget exceeded (max %d)", max),
	}
}

// at attaches span to a RuntimeError that does not carry one yet. The
// innermost node that raised the error wins.
func at(err error, span ast.Span) error {
	var rte *RuntimeError
	if errors.As(err, &rte) && rte.Span == nil {
		s := span
		rte.Span = &s
	}
	return err
}

// ErrorCode returns the runtime code carried by err, or "" when err is not a
// RuntimeError.
func ErrorCode(err error) string {
	var rte *RuntimeError
	if errors.As(err, &rte) {
		return rte.Code
	}
	return ""
}

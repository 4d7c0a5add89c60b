package timeexpr

import (
	"errors"
	"fmt"
)

// ErrUnresolved matches every *UnresolvedError via errors.Is.
var ErrUnresolved = errors.New("unresolved time reference")

// UnresolvedError reports a reference to a time that is not known yet.
// It is a control-flow signal for the resolver, not a user-facing failure.
type UnresolvedError struct {
	Kind RefKind
	ID   string // scene or cue id; empty for prev/next
	Edge Edge
}

func (e *UnresolvedError) Error() string {
	switch e.Kind {
	case RefScene, RefCue:
		return fmt.Sprintf("%s: %s(%s).%s", ErrUnresolved, e.Kind, e.ID, e.Edge)
	default:
		return fmt.Sprintf("%s: %s.%s", ErrUnresolved, e.Kind, e.Edge)
	}
}

// Is reports whether target is ErrUnresolved.
func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

// SyntaxError is returned by Parse for malformed expressions.
type SyntaxError struct {
	Expr   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Offset, e.Expr, e.Msg)
}

// EvalError is returned by Eval for unknown identifiers or functions, wrong
// arity and arithmetic failures.
type EvalError struct {
	Expr string
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating %q: %s", e.Expr, e.Msg)
}

// IsUnresolved returns true if err is or wraps an *UnresolvedError.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolved)
}

func evalErrorf(node Expr, format string, args ...any) *EvalError {
	return &EvalError{Expr: node.String(), Msg: fmt.Sprintf(format, args...)}
}

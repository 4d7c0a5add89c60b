package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution error codes (E200-E299). Structural codes live in validate.go.
const (
	ErrExpression      = "E201" // malformed or unevaluable time expression
	ErrNegativeWindow  = "E202" // resolved end precedes start
	ErrOpenPredecessor = "E203" // implicit start after an open-ended scene
	ErrUnresolvedRefs  = "E204" // fixed-point loop stalled
	ErrNoConvergence   = "E205" // pass limit exceeded
)

// CompileError is a fatal resolution error tied to one element.
type CompileError struct {
	Code    string
	Field   string // element path, e.g. composition/scene[intro]/cue[hello]@start
	Message string
	Expr    string // offending expression source, if any
	Err     error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Code, e.Field, e.Message)
	if e.Expr != "" {
		fmt.Fprintf(&b, " (in %q)", e.Expr)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }

// UnresolvedRefsError is returned when a full pass resolves nothing.
type UnresolvedRefsError struct {
	// Scenes lists the pending scene ids in document order.
	Scenes []string

	// Refs maps each pending scene to the reference that blocked it.
	Refs map[string]string

	// Cycle is a reference cycle among the pending scenes, if one exists.
	// It starts and ends with the same id.
	Cycle []string
}

func (e *UnresolvedRefsError) Error() string {
	msg := fmt.Sprintf("[%s] unresolved time references in scenes %s", ErrUnresolvedRefs, strings.Join(e.Scenes, ", "))
	if len(e.Cycle) > 0 {
		msg += fmt.Sprintf(" (cycle: %s)", strings.Join(e.Cycle, " -> "))
	}
	return msg
}

// ConvergenceError is returned when resolution needs more passes than the
// safety bound allows.
type ConvergenceError struct {
	Passes  int
	Pending []string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("[%s] composition did not converge after %d passes (pending: %s)",
		ErrNoConvergence, e.Passes, strings.Join(e.Pending, ", "))
}

// errorCode extracts the code of any compiler error, for metrics labels.
func errorCode(err error) string {
	var ce *CompileError
	var ue *UnresolvedRefsError
	var cv *ConvergenceError
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.As(err, &ue):
		return ErrUnresolvedRefs
	case errors.As(err, &cv):
		return ErrNoConvergence
	}
	return "unknown"
}

// IsUnresolvedRefsError returns true if err is or wraps *UnresolvedRefsError.
func IsUnresolvedRefsError(err error) bool {
	var ue *UnresolvedRefsError
	return errors.As(err, &ue)
}

// IsConvergenceError returns true if err is or wraps *ConvergenceError.
func IsConvergenceError(err error) bool {
	var ce *ConvergenceError
	return errors.As(err, &ce)
}

// IsDuplicateCueError returns true if err reports a duplicate cue id.
func IsDuplicateCueError(err error) bool {
	return hasCode(err, ErrDuplicateCueID)
}

// IsExpressionError returns true if err reports a bad time expression.
func IsExpressionError(err error) bool {
	return hasCode(err, ErrExpression) || hasCode(err, ErrBadExpression)
}

func hasCode(err error, code string) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

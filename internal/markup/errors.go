package markup

import (
	"errors"
	"fmt"
)

// PatchError reports a patch that could not be applied. The batch containing
// it is aborted and the live tree is left untouched.
type PatchError struct {
	// Code identifies the failure category.
	Code PatchErrorCode

	// Index is the position of the failing patch within its batch.
	Index int

	// Op and Target echo the failing patch.
	Op     Op
	Target string

	// Message is a human-readable description.
	Message string
}

// PatchErrorCode categorizes patch failures.
type PatchErrorCode string

const (
	// ErrCodeMissingTarget indicates no element carries the target id.
	ErrCodeMissingTarget PatchErrorCode = "MISSING_TARGET"

	// ErrCodeSealed indicates the target lies inside a sealed scene.
	ErrCodeSealed PatchErrorCode = "SEALED"

	// ErrCodeInvalidTarget indicates the op does not apply to the target
	// (removing the root, sealing a non-scene, index out of range).
	ErrCodeInvalidTarget PatchErrorCode = "INVALID_TARGET"

	// ErrCodeInvalidNode indicates the node payload is missing or unparsable.
	ErrCodeInvalidNode PatchErrorCode = "INVALID_NODE"

	// ErrCodeDuplicateID indicates the payload would introduce an id already
	// present in the document.
	ErrCodeDuplicateID PatchErrorCode = "DUPLICATE_ID"

	// ErrCodeUnknownOp indicates an unrecognized patch op.
	ErrCodeUnknownOp PatchErrorCode = "UNKNOWN_OP"
)

// Error implements the error interface.
func (e *PatchError) Error() string {
	return fmt.Sprintf("%s: patch %d (%s %q): %s", e.Code, e.Index, e.Op, e.Target, e.Message)
}

// IsSealedError returns true if err is a sealed-scene violation.
func IsSealedError(err error) bool {
	var pe *PatchError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeSealed
	}
	return false
}

// IsMissingTargetError returns true if err names an unknown target id.
func IsMissingTargetError(err error) bool {
	var pe *PatchError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMissingTarget
	}
	return false
}

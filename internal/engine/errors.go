package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while scheduling playback.
//
// Runtime errors include:
//   - Unknown group: a player attached to a group no timeline exists for
//   - Open duration: a bounded timeline was requested for a composition
//     whose final scene never ends
//   - Driver stopped: work was posted to a driver that has shut down
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Group identifies the affected synchronization group, if any.
	Group string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownGroup indicates no timeline is registered for a group.
	ErrCodeUnknownGroup RuntimeErrorCode = "UNKNOWN_GROUP"

	// ErrCodeOpenDuration indicates bounded playback of an open-ended
	// composition.
	ErrCodeOpenDuration RuntimeErrorCode = "OPEN_DURATION"

	// ErrCodeDriverStopped indicates the driver no longer accepts work.
	ErrCodeDriverStopped RuntimeErrorCode = "DRIVER_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("%s: %s (group=%s)", e.Code, e.Message, e.Group)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownGroupError returns true if err is an unknown-group error.
// Uses errors.As to handle wrapped errors.
func IsUnknownGroupError(err error) bool {
	return hasCode(err, ErrCodeUnknownGroup)
}

// IsOpenDurationError returns true if err reports bounded playback of an
// open-ended composition.
func IsOpenDurationError(err error) bool {
	return hasCode(err, ErrCodeOpenDuration)
}

// IsDriverStoppedError returns true if err reports a stopped driver.
func IsDriverStoppedError(err error) bool {
	return hasCode(err, ErrCodeDriverStopped)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewUnknownGroupError creates a RuntimeError for a missing timeline.
func NewUnknownGroupError(group string) *RuntimeError {
	msg := "no timeline registered for group"
	if group == "" {
		msg = "no default timeline registered"
	}
	return &RuntimeError{
		Code:    ErrCodeUnknownGroup,
		Message: msg,
		Group:   group,
	}
}

// NewOpenDurationError creates a RuntimeError for a composition that cannot
// play in bounded mode.
func NewOpenDurationError(composition string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeOpenDuration,
		Message: "composition has an open final scene and no duration; use live mode",
		Details: map[string]string{"composition": composition},
	}
}

// Package errors defines the error taxonomy of the planner engine.
//
// Every error returned by the service layer carries a [Kind]:
//
//   - [KindNotFound]: a referenced task, goal, plan or user is absent or tombstoned
//   - [KindPreconditionFailed]: a required parent record is missing
//   - [KindInvalidTransition]: the requested state change is not allowed now
//   - [KindBadInput]: malformed identifiers or values
//
// Callers classify errors with [KindOf] or match sentinels with [Is]:
//
//	if errors.Is(err, errors.ErrUndoWindowExpired) { ... }
//	if errors.KindOf(err) == errors.KindNotFound { ... }
//
// All kinds are recoverable; none should terminate the process.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers only import this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Kind classifies an engine error.
type Kind int

const (
	// KindInternal is any error not produced by the engine taxonomy
	// (store failures, driver errors).
	KindInternal Kind = iota
	KindNotFound
	KindPreconditionFailed
	KindInvalidTransition
	KindBadInput
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindBadInput:
		return "bad_input"
	default:
		return "internal"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrUndoWindowExpired indicates the tombstone is older than the undo window.
	ErrUndoWindowExpired = New("undo window expired")
	// ErrNotTombstoned indicates an undo was requested for a record that is not deleted.
	ErrNotTombstoned = New("no matching tombstone")
	// ErrPlanTerminal indicates a daily plan is already confirmed or skipped.
	ErrPlanTerminal = New("daily plan is already final")
	// ErrAlreadyCompleted indicates a task is completed already.
	ErrAlreadyCompleted = New("task already completed")
	// ErrUserMissing indicates no user record exists yet.
	ErrUserMissing = New("no user record")
	// ErrDependencyCycle indicates a dependency edit would introduce a cycle.
	ErrDependencyCycle = New("dependency cycle")
	// ErrInvalidDependency indicates a dependency that is not an active sibling task.
	ErrInvalidDependency = New("dependency must be an active sibling task")
	// ErrAlreadyConverted indicates an inbox item was already turned into a goal or task.
	ErrAlreadyConverted = New("inbox item already converted")
)

// Error is the engine error type.
type Error struct {
	Kind     Kind
	Resource string
	ID       string
	cause    error
}

// NotFound reports that resource id is absent or tombstoned.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: id}
}

// PreconditionFailed reports a missing parent record.
func PreconditionFailed(resource, id string, cause error) *Error {
	return &Error{Kind: KindPreconditionFailed, Resource: resource, ID: id, cause: cause}
}

// InvalidTransition reports a disallowed state change on resource id.
func InvalidTransition(resource, id string, cause error) *Error {
	return &Error{Kind: KindInvalidTransition, Resource: resource, ID: id, cause: cause}
}

// BadInput reports a malformed value for resource id.
func BadInput(resource, id string, cause error) *Error {
	return &Error{Kind: KindBadInput, Resource: resource, ID: id, cause: cause}
}

// WithCause attaches an underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNotFound:
		msg = fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	case KindPreconditionFailed:
		msg = fmt.Sprintf("precondition failed for %s '%s'", e.Resource, e.ID)
	case KindInvalidTransition:
		msg = fmt.Sprintf("invalid transition for %s '%s'", e.Resource, e.ID)
	case KindBadInput:
		msg = fmt.Sprintf("bad input for %s '%s'", e.Resource, e.ID)
	default:
		msg = fmt.Sprintf("%s '%s'", e.Resource, e.ID)
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so errors.Is(err, NotFound("", ""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsUserFacing reports whether err is safe to show to the user verbatim.
func IsUserFacing(err error) bool {
	return KindOf(err) != KindInternal
}

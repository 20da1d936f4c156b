package core

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers map these onto HTTP status families with
// errors.Is; everything unmatched is treated as unexpected and returned to
// the caller as an opaque failure.
var (
	// ErrAccessDenied is returned when the caller's role or ownership does
	// not permit the operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrAlreadyAssigned is returned when a report already has an assignee.
	// Deliberately non-idempotent: the current holder retrying also fails.
	ErrAlreadyAssigned = errors.New("report already assigned")

	// ErrChatClosed is returned when posting to a room whose report has
	// reached resolved or closed.
	ErrChatClosed = errors.New("chat is closed for this report")

	// ErrRequestReviewed is returned when approving or rejecting an admin
	// request that has already been reviewed. Review is terminal.
	ErrRequestReviewed = errors.New("admin request already reviewed")

	// ErrUnavailable indicates the durable backend is unreachable. Backend
	// selection is re-evaluated on the next request, never mid-request.
	ErrUnavailable = errors.New("storage backend unavailable")
)

// ValidationError carries a caller-recoverable input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is one of the business-rule conflicts the
// caller can act on.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyAssigned) ||
		errors.Is(err, ErrChatClosed) ||
		errors.Is(err, ErrRequestReviewed)
}

package engine

import (
	"errors"
	"fmt"
)

// RuleError is returned when a business rule rejects an operation.
//
// Rule errors are always recoverable: the store is left exactly as it was
// before the call.
type RuleError struct {
	// Code identifies the error category.
	Code RuleErrorCode

	// Message is a human-readable description.
	Message string

	// EntityID identifies the entity the rule was evaluated against.
	EntityID string

	// Err is the underlying cause, if any (e.g. the renderer failure).
	Err error
}

// RuleErrorCode categorizes rule errors.
type RuleErrorCode string

const (
	// ErrCodeNotFound indicates a referenced entity doesn't exist.
	ErrCodeNotFound RuleErrorCode = "NOT_FOUND"

	// ErrCodeNotDraft indicates an edit of an invoice that already left draft status.
	ErrCodeNotDraft RuleErrorCode = "NOT_DRAFT"

	// ErrCodeRenderFailed indicates the renderer returned an error or no payload.
	ErrCodeRenderFailed RuleErrorCode = "RENDER_FAILED"

	// ErrCodeAlreadyGranted indicates the consent was granted before.
	ErrCodeAlreadyGranted RuleErrorCode = "ALREADY_GRANTED"

	// ErrCodeInvalidState indicates a transition the entity's state doesn't allow.
	ErrCodeInvalidState RuleErrorCode = "INVALID_STATE"

	// ErrCodeMissingCoachee indicates an invoice or schedule without a coachee.
	ErrCodeMissingCoachee RuleErrorCode = "MISSING_COACHEE"
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntityID != "" {
		msg = fmt.Sprintf("%s (id=%s)", msg, e.EntityID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error { return e.Err }

func newRuleError(code RuleErrorCode, id, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Message: fmt.Sprintf(format, args...), EntityID: id}
}

// CodeOf returns the rule error code carried by err, or "" if err is not a RuleError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) RuleErrorCode {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNotFound returns true if the error is a missing-entity error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsNotDraft returns true if the error rejects an edit of a settled invoice.
func IsNotDraft(err error) bool { return CodeOf(err) == ErrCodeNotDraft }

// IsRenderFailed returns true if the error is a rendering failure.
func IsRenderFailed(err error) bool { return CodeOf(err) == ErrCodeRenderFailed }

// IsAlreadyGranted returns true if the consent was already granted.
func IsAlreadyGranted(err error) bool { return CodeOf(err) == ErrCodeAlreadyGranted }

// IsInvalidState returns true if the entity's state forbids the operation.
func IsInvalidState(err error) bool { return CodeOf(err) == ErrCodeInvalidState }

// IsMissingCoachee returns true if a coachee was required but not selected.
func IsMissingCoachee(err error) bool { return CodeOf(err) == ErrCodeMissingCoachee }

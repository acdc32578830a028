package common

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeInternal     Code = "internal"

	// Intake lifecycle codes. These are part of the API contract: callers
	// branch on them, never on message text.
	CodeSessionExpired        Code = "session_expired"
	CodeApplicationClosed     Code = "application_closed"
	CodeIncompleteApplication Code = "incomplete_application"
	CodeAlreadyActive         Code = "already_active_application"
	CodePositionInactive      Code = "position_inactive"
)

type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Missing []UUID            `json:"missing,omitempty"`
	cause   error
}

func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func NewValidationError(message string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// NewIncompleteError reports a blocked submission together with the ids of
// the required questions still missing an answer.
func NewIncompleteError(missing []UUID) *Error {
	return &Error{Code: CodeIncompleteApplication, Message: "application has unanswered required questions", Missing: missing}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func Is(err error, code Code) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code == code
	}
	return false
}

func CodeOf(err error) Code {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return CodeInternal
}

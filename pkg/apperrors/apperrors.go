// Package apperrors defines the closed taxonomy of recoverable errors the
// workflow engine returns across its service boundary. Stores and
// infrastructure wrap low-level failures with %w; services translate them into
// one of these codes so the transport layer can map them to HTTP statuses
// without inspecting error strings.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one failure mode of the taxonomy.
type Code string

const (
	// CodeNotFound: no matching principal, parameter, or notification.
	CodeNotFound Code = "not_found"
	// CodeDeactivated: the principal exists but is inactive. Reported
	// distinctly from CodeNotFound because it changes caller guidance.
	CodeDeactivated Code = "deactivated"
	// CodeExpired: the OTP is past its validity window.
	CodeExpired Code = "expired"
	// CodeInvalidCode: the submitted OTP does not match the stored one.
	CodeInvalidCode Code = "invalid_code"
	// CodeInvalidSession: unknown or stale session/token handle.
	CodeInvalidSession Code = "invalid_session"
	// CodeInvalidState: workflow operation attempted from an illegal state.
	CodeInvalidState Code = "invalid_state"
	// CodeMissingPendingValue: a parameter is pending but carries no
	// pending rate. Should not happen; reported rather than masked.
	CodeMissingPendingValue Code = "missing_pending_value"
	// CodeMissingContact: the principal has no deliverable address.
	CodeMissingContact Code = "missing_contact"
	// CodeUnauthorized: the acting principal's role does not permit the
	// operation, or a credential check failed.
	CodeUnauthorized Code = "unauthorized"
	// CodeBadRequest: malformed or out-of-range input.
	CodeBadRequest Code = "bad_request"
	// CodeInternal: unexpected infrastructure failure; the one class mapped
	// to a 5xx-equivalent response.
	CodeInternal Code = "internal"
)

// Error carries a taxonomy code and a human-readable message. The message is
// safe to show to an API caller; anything sensitive belongs in logs only.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a taxonomy error that preserves the underlying cause for logs
// and errors.Is/As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the taxonomy code from err. Anything that is not a taxonomy
// error, including nil, reports CodeInternal; callers check nil first.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// ToHTTPStatus maps a taxonomy code to the status the transport layer writes.
// Presentation only; the codes themselves are the contract.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDeactivated, CodeUnauthorized:
		return http.StatusForbidden
	case CodeExpired, CodeInvalidCode, CodeInvalidSession:
		return http.StatusUnauthorized
	case CodeInvalidState, CodeBadRequest, CodeMissingContact:
		return http.StatusBadRequest
	case CodeMissingPendingValue:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

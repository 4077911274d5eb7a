package models

import (
	"errors"
	"fmt"
)

// Error codes for the backend call taxonomy.
const (
	CodeNetwork     = "NETWORK_ERROR"    // no connectivity or timeout; caller may retry
	CodeAuthExpired = "AUTH_EXPIRED"     // session invalid; re-authenticate, never retry the call
	CodeConflict    = "CONFLICT"         // duplicate edge insert; treat as already applied
	CodeValidation  = "VALIDATION_ERROR" // rejected before dispatch
	CodeServer      = "SERVER_ERROR"     // unexpected backend status
)

// AppError is a custom application error carrying a stable code.
type AppError struct {
	Code    string
	Message string
	Status  int // HTTP status for SERVER_ERROR, zero otherwise
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:    CodeNetwork,
		Message: "network unavailable",
		Err:     err,
	}
}

func NewAuthExpiredError() *AppError {
	return &AppError{
		Code:    CodeAuthExpired,
		Message: "session expired; re-authentication required",
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewServerError(status int, err error) *AppError {
	return &AppError{
		Code:    CodeServer,
		Message: fmt.Sprintf("backend returned status %d", status),
		Status:  status,
		Err:     err,
	}
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsTransient reports whether err is a retry-safe network failure.
func IsTransient(err error) bool { return hasCode(err, CodeNetwork) }

// IsAuthExpired reports whether err means the session is no longer valid.
func IsAuthExpired(err error) bool { return hasCode(err, CodeAuthExpired) }

// IsConflict reports whether err is a duplicate-edge conflict.
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }

// IsValidation reports whether err was rejected before dispatch.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

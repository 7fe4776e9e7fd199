// Package apperr defines the error taxonomy surfaced to HTTP clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

// Error codes returned in the "code" field of error responses.
const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   Code = "NOT_AUTHENTICATED"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// statusByCode maps error codes to HTTP status codes.
var statusByCode = map[Code]int{
	CodeValidation:         http.StatusBadRequest,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeNotAuthenticated:   http.StatusUnauthorized,
	CodeUserNotFound:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeStorageUnavailable: http.StatusServiceUnavailable,
	CodeInternal:           http.StatusInternalServerError,
}

// Error is an application error carrying a code, a client-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status for the error code.
func (e *Error) Status() int {
	return StatusFor(e.Code)
}

// StatusFor returns the HTTP status for a code, 500 for unknown codes.
func StatusFor(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error around a cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation reports malformed or missing client input.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// InvalidCredentials is returned for both unknown users and wrong passwords.
func InvalidCredentials() *Error {
	return New(CodeInvalidCredentials, "Invalid username or password")
}

// NotAuthenticated reports a missing, invalid or expired session.
func NotAuthenticated() *Error {
	return New(CodeNotAuthenticated, "Not authenticated")
}

// UserNotFound reports a session whose user no longer exists.
func UserNotFound() *Error {
	return New(CodeUserNotFound, "User not found")
}

// Forbidden reports a caller without the admin role.
func Forbidden() *Error {
	return New(CodeForbidden, "Admin access required")
}

// NotFound reports a missing resource.
func NotFound(what string) *Error {
	return New(CodeNotFound, what+" not found")
}

// RateLimited reports too many attempts.
func RateLimited() *Error {
	return New(CodeRateLimited, "Too many attempts, please try again later")
}

// StorageUnavailable reports that neither the primary nor the fallback storage could serve the request.
func StorageUnavailable(cause error) *Error {
	return Wrap(CodeStorageUnavailable, "Storage service temporarily unavailable", cause)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	return Wrap(CodeInternal, "Internal server error", cause)
}

// From converts any error to an *Error, classifying unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

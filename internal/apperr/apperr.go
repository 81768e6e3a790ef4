// Package apperr defines the typed errors the analysis core reports to callers.
// Every error carries a stable machine-readable code and a message safe to show
// to users; the underlying cause is kept for logging only.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code.
type Code string

const (
	CodeProviderKeyMissing  Code = "provider_key_missing"
	CodeProviderRateLimited Code = "provider_rate_limited"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeProviderTimeout     Code = "provider_timeout"
	CodeProviderError       Code = "provider_error"
	CodeValidation          Code = "validation_error"
	CodeStorage             Code = "storage_error"
	CodeNotFound            Code = "not_found"
)

var statusByCode = map[Code]int{
	CodeProviderKeyMissing:  http.StatusServiceUnavailable,
	CodeProviderRateLimited: http.StatusTooManyRequests,
	CodeProviderUnavailable: http.StatusServiceUnavailable,
	CodeProviderTimeout:     http.StatusGatewayTimeout,
	CodeProviderError:       http.StatusBadGateway,
	CodeValidation:          http.StatusBadRequest,
	CodeStorage:             http.StatusInternalServerError,
	CodeNotFound:            http.StatusNotFound,
}

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is/As and to loggers.
func (e *Error) Unwrap() error {
	return e.cause
}

// Status is the HTTP status a route layer should answer with.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the caller may retry the same request later.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeProviderRateLimited, CodeProviderUnavailable, CodeProviderTimeout:
		return true
	}
	return false
}

// New returns an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap classifies cause under code with a user-facing message.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Validationf returns a ValidationError.
func Validationf(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// Storage wraps a repository failure.
func Storage(cause error, message string) *Error {
	return Wrap(cause, CodeStorage, message)
}

// NotFoundf returns a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return New(CodeNotFound, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsSystemic reports whether err points at a process-wide problem (no key, no
// network, provider timing out) rather than one bad request. Batch operations
// stop at the first systemic error.
func IsSystemic(err error) bool {
	switch CodeOf(err) {
	case CodeProviderKeyMissing, CodeProviderTimeout, CodeProviderUnavailable:
		return true
	}
	return false
}

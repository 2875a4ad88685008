package errors

import (
	"errors"
	"net/http"
)

// Error is an API failure: a stable machine code, the HTTP status it maps to and a message
// safe to show to clients. Err keeps the underlying cause for logs.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches by code, so a Clone or WithCause of a sentinel still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// WithCause returns a copy of e carrying cause and, when non-empty, message.
func (e *Error) WithCause(cause error, message string) *Error {
	out := Clone(e, message)
	out.Err = cause
	return out
}

// New declares a sentinel.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Leave ledger failures.
	ErrInvalidStatus       = New("INVALID_STATUS", http.StatusBadRequest, "invalid leave status")
	ErrNoBalanceConfigured = New("NO_BALANCE_CONFIGURED", http.StatusConflict, "no leave balance configured")
	ErrInsufficientBalance = New("INSUFFICIENT_BALANCE", http.StatusConflict, "insufficient leave balance")
	ErrStorageFailure      = New("STORAGE_FAILURE", http.StatusInternalServerError, "storage failure")
)

// FromError finds the *Error in err's chain. Anything untyped becomes ErrInternal wrapping err.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return ErrInternal.WithCause(err, "")
}

// Clone copies a sentinel, replacing its message when message is non-empty.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	out := *err
	if message != "" {
		out.Message = message
	}
	return &out
}

// Storage reports a persistence failure.
func Storage(err error, message string) *Error {
	return ErrStorageFailure.WithCause(err, message)
}

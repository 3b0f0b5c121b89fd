// Package errors provides the coded error taxonomy shared by the song service
// and its HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error is a structured application error.
type Error struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	Err        error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so that errors.Is(err, ErrSongNotFound) holds for copies
// produced by WithDetails/WithError.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details interface{}) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithError returns a copy of e wrapping err.
func (e *Error) WithError(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithMessage returns a copy of e with a different human readable message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// New creates an Error.
func New(code, message string, httpStatus int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps err with a code, message and status.
func Wrap(err error, code, message string, httpStatus int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

const (
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeSongNotFound     = "SONG_NOT_FOUND"
	ErrCodeOriginForbidden  = "ORIGIN_FORBIDDEN"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
)

var (
	ErrInternal         = New(ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	ErrInvalidRequest   = New(ErrCodeInvalidRequest, "Invalid request body", http.StatusBadRequest)
	ErrValidationFailed = New(ErrCodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrSongNotFound     = New(ErrCodeSongNotFound, "Song not found", http.StatusNotFound)
	ErrOriginForbidden  = New(ErrCodeOriginForbidden, "Forbidden: Origin not allowed for write operations.", http.StatusForbidden)
	ErrStoreUnavailable = New(ErrCodeStoreUnavailable, "Record store unavailable", http.StatusInternalServerError)
	ErrTooManyRequests  = New(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests)
)

// StoreFailure wraps a record store error as ErrStoreUnavailable. Errors that
// are already coded pass through untouched.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return err
	}
	return ErrStoreUnavailable.WithError(err)
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsError reports whether err carries the same code as target.
func IsError(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	appErr, ok := As(err)
	return ok && appErr.Code == target.Code
}

// GetHTTPStatus returns the HTTP status for err, 500 for uncoded errors.
func GetHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetCode returns the error code for err, INTERNAL_ERROR for uncoded errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Package apperr defines the typed error taxonomy shared by all domain
// services. Every error carries a kind (mapped to an HTTP status by the web
// layer) and a message-catalog code resolved to a localized text, so services
// never hardcode user-facing strings.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a domain error.
type Kind int

// Error kinds, ordered roughly by HTTP status.
const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// Error is a typed domain error with a message-catalog code.
type Error struct {
	Kind Kind
	// Code is the message-catalog key for this error.
	Code string
	// Missing lists missing permission names for authorization failures.
	Missing []string

	cause error
}

// Error implements the error interface, returning the English catalog text.
func (e *Error) Error() string {
	msg := Message(e.Code, "en")
	if len(e.Missing) > 0 {
		msg += ": " + strings.Join(e.Missing, ", ")
	}

	return msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates a typed error from a kind and catalog code.
func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

// Wrap creates a typed error preserving the underlying cause.
// Used at the service boundary to convert unexpected persistence failures
// into BadRequest with a generic message, keeping the detail server-side.
func Wrap(err error, kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code, cause: err}
}

// NotFound creates a 404-kind error.
func NotFound(code string) *Error { return New(KindNotFound, code) }

// Conflict creates a 409-kind error.
func Conflict(code string) *Error { return New(KindConflict, code) }

// BadRequest creates a 400-kind error.
func BadRequest(code string) *Error { return New(KindBadRequest, code) }

// Unauthorized creates a 401-kind error.
func Unauthorized(code string) *Error { return New(KindUnauthorized, code) }

// Forbidden creates a 403-kind error.
func Forbidden(code string) *Error { return New(KindForbidden, code) }

// MissingPermissions creates a 403-kind error naming the missing permissions.
func MissingPermissions(missing []string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeMissingPermissions, Missing: missing}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, 0 otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

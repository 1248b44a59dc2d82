// Package apperr defines the error kinds shared across the CRM core and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindQuotaExceeded
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to clients;
// Err carries the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Set for KindQuotaExceeded
	Current int64
	Max     int64
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error {
	return newError(KindValidation, msg, nil)
}

func Authentication(msg string) *Error {
	return newError(KindAuthentication, msg, nil)
}

func Forbidden(msg string) *Error {
	return newError(KindAuthorization, msg, nil)
}

func NotFound(msg string) *Error {
	return newError(KindNotFound, msg, nil)
}

func Conflict(msg string, err error) *Error {
	return newError(KindConflict, msg, err)
}

// Upstream wraps a persistence or identity provider failure. The cause is
// kept for logs; clients only see a generic message.
func Upstream(err error) *Error {
	return newError(KindUpstream, "An error occurred", err)
}

// QuotaExceeded reports that a tenant reached its ceiling for a resource.
func QuotaExceeded(msg string, current, max int64) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: msg, Current: current, Max: max}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind onto a status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization, KindQuotaExceeded:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

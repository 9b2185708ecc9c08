// Package apperr defines the error-kind taxonomy shared across the service
// and the HTTP status mapping for it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independent of its message, matching the
// taxonomy the HTTP layer, correlation engine, and session supervisor all
// reason about.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindLimitExceeded      Kind = "limit_exceeded"
	KindUnauthorized       Kind = "unauthorized"
	KindSessionDisconnected Kind = "session_disconnected"
	KindStorageFailure     Kind = "storage_failure"
	KindInternal           Kind = "internal"
)

// E is the concrete error type carried across package boundaries. It wraps
// an optional underlying cause so callers can still errors.Is/As through it.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.Err }

// New builds an *E of the given kind.
func New(kind Kind, message string) *E {
	return &E{Kind: kind, Message: message}
}

// Wrap builds an *E of the given kind around an existing error.
func Wrap(kind Kind, message string, err error) *E {
	return &E{Kind: kind, Message: message, Err: err}
}

// Validation, NotFound, Conflict, LimitExceeded, Unauthorized,
// SessionDisconnected, StorageFailure, Internal are convenience
// constructors for each kind.
func Validation(format string, a ...any) *E {
	return New(KindValidation, fmt.Sprintf(format, a...))
}

func NotFound(format string, a ...any) *E {
	return New(KindNotFound, fmt.Sprintf(format, a...))
}

func Conflict(format string, a ...any) *E {
	return New(KindConflict, fmt.Sprintf(format, a...))
}

func LimitExceeded(format string, a ...any) *E {
	return New(KindLimitExceeded, fmt.Sprintf(format, a...))
}

func Unauthorized(format string, a ...any) *E {
	return New(KindUnauthorized, fmt.Sprintf(format, a...))
}

func SessionDisconnected(format string, a ...any) *E {
	return New(KindSessionDisconnected, fmt.Sprintf(format, a...))
}

func StorageFailure(err error) *E {
	return Wrap(KindStorageFailure, "storage failure", err)
}

func Internal(err error) *E {
	return Wrap(KindInternal, "internal error", err)
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err is
// not an *E.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code the control plane returns.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindLimitExceeded:
		return http.StatusTooManyRequests
	case KindSessionDisconnected:
		return http.StatusServiceUnavailable
	case KindStorageFailure, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

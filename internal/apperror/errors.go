package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindUpstream        Kind = "upstream"
	KindInternal        Kind = "internal"
)

// Predefined errors
var (
	ErrUnauthenticated    = New(KindUnauthenticated, "authentication required")
	ErrForbidden          = New(KindForbidden, "access denied")
	ErrInvalidCredentials = New(KindUnauthenticated, "invalid email or password")
	ErrSelfAction         = New(KindForbidden, "you cannot perform this action on your own account")
	ErrInternal           = New(KindInternal, "internal server error")
)

// AppError is the error type returned by services and repositories
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by kind and message so predefined errors work with errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New creates a new AppError
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap wraps an underlying error
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return New(KindForbidden, message)
}

func Validation(message string) *AppError {
	return New(KindValidation, message)
}

func NotFound(resource string) *AppError {
	return New(KindNotFound, resource+" not found")
}

func Conflict(message string) *AppError {
	return New(KindConflict, message)
}

// Upstream marks a failure of the backing store
func Upstream(err error, op string) *AppError {
	return Wrap(err, KindUpstream, op)
}

func Internal(err error) *AppError {
	return Wrap(err, KindInternal, "internal server error")
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps an error to its HTTP status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to expose to API clients.
// Upstream and internal details never leave the process.
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	switch appErr.Kind {
	case KindUpstream, KindInternal:
		return "internal server error"
	}
	return appErr.Message
}

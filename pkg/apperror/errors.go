package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrServer            = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError carries a stable error kind plus the entity it concerns and a
// human readable message. errors.Is(err, ErrNotFound) etc. work through Unwrap.
type AppError struct {
	Kind    error
	Entity  string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Entity != "" {
		msg = e.Entity + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newKind(kind error, entity, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity, format string, args ...any) *AppError {
	return newKind(ErrNotFound, entity, format, args...)
}

func AlreadyExists(entity, format string, args ...any) *AppError {
	return newKind(ErrAlreadyExists, entity, format, args...)
}

func NotAuthorized(entity, format string, args ...any) *AppError {
	return newKind(ErrNotAuthorized, entity, format, args...)
}

func InvalidArgument(entity, format string, args ...any) *AppError {
	return newKind(ErrInvalidArgument, entity, format, args...)
}

// InvalidCause reports err as an invalid argument and keeps it in the chain.
func InvalidCause(entity string, err error) *AppError {
	return &AppError{Kind: ErrInvalidArgument, Entity: entity, Err: err}
}

func Unauthorized(entity, format string, args ...any) *AppError {
	return newKind(ErrUnauthorized, entity, format, args...)
}

func Server(entity, format string, args ...any) *AppError {
	return newKind(ErrServer, entity, format, args...)
}

// IsTyped reports whether err already carries one of the kinds above.
func IsTyped(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return true
	}
	for _, kind := range []error{ErrNotFound, ErrAlreadyExists, ErrNotAuthorized, ErrInvalidArgument, ErrServer, ErrUnauthorized, ErrRateLimitExceeded} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Wrap leaves typed errors untouched and turns anything else (driver errors,
// mapping failures) into a ServerError so store details never leak out.
func Wrap(entity string, err error) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return &AppError{Kind: ErrServer, Entity: entity, Message: "unexpected persistence failure", Err: err}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrAlreadyExists) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrNotAuthorized) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidArgument) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// PublicMessage hides wrapped causes of server errors from API callers.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if errors.Is(appErr.Kind, ErrServer) {
			return ErrServer.Error()
		}
		return appErr.Error()
	}
	if MapErrorToStatus(err) == http.StatusInternalServerError {
		return ErrServer.Error()
	}
	return err.Error()
}

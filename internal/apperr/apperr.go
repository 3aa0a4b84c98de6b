// Package apperr defines the error kinds shared by the service layers and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation error")
	ErrInvalidVideoLink   = errors.New("invalid YouTube link")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrTooLarge           = errors.New("file too large")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUser      = errors.New("user already exists")
)

// Error carries a client-facing message for one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// New returns an error of the given kind with a client-facing message.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Status maps an error onto the HTTP status the API reports for it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidVideoLink),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrTooLarge),
		errors.Is(err, ErrDuplicateUser):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a client. Unexpected errors are
// reduced to a generic message.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}

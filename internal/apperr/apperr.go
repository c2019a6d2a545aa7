// Package apperr defines the error taxonomy shared by the engine and the
// HTTP handler surface: a small set of kinds, each with a fixed HTTP status
// and a machine-readable code, so handlers never have to guess how to map
// an error to a response.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind is one of the eight error categories the service ever returns.
type Kind string

const (
	Unauthorized Kind = "unauthorized"
	Forbidden    Kind = "forbidden"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	BadRequest   Kind = "bad_request"
	InvalidGrant Kind = "invalid_grant"
	Database     Kind = "database"
	Internal     Kind = "internal"
)

var statusByKind = map[Kind]int{
	Unauthorized: http.StatusUnauthorized,
	Forbidden:    http.StatusForbidden,
	NotFound:     http.StatusNotFound,
	Conflict:     http.StatusConflict,
	BadRequest:   http.StatusBadRequest,
	InvalidGrant: http.StatusBadRequest,
	Database:     http.StatusInternalServerError,
	Internal:     http.StatusInternalServerError,
}

// Error is the typed error every engine and handler boundary deals in.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int { return statusByKind[e.Kind] }

// New builds an Error with a human-readable message.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds a Database/Internal-kind error that carries full detail for
// logging while keeping the message surfaced to the client opaque.
func Wrap(kind Kind, code string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: "an internal error occurred", cause: cause}
}

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

var (
	ErrUnauthorized     = New(Unauthorized, "unauthorized", "Authentication required.")
	ErrInvalidToken     = New(Unauthorized, "invalid_token", "The access token is invalid or expired.")
	ErrUserDisabled     = New(Unauthorized, "user_disabled", "This account has been disabled.")
	ErrAppDisabled      = New(Unauthorized, "invalid_client", "This application has been disabled.")
	ErrForbidden        = New(Forbidden, "forbidden", "You do not have permission to perform this action.")
	ErrNotAdmin         = New(Forbidden, "forbidden", "Administrator role required.")
	ErrInvalidGrant     = New(InvalidGrant, "invalid_grant", "The grant is invalid, expired, or already used.")
	ErrInvalidScope     = New(BadRequest, "invalid_scope", "One or more requested scopes are not permitted for this client.")
	ErrInvalidClient    = New(Unauthorized, "invalid_client", "Client authentication failed.")
	ErrCannotUnlinkLast = New(Conflict, "cannot_unlink_last_account", "Cannot unlink the only remaining account.")
)

// Package apperr defines the failures the auth core can report and how they
// map to HTTP statuses
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateEmail
	KindAuthentication
	KindAuthMismatch
	KindInvalidToken
	KindNotFound
	KindConflictingOAuthLink
	KindDeliveryFailure
	KindCooldown
	KindUnknownProvider
)

// Error is a classified failure. Two errors match under errors.Is when their
// kinds are equal, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation           = &Error{Kind: KindValidation, Message: "Provided data is invalid"}
	ErrDuplicateEmail       = &Error{Kind: KindDuplicateEmail, Message: "This email is already registered. Please login or use a different email"}
	ErrAuthentication       = &Error{Kind: KindAuthentication, Message: "Invalid credentials"}
	ErrAuthMismatch         = &Error{Kind: KindAuthMismatch, Message: "You can only modify your own account"}
	ErrInvalidToken         = &Error{Kind: KindInvalidToken, Message: "Session token could not be verified. Please log in again"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "Code is invalid, expired or was used already"}
	ErrConflictingOAuthLink = &Error{Kind: KindConflictingOAuthLink, Message: "Account already connected to a different profile from this provider"}
	ErrDeliveryFailure      = &Error{Kind: KindDeliveryFailure, Message: "Failed to send the verification email. Please try again later"}
	ErrCooldown             = &Error{Kind: KindCooldown, Message: "Please wait before requesting another verification email"}
	ErrUnknownProvider      = &Error{Kind: KindUnknownProvider, Message: "Unknown OAuth provider"}
)

// New returns an error of kind k with a custom message
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Validation wraps a user-correctable input error
func Validation(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

// Wrap attaches cause to the sentinel s while keeping its kind and message
func Wrap(s *Error, cause error) *Error {
	return &Error{Kind: s.Kind, Message: s.Message, Err: cause}
}

// KindOf returns the kind of err or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// StatusCode maps err to the HTTP status it should be answered with
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateEmail, KindConflictingOAuthLink:
		return http.StatusConflict
	case KindAuthentication, KindInvalidToken:
		return http.StatusUnauthorized
	case KindAuthMismatch:
		return http.StatusForbidden
	case KindNotFound, KindUnknownProvider:
		return http.StatusNotFound
	case KindCooldown:
		return http.StatusTooManyRequests
	case KindDeliveryFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns what can be shown to a client for err. Unclassified errors
// never leak their text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}

	return "Internal server error"
}

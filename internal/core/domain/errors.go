package domain

import "errors"

// ErrorKind classifies domain errors for callers that need to decide how to
// surface them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindAuth
	KindNotFound
	KindToken
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindToken:
		return "token"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a classified domain error. Sentinels below are compared by
// identity, so errors.Is works through any amount of wrapping.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validation errors.
var (
	ErrUsernameRequired      = newError(KindValidation, "Username is required")
	ErrEmailRequired         = newError(KindValidation, "Email is required")
	ErrInvalidEmailFormat    = newError(KindValidation, "Invalid email format")
	ErrInvalidPasswordFormat = newError(KindValidation, "Password must be at least 8 characters long and contain at least one letter and one number")
)

// Conflict errors.
var (
	ErrUsernameTaken = newError(KindConflict, "Username already exists")
	ErrEmailTaken    = newError(KindConflict, "Email is already in use")

	// ErrStaleUser is returned when the user changed between read and write.
	ErrStaleUser = newError(KindConflict, "User was modified by another request, retry")
)

var ErrInvalidCredentials = newError(KindAuth, "Invalid username or password")

var ErrUserNotFound = newError(KindNotFound, "User not found")

// Token errors.
var (
	ErrTokenExpired   = newError(KindToken, "token expired")
	ErrTokenMalformed = newError(KindToken, "invalid token")
)

// ErrStore marks persistence failures. It is always wrapped together with
// the underlying cause, which must never reach a client.
var ErrStore = newError(KindStore, "store failure")

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

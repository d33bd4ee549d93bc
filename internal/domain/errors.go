package domain

import "errors"

// Kind classifies failures of the mutation entry points and the live view.
type Kind int

const (
	// KindUnknown is never produced by this package; it is the zero value.
	KindUnknown Kind = iota
	// KindUnauthenticated means no valid session backs the call.
	KindUnauthenticated
	// KindInvalidInput means create fields are missing or malformed.
	KindInvalidInput
	// KindStoreFailure covers every backend read/write error.
	KindStoreFailure
	// KindFeedDisconnect is non-fatal and never shown to the user.
	KindFeedDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidInput:
		return "invalid_input"
	case KindStoreFailure:
		return "store_failure"
	case KindFeedDisconnect:
		return "feed_disconnect"
	default:
		return "unknown"
	}
}

// Error carries a user-safe message plus the internal cause.
// Error() only ever returns Message, so it can be shown to the caller as-is;
// the cause is reachable through Unwrap for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so callers can write
// errors.Is(err, domain.ErrInvalidInput) regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "Not authenticated"}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput, Message: "Invalid input"}
	ErrStoreFailure    = &Error{Kind: KindStoreFailure, Message: "Store failure"}
	ErrFeedDisconnect  = &Error{Kind: KindFeedDisconnect, Message: "Live updates disconnected"}
)

// NewError builds an *Error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns a message safe to show to the user.
// Anything that is not an *Error collapses to fallback.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

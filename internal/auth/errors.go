package auth

import "errors"

// Domain-specific errors for auth operations.
var (
	// ErrSuperseded is returned when the session changed while a login or
	// current-user call was in flight; the response was discarded.
	ErrSuperseded = errors.New("auth: session changed during call")

	// ErrIncompleteLogin is returned when the backend accepted the login
	// but did not return both a token and a user.
	ErrIncompleteLogin = errors.New("auth: login response missing token or user")

	// ErrTokenUnreadable is returned by InspectToken for values that are
	// not a JWT.
	ErrTokenUnreadable = errors.New("auth: token is not a readable JWT")
)

package session

import "errors"

// Domain-specific errors for session operations.
var (
	// ErrHalfSession is returned when a session with only a token or only
	// a user is stored.
	ErrHalfSession = errors.New("session: token and user must be set together")

	// ErrStaleEpoch is returned when a conditional mutation carries an
	// epoch that is no longer current.
	ErrStaleEpoch = errors.New("session: stale epoch")

	// ErrNotAuthenticated is returned when a user update targets an empty
	// session.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrCorruptSlot is returned by persisters when the stored value
	// cannot be decoded.
	ErrCorruptSlot = errors.New("session: corrupt persisted slot")
)

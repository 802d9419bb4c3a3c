// Package session owns the console's authenticated identity: a bearer
// token and the user it belongs to.
//
// The Store keeps the pair in memory and mirrors it into a persisted slot
// (SQLite, a JSON file, or memory) with a fixed expiry window. Token and
// user are always written together; a half-populated session cannot be
// stored.
//
// # Epochs
//
// Every mutation bumps a monotonic epoch. Asynchronous work reads the
// epoch together with the token and hands it back when it wants to mutate
// the session (SetIfEpoch, UpdateUserIfEpoch, Invalidate). A mismatch
// means the session was replaced or cleared in the meantime and the
// mutation is dropped, so a slow response can never resurrect a session
// that was logged out.
//
// # Bootstrap
//
// Restore loads the persisted slot once at startup. Missing, corrupt or
// expired slots yield an empty session; Restore never fails. The token is
// not validated here: the first authenticated call that comes back
// Unauthorized clears it.
package session

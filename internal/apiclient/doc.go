// Package apiclient is the authenticated request gateway for the building
// automation backend.
//
// It turns typed calls into HTTP requests, attaches the session's bearer
// token, enforces a per-call timeout and reduces every failure to one
// Kind from a closed taxonomy:
//
//	Timeout, NetworkUnreachable, CrossOriginBlocked,
//	Unauthorized, Forbidden, NotFound, ServerFault, BadRequest, Unknown
//
// Classification is done by Classify over a RawFailure, which is built at
// the HTTP boundary (FailureFromError, FailureFromResponse) so the
// classifier itself stays pure.
//
// # Session handling
//
// The gateway reads the token through a SessionSource. When an
// authenticated call comes back Unauthorized the gateway asks the source to
// invalidate the epoch the token was read under; only if that succeeds is
// the OnUnauthorized callback fired with the originating UI path (see
// WithOrigin). A stale epoch never clears a newer session.
//
// # Errors
//
// Every failure is returned as *Error. Callers match kinds with errors.Is
// against the Err* sentinels or with KindOf:
//
//	user, err := users.Me(ctx)
//	if errors.Is(err, apiclient.ErrNetworkUnreachable) {
//	    // offer a retry
//	}
//
// No call is retried by the gateway.
package apiclient

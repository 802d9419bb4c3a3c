// Package auth drives the console's login lifecycle against the backend.
//
// Gateway is the only writer of the session besides the request gateway's
// Unauthorized path:
//
//	Anonymous --Login--> Authenticated
//	Anonymous --Bootstrap (persisted slot)--> Authenticated
//	Authenticated --Logout / any Unauthorized--> Anonymous
//
// Every mutation is epoch-guarded, so a login or "me" response that
// arrives after a logout is dropped instead of resurrecting the session.
//
// The package also carries the backend's three-tier role model
// (viewer < operator < admin) as a static permission table, the user
// management client, and unverified JWT introspection used only to show
// token age.
package auth

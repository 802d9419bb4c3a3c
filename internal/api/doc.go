// Package api implements the local console HTTP and WebSocket server.
//
// This package provides:
//   - Session endpoints (login, logout, current user, capability flags)
//   - A route guard that consumes only IsAuthenticated and IsAdmin
//   - A Modbus proxy over the typed gateway
//   - WebSocket hub for session and Modbus sample broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, metrics)
//
// # Architecture
//
// The server sits between the browser UI and the building-automation
// backend. It never talks to the backend directly: every call goes through
// the auth, modbus and device gateways, which share one session store.
// Classified gateway failures are mapped onto HTTP statuses so the UI can
// tell "retry" from "log in again" from "contact an admin".
//
// # Graceful Degradation
//
// The Modbus, device and user gateways are optional. Routes whose gateway
// is missing answer 503 rather than failing at startup.
package api

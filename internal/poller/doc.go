// Package poller samples configured Modbus points in the background and
// fans each reading out to sinks (MQTT, InfluxDB, WebSocket clients).
//
// One cycle reads every point concurrently through the Modbus gateway,
// bounded by the configured concurrency. Cycles only run while a session
// is authenticated, unless the gateway runs anonymously. An Unauthorized
// failure ends the cycle early: the gateway has already invalidated the
// session, so every remaining read would fail the same way.
//
// Thread Safety:
//   - Run must be called once. Cycle may be called directly in tests.
package poller

// Package session owns one open board connection.
//
// Ownership boundary:
// - read loop: bytes -> frames -> messages -> routing
// - serialized command writes
// - request correlation (pending table, busy/timeout/disconnect failures)
// - reconnect backoff and timeout defaults
//
// A Session is created per successful device open and is never reused; the
// reconnecting supervisor lives in internal/dgt.
package session

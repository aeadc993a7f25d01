// Package dgt keeps a DGT board connected and exposes it as events and
// queries.
//
// AutoConnect returns a Connection whose supervisor goroutine walks
// Idle -> Connecting -> Connected -> Disconnected -> Connecting until Close.
// That goroutine is the only event emitter. Queries run on the caller's
// goroutine against the live session and fail fast with ErrNotConnected
// while no board is attached.
package dgt

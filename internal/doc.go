// Package internal contains helpers that are intentionally private to goSession:
// random session identifiers and token fingerprints.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink)
//   - logging: log/slog constructors
//   - rate: fixed-window login throttle
//   - server: demo HTTP server wiring used by cmd/sessiond
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal

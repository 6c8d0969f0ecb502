// Package session provides session backends for the goSession interceptor:
// an in-process [MemoryStore], a Redis-backed [RedisStore], a stateless
// signed-token [TokenStore] and a Postgres [SQLStore].
//
// Every store satisfies goSession.Store structurally: Create, Verify and
// Delete with a projection from the login input to the user data. User data
// is kept encoded through a [Codec] (JSON by default), so each Verify decodes
// an independently owned value.
//
// # Error model
//
// Unknown, expired or revoked identifiers are not errors: Verify reports
// them as (zero, false, nil). Driver failures are wrapped with
// [ErrBackendUnavailable]; records that fail to decode with [ErrCorruptRecord].
// Context cancellation is returned as is.
//
// # What this package must NOT do
//
//   - Import goSession (no upward imports).
//   - Interpret user data beyond encoding it.
//   - Make authorization decisions.
package session

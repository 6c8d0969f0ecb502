// Package goSession verifies the session attached to each inbound HTTP request
// and records the result for downstream handlers.
//
// The interceptor built by [Builder.Build] reads a session token from a cookie
// (or a header), asks a pluggable [Store] whether it resolves to user data, and
// attaches an [Outcome] to the request context before calling the next
// handler. Outcomes are one of HaveSession, NoSession or NoCookie. The
// interceptor never rejects a request and never writes a response: handlers
// read the outcome with [OutcomeFromContext] and decide what it means for them.
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config], [Store] and
// the outcome types. Backends live in the session sub-package, framework
// adapters in middleware, and metric exporters under metrics/export. Audit
// dispatch and logging helpers live under internal/ and are never exported.
//
// # Failure policy
//
// A store that cannot answer is folded into NoSession. The cause is kept on
// [Outcome.Err], counted, logged with a token fingerprint and audited, so a
// backend outage degrades every request to unauthenticated instead of failing
// it.
//
// # Concurrency
//
// Engine methods are safe to call from multiple goroutines after Build. The
// engine holds no lock across Store.Verify; stores own their synchronization.
package goSession

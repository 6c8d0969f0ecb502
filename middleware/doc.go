// Package middleware adapts the goSession interceptor to web frameworks that
// do not use plain net/http middleware.
//
//   - [Gin] runs Engine.Resolve inside a gin chain and stores the outcome.
//   - [GinOutcome] reads it back in a gin handler.
//
// Plain net/http and chi users need nothing from here: Engine.Middleware is a
// standard func(http.Handler) http.Handler.
//
// # What this package must NOT do
//
//   - Abort a chain or write a response based on the outcome.
//   - Call a session store directly (the Engine does).
package middleware

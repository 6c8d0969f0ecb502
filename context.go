package goSession

import "context"

// outcomeContextKey is parameterized by the user data type so that engines
// resolving different user types never collide on the same request.
type outcomeContextKey[U any] struct{}

// WithOutcome attaches o to ctx. If ctx already carries an outcome for U, the
// existing one is kept and ctx is returned unchanged.
func WithOutcome[U any](ctx context.Context, o Outcome[U]) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := OutcomeFromContext[U](ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, outcomeContextKey[U]{}, o)
}

// OutcomeFromContext returns the outcome the interceptor attached for U.
func OutcomeFromContext[U any](ctx context.Context) (Outcome[U], bool) {
	if ctx == nil {
		return Outcome[U]{}, false
	}
	o, ok := ctx.Value(outcomeContextKey[U]{}).(Outcome[U])
	return o, ok
}

package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Middleware returns the session interceptor as a standard net/http
// middleware. The same engine can wrap any number of handlers.
func (e *Engine[In, U]) Middleware() func(http.Handler) http.Handler {
	return e.Handler
}

// Handler wraps next with the session interceptor.
//
// Every request is classified, the Outcome is attached to the request
// context, and next is called exactly once. The interceptor never writes to
// the response and never rejects a request; authorization stays with next.
func (e *Engine[In, U]) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := OutcomeFromContext[U](r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		outcome := e.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithOutcome(r.Context(), outcome)))
	})
}

// Resolve classifies r without attaching anything to it. Framework adapters
// use it to run the interceptor inside their own handler chain.
func (e *Engine[In, U]) Resolve(r *http.Request) Outcome[U] {
	if e == nil || e.store == nil || e.extract == nil {
		return SessionMissing[U](ErrEngineNotReady)
	}

	token, ok := e.extract(r)
	if !ok {
		e.metricInc(MetricOutcomeNoCookie)
		return CookieMissing[U]()
	}

	return e.verify(r.Context(), token, r.RemoteAddr)
}

// VerifyToken classifies a token obtained outside an HTTP request, for
// example from a websocket handshake message. An empty token is NoCookie.
func (e *Engine[In, U]) VerifyToken(ctx context.Context, token string) Outcome[U] {
	if e == nil || e.store == nil {
		return SessionMissing[U](ErrEngineNotReady)
	}
	if token == "" {
		e.metricInc(MetricOutcomeNoCookie)
		return CookieMissing[U]()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return e.verify(ctx, token, "")
}

// RequestToken returns the session token r presents through the configured
// carrier. Logout handlers use it to find the session to delete.
func (e *Engine[In, U]) RequestToken(r *http.Request) (string, bool) {
	if e == nil || e.extract == nil || r == nil {
		return "", false
	}
	return e.extract(r)
}

func (e *Engine[In, U]) verify(ctx context.Context, token, remoteAddr string) Outcome[U] {
	start := time.Now()
	user, found, err := e.callVerify(ctx, token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	var outcome Outcome[U]
	switch {
	case err != nil:
		ref := e.fingerprint(token)
		e.metricInc(MetricVerifyError)
		if errors.Is(err, context.Canceled) {
			e.logger.Debug("session verify canceled", "session_ref", ref)
		} else {
			e.logger.Warn("session verify failed, treating request as unauthenticated", "session_ref", ref, "err", err)
		}
		e.emitAudit(ctx, AuditEvent{
			EventType:  auditEventVerifyFailed,
			SessionRef: ref,
			RemoteAddr: remoteAddr,
			Success:    false,
			Error:      err.Error(),
		})
		outcome = SessionMissing[U](err)
	case !found:
		outcome = SessionMissing[U](nil)
	default:
		outcome = SessionFound(user)
	}

	e.metricInc(outcomeMetric(outcome.State()))
	return outcome
}

// callVerify shields the request from a panicking backend; the panic is
// reported as a verify error like any other backend failure.
func (e *Engine[In, U]) callVerify(ctx context.Context, token string) (user U, found bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero U
			user, found, err = zero, false, fmt.Errorf("session store verify panicked: %v", p)
		}
	}()
	return e.store.Verify(ctx, token)
}

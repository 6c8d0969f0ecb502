package goSession

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
)

// Engine binds a session store to the request interceptor and to the session
// lifecycle helpers used by login and logout handlers.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine[In, U any] struct {
	config      Config
	store       Store[In, U]
	logger      *slog.Logger
	metrics     *Metrics
	audit       *audit.Dispatcher[AuditEvent]
	extract     tokenExtractor
	fingerprint func(string) string
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine[In, U]) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Close describes the close operation and its observable behavior.
//
// Close drains queued audit events into the sink and stops the dispatcher. The
// store is owned by the caller and is not closed. Close is idempotent.
func (e *Engine[In, U]) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped returns the number of audit events discarded because the buffer was full.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine[In, U]) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine[In, U]) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine[In, U]) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine[In, U]) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e.audit.Emit(ctx, event)
}

// CreateSession stores in through the backend and returns the new session
// identifier. The caller decides how to deliver the identifier, usually with
// SessionCookie.
//
// Backend failures are returned as *StoreError with Op "create".
func (e *Engine[In, U]) CreateSession(ctx context.Context, in In) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id, err := e.store.Create(ctx, in)
	if err != nil {
		e.metricInc(MetricSessionCreateFailed)
		e.logger.Error("session create failed", "err", err)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventSessionCreateFailed,
			Success:   false,
			Error:     err.Error(),
		})
		return "", &StoreError{Op: "create", Err: err}
	}

	ref := e.fingerprint(id)
	e.metricInc(MetricSessionCreated)
	e.logger.Debug("session created", "session_ref", ref)
	e.emitAudit(ctx, AuditEvent{
		EventType:  auditEventSessionCreated,
		SessionRef: ref,
		Success:    true,
	})

	return id, nil
}

// DeleteSession removes sessionID from the backend. Deleting an identifier the
// backend does not know is not an error.
//
// Backend failures are returned as *StoreError with Op "delete".
func (e *Engine[In, U]) DeleteSession(ctx context.Context, sessionID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ref := e.fingerprint(sessionID)
	if err := e.store.Delete(ctx, sessionID); err != nil {
		e.metricInc(MetricSessionDeleteFailed)
		e.logger.Error("session delete failed", "session_ref", ref, "err", err)
		e.emitAudit(ctx, AuditEvent{
			EventType:  auditEventSessionDeleteFailed,
			SessionRef: ref,
			Success:    false,
			Error:      err.Error(),
		})
		return &StoreError{Op: "delete", Err: err}
	}

	e.metricInc(MetricSessionDeleted)
	e.logger.Debug("session deleted", "session_ref", ref)
	e.emitAudit(ctx, AuditEvent{
		EventType:  auditEventSessionDeleted,
		SessionRef: ref,
		Success:    true,
	})

	return nil
}

// IsStoreError reports whether err was produced by a session backend failure.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

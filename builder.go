package goSession

import (
	"log/slog"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/logging"
)

// Builder assembles an Engine from a store and configuration.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder[In, U any] struct {
	config Config
	store  Store[In, U]

	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New starts a Builder around store with DefaultConfig.
//
// New performs no I/O. The store handle is shared, not copied, by the Engine
// and every request it intercepts.
func New[In, U any](store Store[In, U]) *Builder[In, U] {
	return &Builder[In, U]{
		config: defaultConfig(),
		store:  store,
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder[In, U]) WithConfig(cfg Config) *Builder[In, U] {
	b.config = cloneConfig(cfg)
	return b
}

// WithCookieName describes the withcookiename operation and its observable behavior.
//
// WithCookieName selects the cookie carrier and names the cookie that holds the session token.
// WithCookieName does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder[In, U]) WithCookieName(name string) *Builder[In, U] {
	b.config.Carrier = CarrierConfig{Kind: CarrierCookie, Name: name}
	return b
}

// WithHeader describes the withheader operation and its observable behavior.
//
// WithHeader selects the header carrier; a "Bearer " prefix on the header value is stripped.
// WithHeader does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder[In, U]) WithHeader(name string) *Builder[In, U] {
	b.config.Carrier = CarrierConfig{Kind: CarrierHeader, Name: name}
	return b
}

// WithLogger sets the logger used for store failures and lifecycle events.
// The default discards everything.
func (b *Builder[In, U]) WithLogger(logger *slog.Logger) *Builder[In, U] {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink. Events are only dispatched when
// Config.Audit.Enabled is true.
func (b *Builder[In, U]) WithAuditSink(sink AuditSink) *Builder[In, U] {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled toggles the in-process outcome and lifecycle counters.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder[In, U]) WithMetricsEnabled(enabled bool) *Builder[In, U] {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms toggles the Verify latency histogram; it has no effect unless metrics are enabled.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder[In, U]) WithLatencyHistograms(enabled bool) *Builder[In, U] {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. A Builder can
// be built once.
func (b *Builder[In, U]) Build() (*Engine[In, U], error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	if b.store == nil {
		return nil, ErrStoreRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var sink audit.Sink[AuditEvent]
	if b.auditSink != nil {
		sink = b.auditSink
	}

	engine := &Engine[In, U]{
		config:      cfg,
		store:       b.store,
		logger:      logger,
		metrics:     NewMetrics(cfg.Metrics),
		extract:     newExtractor(cfg.Carrier),
		fingerprint: internal.Fingerprint,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true

	return engine, nil
}

package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// BucketKey is the attribute that carries the histogram upper bound.
const BucketKey = attribute.Key("le")

// MetricsSource is satisfied by every *goSession.Engine.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// Option configures an Exporter.
type Option func(*exporterOptions)

type exporterOptions struct {
	attrs []attribute.KeyValue
}

// WithAttributes adds constant attributes to every observation, for example
// the store kind or a service instance id.
func WithAttributes(kv ...attribute.KeyValue) Option {
	return func(o *exporterOptions) {
		o.attrs = append(o.attrs, kv...)
	}
}

type counterBinding struct {
	id  goSession.MetricID
	obs metric.Int64ObservableCounter
}

type histogramBinding struct {
	id      goSession.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
}

// Exporter mirrors engine metrics into OpenTelemetry observable
// instruments. Each histogram becomes a "_bucket" gauge with one cumulative
// series per upper bound, keyed by BucketKey, plus "_count" and "_sum" gauges.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	counters     []counterBinding
	histograms   []histogramBinding
	auditDropped metric.Int64ObservableCounter

	base      metric.MeasurementOption
	perBucket []metric.MeasurementOption
}

// New registers observable instruments on meter that read from engine on
// every collection.
func New[In, U any](meter metric.Meter, engine *goSession.Engine[In, U], opts ...Option) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, engine, opts...)
}

// NewFromSource is New for anything that reports a metrics snapshot.
func NewFromSource(meter metric.Meter, source MetricsSource, opts ...Option) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var o exporterOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := &Exporter{
		source: source,
		base:   metric.WithAttributeSet(attribute.NewSet(o.attrs...)),
	}
	for _, le := range internaldefs.HistogramBoundLabels {
		kv := append(append([]attribute.KeyValue(nil), o.attrs...), BucketKey.String(le))
		e.perBucket = append(e.perBucket, metric.WithAttributeSet(attribute.NewSet(kv...)))
	}

	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterBinding{id: def.ID, obs: c})
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s buckets: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s count: %w", def.Name, err)
		}
		sum, err := meter.Float64ObservableGauge(def.Name+"_sum",
			metric.WithDescription(def.Help+" Total observed time."),
			metric.WithUnit("s"),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s sum: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, histogramBinding{id: def.ID, buckets: buckets, count: count, sum: sum})
		observables = append(observables, buckets, count, sum)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.obs, int64(snap.Counters[c.id]), e.base)
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), e.perBucket[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]), e.base)
		o.ObserveFloat64(h.sum, snap.HistogramSums[h.id].Seconds(), e.base)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()), e.base)
	return nil
}

// Close unregisters the callback. The instruments stay on the meter but
// report nothing further.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

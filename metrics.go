package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricOutcomeHaveSession counts requests classified HaveSession.
	MetricOutcomeHaveSession MetricID = iota
	// MetricOutcomeNoSession counts requests classified NoSession, including store failures.
	MetricOutcomeNoSession
	// MetricOutcomeNoCookie counts requests that presented no token.
	MetricOutcomeNoCookie
	// MetricVerifyError counts Verify calls that failed and were folded into NoSession.
	MetricVerifyError
	// MetricSessionCreated counts successful CreateSession calls.
	MetricSessionCreated
	// MetricSessionCreateFailed counts CreateSession calls rejected by the store.
	MetricSessionCreateFailed
	// MetricSessionDeleted counts successful DeleteSession calls.
	MetricSessionDeleted
	// MetricSessionDeleteFailed counts DeleteSession calls rejected by the store.
	MetricSessionDeleteFailed
	// MetricVerifyLatency is the Verify latency histogram.
	MetricVerifyLatency
	metricIDCount
)

// verifyBucketBounds are the inclusive upper bounds of the first seven
// latency buckets; the eighth takes everything slower.
var verifyBucketBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(verifyBucketBounds) + 1

// paddedCounter keeps each hot counter on its own cache line.
type paddedCounter struct {
	atomic.Uint64
	_ [56]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sumNs   atomic.Int64
}

// Metrics is a fixed set of lock-free counters plus the verify latency
// histogram. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	verify        latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms holds
// non-cumulative bucket counts and HistogramSums the total observed time.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id. It is a no-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricVerifyLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in the histogram id. Only MetricVerifyLatency has buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricVerifyLatency {
		return
	}
	m.verify.buckets[bucketIndex(d)].Add(1)
	m.verify.sumNs.Add(int64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricVerifyLatency {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.verify.buckets[i].Load()
		}
		s.Histograms[MetricVerifyLatency] = buckets
		s.HistogramSums[MetricVerifyLatency] = time.Duration(m.verify.sumNs.Load())
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range verifyBucketBounds {
		if d <= bound {
			return i
		}
	}
	return len(verifyBucketBounds)
}

func outcomeMetric(s State) MetricID {
	switch s {
	case HaveSession:
		return MetricOutcomeHaveSession
	case NoCookie:
		return MetricOutcomeNoCookie
	default:
		return MetricOutcomeNoSession
	}
}

package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricOutcomeHaveSession, Name: "gosession_outcome_have_session_total", Help: "Requests that presented a token resolving to a session."},
	{ID: goSession.MetricOutcomeNoSession, Name: "gosession_outcome_no_session_total", Help: "Requests that presented a token that did not resolve, including store failures."},
	{ID: goSession.MetricOutcomeNoCookie, Name: "gosession_outcome_no_cookie_total", Help: "Requests that presented no session token."},
	{ID: goSession.MetricVerifyError, Name: "gosession_verify_error_total", Help: "Store Verify failures folded into NoSession."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Created sessions."},
	{ID: goSession.MetricSessionCreateFailed, Name: "gosession_session_create_failed_total", Help: "Session creations rejected by the store."},
	{ID: goSession.MetricSessionDeleted, Name: "gosession_session_deleted_total", Help: "Deleted sessions."},
	{ID: goSession.MetricSessionDeleteFailed, Name: "gosession_session_delete_failed_total", Help: "Session deletions rejected by the store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricVerifyLatency, Name: "gosession_verify_latency_seconds", Help: "Store Verify latency histogram."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure counter.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the finite upper bounds, in seconds, of the engine's
// latency buckets. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels are the "le" values of the eight buckets, in the
// format Prometheus uses for bucket bounds.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets copies raw into a fixed eight-slot array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// Package otel mirrors goSession engine metrics into OpenTelemetry.
//
// [New] registers one Int64ObservableCounter per engine counter and, for the
// verify latency histogram, a "_bucket" gauge whose series are split by the
// "le" attribute plus a "_count" gauge. A single callback reads the engine's
// MetricsSnapshot on each collection cycle; the engine itself is never
// modified and the caller owns the MeterProvider.
package otel

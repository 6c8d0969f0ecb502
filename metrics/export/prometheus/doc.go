// Package prometheus exposes goSession engine metrics through
// github.com/prometheus/client_golang: a [Collector] for existing registries
// and an [Exporter] with its own registry and promhttp handler.
package prometheus

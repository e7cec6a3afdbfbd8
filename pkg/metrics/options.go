package metrics

import (
	"maps"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager. Every option maps to a key of the metrics
// block in the gridcast config; zero values keep the default.
type Option func(*Manager)

// WithNamespace replaces the "gridcast" namespace (metrics.namespace).
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the "timeline" subsystem (metrics.subsystem).
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithMetricPrefix inserts prefix between the subsystem and each metric name
// (metrics.prefix).
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.metricPrefix = prefix
		}
	}
}

// WithCustomLabels attaches constant labels to every series (metrics.labels).
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.customLabels = maps.Clone(labels)
		}
	}
}

// WithHistogramBuckets sets the buckets of the latency and pause histograms
// (metrics.buckets). Buckets must be strictly increasing.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = slices.Clone(buckets)
		}
	}
}

// WithMetricsEnabled turns every recorder into a no-op when false
// (metrics.enabled).
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets how often the serve loop samples runtime gauges
// (metrics.refresh_seconds).
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithPrometheusRegistry registers the metrics on registry instead of the
// process default. A *prometheus.Registry also backs GetRegistry.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry == nil {
			return
		}
		m.registry = registry
		if g, ok := registry.(*prometheus.Registry); ok {
			m.gatherer = g
		}
	}
}

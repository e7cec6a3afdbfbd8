// Package metrics provides Prometheus metrics for the gridcast timeline engine.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer
	gatherer         *prometheus.Registry

	// Ingestion
	eventsLoaded   *prometheus.CounterVec
	recordsSkipped *prometheus.CounterVec
	loadLatency    *prometheus.HistogramVec
	timelineSize   prometheus.Gauge

	// Load queue
	loadQueueSize     prometheus.Gauge
	loadQueueCapacity prometheus.Gauge
	loadJobsDone      prometheus.Counter
	loadJobErrors     prometheus.Counter

	// Windowing
	windowsEmitted prometheus.Counter
	windowsEmpty   prometheus.Counter
	windowEvents   prometheus.Histogram

	// Replay
	replayEmitted     *prometheus.CounterVec
	replayPause       prometheus.Histogram
	cursorAdvances    prometheus.Counter
	cursorReported    prometheus.Histogram
	activeSessions    prometheus.Gauge
	sessionsCreated   prometheus.Counter
	sessionsExhausted prometheus.Counter

	// Narration
	narrationLatency prometheus.Histogram
	narrationErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// active is the manager the package-level recorders write to.
var active atomic.Pointer[Manager] //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry, so Go runtime collectors stay out of the exposition. Call it
// before /metrics is served; series recorded earlier are dropped.
func Configure(opts ...Option) *Manager {
	m := NewManager(append([]Option{WithPrometheusRegistry(prometheus.NewRegistry())}, opts...)...)
	active.Store(m)
	return m
}

// RefreshInterval returns how often runtime gauges should be sampled.
func RefreshInterval() time.Duration {
	return active.Load().refreshInterval
}

// Enabled reports whether the global manager records anything.
func Enabled() bool {
	return active.Load().enabled
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gridcast",
		subsystem:        "timeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name joins the optional prefix with a metric name.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.eventsLoaded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("events_loaded_total"),
		Help: "Events normalized from source files, by category",
	}, []string{"category"})

	m.recordsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("records_skipped_total"),
		Help: "Raw records dropped during loading, by category and reason",
	}, []string{"category", "reason"})

	m.loadLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("load_latency_milliseconds"),
		Help:    "Time spent reading and normalizing one source file",
		Buckets: m.histogramBuckets,
	}, []string{"category"})

	m.timelineSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("size"),
		Help: "Number of events in the merged timeline",
	})

	m.loadQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("load_queue_size"),
		Help: "Source load jobs waiting for a worker",
	})

	m.loadQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("load_queue_capacity"),
		Help: "Capacity of the source load queue",
	})

	m.loadJobsDone = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("load_jobs_total"),
		Help: "Source load jobs completed by the worker pool",
	})

	m.loadJobErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("load_job_errors_total"),
		Help: "Source load jobs that failed",
	})

	m.windowsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("windows_emitted_total"),
		Help: "Windows produced by the bucketer",
	})

	m.windowsEmpty = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("windows_empty_total"),
		Help: "Windows produced without any event",
	})

	m.windowEvents = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("window_events"),
		Help:    "Events per emitted window",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.replayEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("replay_emitted_total"),
		Help: "Events emitted by the replay scheduler, by category",
	}, []string{"category"})

	m.replayPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("replay_pause_seconds"),
		Help:    "Wall-clock pauses taken between replay emissions",
		Buckets: m.histogramBuckets,
	})

	m.cursorAdvances = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("cursor_advances_total"),
		Help: "Advance calls made on catch-up cursors",
	})

	m.cursorReported = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("cursor_reported_events"),
		Help:    "Events reported by a single advance call",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("replay_sessions_active"),
		Help: "Open catch-up replay sessions",
	})

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("replay_sessions_created_total"),
		Help: "Catch-up replay sessions opened",
	})

	m.sessionsExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("replay_sessions_exhausted_total"),
		Help: "Catch-up replay sessions that reached the end of the timeline",
	})

	m.narrationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("narration_latency_milliseconds"),
		Help:    "Latency of one narration collaborator call",
		Buckets: m.histogramBuckets,
	})

	m.narrationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("narration_errors_total"),
		Help: "Narration collaborator calls that failed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_component_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_usage_bytes"),
		Help: "Heap bytes allocated by the process",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutines"),
		Help: "Number of running goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("system_gc_pause_milliseconds"),
		Help:    "Average GC pause in milliseconds",
		Buckets: m.histogramBuckets,
	})
}

// Ingestion.

func RecordEventsLoaded(category string, n int) {
	if m := active.Load(); m.enabled {
		m.eventsLoaded.WithLabelValues(category).Add(float64(n))
	}
}

func RecordRecordSkipped(category, reason string) {
	if m := active.Load(); m.enabled {
		m.recordsSkipped.WithLabelValues(category, reason).Inc()
	}
}

func RecordLoadLatency(category string, latencyMs float64) {
	if m := active.Load(); m.enabled {
		m.loadLatency.WithLabelValues(category).Observe(latencyMs)
	}
}

func UpdateTimelineSize(size int) {
	if m := active.Load(); m.enabled {
		m.timelineSize.Set(float64(size))
	}
}

// Load queue.

func UpdateLoadQueueSize(size int) {
	if m := active.Load(); m.enabled {
		m.loadQueueSize.Set(float64(size))
	}
}

func UpdateLoadQueueCapacity(capacity int) {
	if m := active.Load(); m.enabled {
		m.loadQueueCapacity.Set(float64(capacity))
	}
}

func RecordLoadJobDone() {
	if m := active.Load(); m.enabled {
		m.loadJobsDone.Inc()
	}
}

func RecordLoadJobError() {
	if m := active.Load(); m.enabled {
		m.loadJobErrors.Inc()
	}
}

// Windowing.

func RecordWindowEmitted(events int) {
	m := active.Load()
	if !m.enabled {
		return
	}
	m.windowsEmitted.Inc()
	if events == 0 {
		m.windowsEmpty.Inc()
		return
	}
	m.windowEvents.Observe(float64(events))
}

// Replay.

func RecordReplayEmission(category string) {
	if m := active.Load(); m.enabled {
		m.replayEmitted.WithLabelValues(category).Inc()
	}
}

func RecordReplayPause(d time.Duration) {
	if m := active.Load(); m.enabled {
		m.replayPause.Observe(d.Seconds())
	}
}

func RecordCursorAdvance(reported int) {
	m := active.Load()
	if !m.enabled {
		return
	}
	m.cursorAdvances.Inc()
	m.cursorReported.Observe(float64(reported))
}

func UpdateActiveSessions(count int) {
	if m := active.Load(); m.enabled {
		m.activeSessions.Set(float64(count))
	}
}

func RecordSessionCreated() {
	if m := active.Load(); m.enabled {
		m.sessionsCreated.Inc()
	}
}

func RecordSessionExhausted() {
	if m := active.Load(); m.enabled {
		m.sessionsExhausted.Inc()
	}
}

// Narration.

func RecordNarrationLatency(latencyMs float64) {
	if m := active.Load(); m.enabled {
		m.narrationLatency.Observe(latencyMs)
	}
}

func RecordNarrationError() {
	if m := active.Load(); m.enabled {
		m.narrationErrors.Inc()
	}
}

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := active.Load(); m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := active.Load(); m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// Errors.

func RecordErrorByComponent(component, errorType string) {
	if m := active.Load(); m.enabled {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// System.

func UpdateSystemMemoryUsage(bytes uint64) {
	if m := active.Load(); m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

func UpdateSystemGoroutineCount(count int) {
	if m := active.Load(); m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

func RecordSystemGCPauseTime(pauseMs float64) {
	if m := active.Load(); m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return active.Load().gatherer
}

// Package metrics provides Prometheus metrics for the statline service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Sessions
	sessionsCreated prometheus.Counter
	sessionsDeleted prometheus.Counter
	sessionsEvicted prometheus.Counter
	sessionsActive  prometheus.Gauge

	// Assignment engine
	moves           *prometheus.CounterVec
	initializations prometheus.Counter
	resets          prometheus.Counter
	epochsCompleted prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Change queue
	queueCapacity      prometheus.Gauge
	queueSize          prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Live state stream
	streamSubscribers prometheus.Gauge
	streamDropped     prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "statline",
		subsystem:        "assignment",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.sessionsCreated = m.counter("sessions_created_total", "Total number of assignment sessions created")
	m.sessionsDeleted = m.counter("sessions_deleted_total", "Total number of assignment sessions deleted by clients")
	m.sessionsEvicted = m.counter("sessions_evicted_total", "Total number of sessions evicted to respect max_sessions")
	m.sessionsActive = m.gauge("sessions_active", "Current number of live sessions")

	m.moves = m.counterVec("moves_total", "Move requests by outcome (applied or rejection reason)", "outcome")
	m.initializations = m.counter("initializations_total", "Total number of applied Initialize calls")
	m.resets = m.counter("resets_total", "Total number of resets")
	m.epochsCompleted = m.counter("epochs_completed_total", "Total number of epochs in which every slot was filled")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "Histogram of HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type")

	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the change queue")
	m.queueSize = m.gauge("queue_size", "Current number of queued change events")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Total number of change events enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Total number of change events dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Change events dropped at enqueue by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Number of change feed workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time spent recording one change event")
	m.workerErrors = m.counter("worker_errors_total", "Total number of change events the workers failed to record")

	m.streamSubscribers = m.gauge("stream_subscribers", "Current number of live state stream subscribers")
	m.streamDropped = m.counter("stream_dropped_total", "State snapshots replaced before a slow subscriber read them")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds")
}

func on() bool { return globalManager != nil && globalManager.enabled }

// Sessions.

func RecordSessionCreated() {
	if on() {
		globalManager.sessionsCreated.Inc()
	}
}

func RecordSessionDeleted() {
	if on() {
		globalManager.sessionsDeleted.Inc()
	}
}

func RecordSessionEvicted() {
	if on() {
		globalManager.sessionsEvicted.Inc()
	}
}

func UpdateActiveSessions(count int) {
	if on() {
		globalManager.sessionsActive.Set(float64(count))
	}
}

// Assignment engine.

// RecordMove counts a move request by its outcome name.
func RecordMove(outcome string) {
	if on() {
		globalManager.moves.WithLabelValues(outcome).Inc()
	}
}

func RecordInitialize() {
	if on() {
		globalManager.initializations.Inc()
	}
}

func RecordReset() {
	if on() {
		globalManager.resets.Inc()
	}
}

func RecordEpochCompleted() {
	if on() {
		globalManager.epochsCompleted.Inc()
	}
}

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if on() {
		globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// Change queue.

func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueued.Inc()
	}
}

func RecordQueueDequeue() {
	if on() {
		globalManager.queueDequeued.Inc()
	}
}

func RecordQueueEnqueueError(reason string) {
	if on() {
		globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
	}
}

// Workers.

func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

func RecordWorkerProcessingLatency(latencyMs float64) {
	if on() {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

func RecordWorkerError() {
	if on() {
		globalManager.workerErrors.Inc()
	}
}

// Live state stream.

func UpdateStreamSubscribers(count int) {
	if on() {
		globalManager.streamSubscribers.Set(float64(count))
	}
}

func RecordStreamDropped() {
	if on() {
		globalManager.streamDropped.Inc()
	}
}

// System.

func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

func RecordSystemGCPauseTime(pauseMs float64) {
	if on() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry the global manager reports to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

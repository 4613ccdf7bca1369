// Package metrics provides Prometheus metrics for the podium leaderboard service.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultBuckets are latency buckets in milliseconds.
var defaultBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine
	submissions       *prometheus.CounterVec
	submitLatency     prometheus.Histogram
	recomputeLatency  prometheus.Histogram
	recomputeSize     prometheus.Histogram
	leaderboardsTotal prometheus.Gauge
	resets            *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Event queue and publishers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueDropped            prometheus.Counter
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	eventsPublished         *prometheus.CounterVec

	// Scheduler
	scheduledJobs prometheus.Gauge

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // metrics must exist before any package records
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the process-wide collectors on a fresh registry.
// Call it at startup before anything records.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := append(append([]Option{}, opts...), WithPrometheusRegistry(registry))
	globalManager = NewManager(all...)
	customRegistry = registry
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "leaderboard",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(m.counterOpts("submissions_total",
		"Score submissions by outcome (created, improved, kept, duplicate, rejected)"), []string{"outcome"})
	m.submitLatency = auto.NewHistogram(m.histogramOpts("submit_latency_milliseconds",
		"End-to-end submission latency including the rank recompute", m.histogramBuckets))
	m.recomputeLatency = auto.NewHistogram(m.histogramOpts("recompute_latency_milliseconds",
		"Rank recompute latency", m.histogramBuckets))
	m.recomputeSize = auto.NewHistogram(m.histogramOpts("recompute_entries",
		"Number of entries ranked per recompute", prometheus.ExponentialBuckets(1, 4, 10)))
	m.leaderboardsTotal = auto.NewGauge(m.gaugeOpts("leaderboards",
		"Number of leaderboards known to the service"))
	m.resets = auto.NewCounterVec(m.counterOpts("resets_total",
		"Leaderboard resets by trigger (api, schedule)"), []string{"trigger"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Store operation latency by backend and operation", m.histogramBuckets), []string{"backend", "operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by route, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration", m.histogramBuckets), []string{"endpoint", "method", "status_code"})
	m.rateLimited = auto.NewCounterVec(m.counterOpts("rate_limited_total",
		"Requests rejected by the rate limiter"), []string{"endpoint"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("event_queue_size", "Events waiting to be published"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("event_queue_capacity", "Event queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("event_queue_enqueued_total", "Events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("event_queue_dequeued_total", "Events dequeued"))
	m.queueDropped = auto.NewCounter(m.counterOpts("event_queue_dropped_total", "Events dropped because the queue was full"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("publisher_workers", "Configured publisher workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("publisher_workers_active", "Publisher workers currently publishing"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("publish_latency_milliseconds",
		"Time to publish one event", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("publish_errors_total", "Events that failed to publish"))
	m.eventsPublished = auto.NewCounterVec(m.counterOpts("events_published_total",
		"Events published by kind"), []string{"kind"})

	m.scheduledJobs = auto.NewGauge(m.gaugeOpts("scheduled_reset_jobs", "Reset jobs currently scheduled"))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordSubmission counts a submission by outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordSubmitLatency records how long a submission took.
func RecordSubmitLatency(d time.Duration) {
	globalManager.submitLatency.Observe(ms(d))
}

// RecordRecompute records one rank recompute.
func RecordRecompute(d time.Duration, entries int) {
	globalManager.recomputeLatency.Observe(ms(d))
	globalManager.recomputeSize.Observe(float64(entries))
}

// UpdateLeaderboardsTotal sets the leaderboard gauge.
func UpdateLeaderboardsTotal(n int) {
	globalManager.leaderboardsTotal.Set(float64(n))
}

// RecordReset counts a reset by trigger.
func RecordReset(trigger string) {
	globalManager.resets.WithLabelValues(trigger).Inc()
}

// RecordStoreLatency records one store call.
func RecordStoreLatency(backend, op string, d time.Duration) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(ms(d))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, d time.Duration) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms(d))
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueDrop increments the dropped-event counter.
func RecordQueueDrop() {
	globalManager.queueDropped.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records the time spent publishing one event.
func RecordWorkerProcessingLatency(d time.Duration) {
	globalManager.workerProcessingLatency.Observe(ms(d))
}

// RecordWorkerError increments the publish error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordEventPublished counts a published event by kind.
func RecordEventPublished(kind string) {
	globalManager.eventsPublished.WithLabelValues(kind).Inc()
}

// UpdateScheduledJobs sets the number of scheduled reset jobs.
func UpdateScheduledJobs(n int) {
	globalManager.scheduledJobs.Set(float64(n))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMetrics samples memory and goroutine counts.
func UpdateSystemMetrics() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	globalManager.systemMemoryUsage.Set(float64(mem.HeapAlloc))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the registry served at the metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

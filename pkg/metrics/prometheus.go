// Package metrics provides Prometheus metrics for the artype scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service records to.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	scoresTotal    *prometheus.CounterVec
	scoringErrors  *prometheus.CounterVec
	scoringLatency prometheus.Histogram
	typeCodes      *prometheus.CounterVec
	confidence     *prometheus.CounterVec

	// Milestones and notifications
	milestonesReached      *prometheus.CounterVec
	guestMutations         *prometheus.CounterVec
	notificationsDuplicate prometheus.Counter
	notificationsDropped   prometheus.Counter
	notificationsDelivered *prometheus.CounterVec

	// Guest repository
	guestRecordsTotal       prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Notification queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Notifiers
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors on the configured
// registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "artype",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	fastBuckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25}

	m.scoresTotal = auto.NewCounterVec(m.counter("scores_total", "Quiz submissions scored, by variant"), []string{"variant"})
	m.scoringErrors = auto.NewCounterVec(m.counter("scoring_errors_total", "Rejected quiz submissions, by reason"), []string{"reason"})
	m.scoringLatency = auto.NewHistogram(m.histogram("scoring_latency_milliseconds", "Time to score one submission", fastBuckets))
	m.typeCodes = auto.NewCounterVec(m.counter("type_codes_total", "Resolved type codes, by variant"), []string{"variant", "type_code"})
	m.confidence = auto.NewCounterVec(m.counter("confidence_total", "Result confidence levels, by variant"), []string{"variant", "level"})

	m.milestonesReached = auto.NewCounterVec(m.counter("milestones_reached_total", "Milestone flags newly set"), []string{"milestone"})
	m.guestMutations = auto.NewCounterVec(m.counter("guest_mutations_total", "Guest record mutations, by operation"), []string{"operation"})
	m.notificationsDuplicate = auto.NewCounter(m.counter("notifications_duplicate_total", "Notifications suppressed because the key was already emitted"))
	m.notificationsDropped = auto.NewCounter(m.counter("notifications_dropped_total", "Notifications that could not be queued"))
	m.notificationsDelivered = auto.NewCounterVec(m.counter("notifications_delivered_total", "Notifications handed to a subscriber"), []string{"subscriber"})

	m.guestRecordsTotal = auto.NewGauge(m.gauge("guest_records_total", "Guest records currently stored"))
	m.repositoryUpdateLatency = auto.NewHistogram(m.histogram("repository_update_latency_milliseconds", "Guest record write latency", nil))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogram("repository_query_latency_milliseconds", "Guest record read latency", nil))

	m.queueSize = auto.NewGauge(m.gauge("notification_queue_size", "Notifications waiting for delivery"))
	m.queueCapacity = auto.NewGauge(m.gauge("notification_queue_capacity", "Notification queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gauge("notification_queue_utilization_ratio", "Notification queue size divided by capacity"))
	m.queueEnqueueRate = auto.NewCounter(m.counter("notification_queue_enqueue_total", "Notifications enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counter("notification_queue_dequeue_total", "Notifications dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("notification_queue_enqueue_errors_total", "Failed enqueue attempts"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogram("notification_queue_latency_milliseconds", "Enqueue latency", fastBuckets))

	m.workerActiveCount = auto.NewGauge(m.gauge("notifier_active_count", "Running notifier goroutines"))
	m.workerMessagesPerSecond = auto.NewGauge(m.gauge("notifier_messages_per_second", "Notifications dispatched per second"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("notifier_latency_milliseconds", "Time to fan one notification out to subscribers", fastBuckets))
	m.workerErrors = auto.NewCounter(m.counter("notifier_errors_total", "Subscriber failures"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration", nil), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total", "HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_milliseconds", "Most recent GC pause", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}))
}

// RecordScore counts a scored submission and its outcome.
func RecordScore(variant, typeCode, confidence string) {
	globalManager.scoresTotal.WithLabelValues(variant).Inc()
	globalManager.typeCodes.WithLabelValues(variant, typeCode).Inc()
	globalManager.confidence.WithLabelValues(variant, confidence).Inc()
}

// RecordScoringError counts a rejected submission.
func RecordScoringError(reason string) {
	globalManager.scoringErrors.WithLabelValues(reason).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordMilestoneReached counts a newly set milestone flag.
func RecordMilestoneReached(milestone string) {
	globalManager.milestonesReached.WithLabelValues(milestone).Inc()
}

// RecordGuestMutation counts a tracker operation.
func RecordGuestMutation(operation string) {
	globalManager.guestMutations.WithLabelValues(operation).Inc()
}

// RecordNotificationDuplicate counts a suppressed notification.
func RecordNotificationDuplicate() {
	globalManager.notificationsDuplicate.Inc()
}

// RecordNotificationDropped counts a notification lost to backpressure.
func RecordNotificationDropped() {
	globalManager.notificationsDropped.Inc()
}

// RecordNotificationDelivered counts a hand-off to a subscriber.
func RecordNotificationDelivered(subscriber string) {
	globalManager.notificationsDelivered.WithLabelValues(subscriber).Inc()
}

// UpdateGuestRecordsTotal sets the stored guest count.
func UpdateGuestRecordsTotal(count int) {
	globalManager.guestRecordsTotal.Set(float64(count))
}

// RecordRepositoryUpdateLatency records write latency in milliseconds.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records read latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets size/capacity.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerActiveCount sets the number of running notifiers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the dispatch rate.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records dispatch latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a subscriber failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error against a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error against an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

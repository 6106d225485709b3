// Package metrics provides Prometheus metrics for the reputation ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ledger.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Transition metrics
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	rejections        *prometheus.CounterVec
	interactionDelta  prometheus.Histogram
	sybilScore        prometheus.Histogram

	// Decay sweep metrics
	decaySweeps       prometheus.Counter
	decayedProfiles   prometheus.Counter
	decayedPoints     prometheus.Counter
	profilesTotal     prometheus.Gauge
	decaySweepLatency prometheus.Histogram

	// Store metrics
	storeLatency *prometheus.HistogramVec

	// Event sink queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Event sink worker metrics
	workerActiveCount  prometheus.Gauge
	eventsPublished    prometheus.Counter
	publishErrors      prometheus.Counter
	duplicateEvents    prometheus.Counter
	publishLatency     prometheus.Histogram
	errorByComponent   *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "realmrep",
		subsystem:        "ledger",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.operations = auto.NewCounterVec(
		m.counterOpts("operations_total", "Top-level operations by name and outcome"),
		[]string{"operation", "outcome"},
	)
	m.operationDuration = auto.NewHistogramVec(
		m.histogramOpts("operation_duration_milliseconds", "Latency of top-level operations in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.rejections = auto.NewCounterVec(
		m.counterOpts("rejections_total", "Rejected transitions by reason code"),
		[]string{"code"},
	)
	m.interactionDelta = auto.NewHistogram(
		m.histogramOpts("interaction_delta", "Reputation delta posted per recorded interaction",
			[]float64{0, 5, 10, 25, 50, 100, 150, 200, 250, 300, 500}),
	)
	m.sybilScore = auto.NewHistogram(
		m.histogramOpts("sybil_score", "Blended sybil estimates", prometheus.LinearBuckets(0, 100, 11)),
	)

	m.decaySweeps = auto.NewCounter(m.counterOpts("decay_sweeps_total", "Completed decay sweeps"))
	m.decayedProfiles = auto.NewCounter(m.counterOpts("decayed_profiles_total", "Profiles whose score decayed"))
	m.decayedPoints = auto.NewCounter(m.counterOpts("decayed_points_total", "Total score points removed by decay"))
	m.profilesTotal = auto.NewGauge(m.gaugeOpts("profiles", "Profiles seen by the last decay sweep"))
	m.decaySweepLatency = auto.NewHistogram(
		m.histogramOpts("decay_sweep_duration_milliseconds", "Duration of a decay sweep in milliseconds",
			[]float64{1, 10, 50, 100, 500, 1000, 5000, 30000}),
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Record store transaction latency in milliseconds", m.histogramBuckets),
		[]string{"kind"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("sink_queue_size", "Events waiting in the sink queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("sink_queue_capacity", "Capacity of the sink queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("sink_queue_utilization_ratio", "Sink queue fill ratio (0.0 to 1.0)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("sink_queue_enqueue_total", "Events enqueued for publishing"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("sink_queue_dequeue_total", "Events dequeued by publishers"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("sink_queue_enqueue_errors_total", "Events dropped at enqueue"))

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("sink_workers", "Running sink workers"))
	m.eventsPublished = auto.NewCounter(m.counterOpts("events_published_total", "Interaction events published"))
	m.publishErrors = auto.NewCounter(m.counterOpts("publish_errors_total", "Failed event publications"))
	m.duplicateEvents = auto.NewCounter(m.counterOpts("duplicate_events_total", "Events skipped because their ID was already published"))
	m.publishLatency = auto.NewHistogram(
		m.histogramOpts("publish_latency_milliseconds", "Event publish latency in milliseconds", m.histogramBuckets),
	)
	m.errorByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
}

// RecordOperation counts a top-level operation and its latency.
func RecordOperation(operation, outcome string, latencyMs float64) {
	globalManager.operations.WithLabelValues(operation, outcome).Inc()
	globalManager.operationDuration.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRejection counts a rejected transition by reason code.
func RecordRejection(code string) {
	globalManager.rejections.WithLabelValues(code).Inc()
}

// RecordInteractionDelta observes a posted interaction delta.
func RecordInteractionDelta(delta uint64) {
	globalManager.interactionDelta.Observe(float64(delta))
}

// RecordSybilScore observes a blended sybil estimate.
func RecordSybilScore(score uint64) {
	globalManager.sybilScore.Observe(float64(score))
}

// RecordDecaySweep records one completed sweep.
func RecordDecaySweep(profiles, decayed int, points uint64, latencyMs float64) {
	globalManager.decaySweeps.Inc()
	globalManager.profilesTotal.Set(float64(profiles))
	globalManager.decayedProfiles.Add(float64(decayed))
	globalManager.decayedPoints.Add(float64(points))
	globalManager.decaySweepLatency.Observe(latencyMs)
}

// RecordStoreLatency observes a store transaction ("update" or "view").
func RecordStoreLatency(kind string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(kind).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization percentage.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running sink workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordEventPublished records a successful publication and its latency.
func RecordEventPublished(latencyMs float64) {
	globalManager.eventsPublished.Inc()
	globalManager.publishLatency.Observe(latencyMs)
}

// RecordPublishError increments the publish error counter.
func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

// RecordDuplicateEvent counts an event the sink refused to publish twice.
func RecordDuplicateEvent() {
	globalManager.duplicateEvents.Inc()
}

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package metrics provides Prometheus metrics for the scoutbeat discovery service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus instruments for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Scoring metrics
	scoresComputed *prometheus.CounterVec
	gateFailures   *prometheus.CounterVec
	scoringLatency prometheus.Histogram
	scoringErrors  prometheus.Counter

	// Store metrics
	storeAppends       prometheus.Counter
	storeAppendLatency prometheus.Histogram
	storeErrors        prometheus.Counter
	tracksTracked      prometheus.Gauge

	// Cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheSharedFlights prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager backed by a custom registry so the default Go collectors
// do not pollute /metrics.
var (
	globalManager  *Manager                   //nolint:gochecknoglobals // singleton metrics manager
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// GetRegistry returns the registry the global manager registers into.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoutbeat",
		subsystem:        "discovery",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.scoresComputed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_computed_total",
		Help:      "Score records computed, by score type.",
	}, []string{"score_type"})

	m.gateFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gate_failures_total",
		Help:      "Hard-gate failures that zeroed a score, by score type and gate.",
	}, []string{"score_type", "gate"})

	m.scoringLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_ms",
		Help:      "Latency of a full feature-extract-and-score pass in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.scoringErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_errors_total",
		Help:      "Scoring passes that failed with an error.",
	})

	m.storeAppends = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_appends_total",
		Help:      "Score records appended to the store.",
	})

	m.storeAppendLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_append_latency_ms",
		Help:      "Latency of score store appends in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Score store operations that failed.",
	})

	m.tracksTracked = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracks_tracked",
		Help:      "Number of tracks known to the metadata store.",
	})

	m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_cache_hits_total",
		Help:      "Ranked-query cache hits.",
	})

	m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_cache_misses_total",
		Help:      "Ranked-query cache misses that triggered a recompute.",
	})

	m.cacheSharedFlights = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_cache_shared_flights_total",
		Help:      "Callers that reused an in-flight recompute instead of starting their own.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Scoring jobs currently queued.",
	})

	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the scoring-job queue.",
	})

	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Scoring jobs enqueued.",
	})

	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Scoring jobs dequeued by workers.",
	})

	m.queueEnqueueErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Enqueue attempts rejected (full, closed, or cancelled).",
	})

	m.workerActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active",
		Help:      "Number of running scoring workers.",
	})

	m.workerLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_ms",
		Help:      "End-to-end job processing latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Scoring jobs that failed in a worker.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by endpoint and status code.",
	}, []string{"endpoint", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds, by endpoint.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})
}

// Package-level helpers delegating to the global manager.

func RecordScoreComputed(scoreType string) {
	if globalManager.enabled {
		globalManager.scoresComputed.WithLabelValues(scoreType).Inc()
	}
}

func RecordGateFailure(scoreType, gate string) {
	if globalManager.enabled {
		globalManager.gateFailures.WithLabelValues(scoreType, gate).Inc()
	}
}

func RecordScoringLatency(ms float64) {
	if globalManager.enabled {
		globalManager.scoringLatency.Observe(ms)
	}
}

func RecordScoringError() {
	if globalManager.enabled {
		globalManager.scoringErrors.Inc()
	}
}

func RecordStoreAppend(ms float64) {
	if globalManager.enabled {
		globalManager.storeAppends.Inc()
		globalManager.storeAppendLatency.Observe(ms)
	}
}

func RecordStoreError() {
	if globalManager.enabled {
		globalManager.storeErrors.Inc()
	}
}

func UpdateTracksTracked(n int) {
	if globalManager.enabled {
		globalManager.tracksTracked.Set(float64(n))
	}
}

func RecordCacheHit() {
	if globalManager.enabled {
		globalManager.cacheHits.Inc()
	}
}

func RecordCacheMiss() {
	if globalManager.enabled {
		globalManager.cacheMisses.Inc()
	}
}

func RecordCacheSharedFlight() {
	if globalManager.enabled {
		globalManager.cacheSharedFlights.Inc()
	}
}

func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueues.Inc()
	}
}

func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeues.Inc()
	}
}

func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

func UpdateWorkerActive(n int) {
	if globalManager.enabled {
		globalManager.workerActive.Set(float64(n))
	}
}

func RecordWorkerLatency(ms float64) {
	if globalManager.enabled {
		globalManager.workerLatency.Observe(ms)
	}
}

func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

func RecordHTTPRequest(endpoint, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, status).Inc()
	}
}

func RecordHTTPDuration(endpoint string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(ms)
	}
}

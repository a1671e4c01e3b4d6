// Package metrics provides Prometheus metrics for the coach service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the coach service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Referral attribution
	sponsorResolutions *prometheus.CounterVec
	shareLinks         *prometheus.CounterVec

	// Recommendations
	recommendations        *prometheus.CounterVec
	recommendationListSize prometheus.Histogram
	catalogFallbacks       *prometheus.CounterVec
	catalogFetches         *prometheus.CounterVec
	catalogFetchLatency    prometheus.Histogram
	catalogProducts        prometheus.Gauge
	extractions            *prometheus.CounterVec

	// Leads
	leadsCaptured    prometheus.Counter
	leadsDuplicate   prometheus.Counter
	leadStatusUpdate *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Persistence queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Persistence workers
	workerCount             prometheus.Gauge
	workerJobs              *prometheus.CounterVec
	workerProcessingLatency prometheus.Histogram

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "coach",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every series
	auto := promauto.With(m.registry)

	m.sponsorResolutions = auto.NewCounterVec(
		m.counterOpts("sponsor_resolutions_total", "Sponsor resolutions by winning signal"),
		[]string{"source"},
	)
	m.shareLinks = auto.NewCounterVec(
		m.counterOpts("share_links_total", "Share links built by form (simple, shop, prospect)"),
		[]string{"form"},
	)

	m.recommendations = auto.NewCounterVec(
		m.counterOpts("recommendations_total", "Recommendations emitted by rule"),
		[]string{"rule"},
	)
	m.recommendationListSize = auto.NewHistogram(
		m.histogramOpts("recommendation_list_size", "Number of recommendations per request", []float64{1, 2, 3, 4, 5}),
	)
	m.catalogFallbacks = auto.NewCounterVec(
		m.counterOpts("catalog_fallback_total", "Recommendations served with a fallback product, by category"),
		[]string{"category"},
	)
	m.catalogFetches = auto.NewCounterVec(
		m.counterOpts("catalog_fetch_total", "Remote catalog refreshes by outcome"),
		[]string{"outcome"},
	)
	m.catalogFetchLatency = auto.NewHistogram(
		m.histogramOpts("catalog_fetch_latency_milliseconds", "Remote catalog refresh latency in milliseconds",
			[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000}),
	)
	m.catalogProducts = auto.NewGauge(
		m.gaugeOpts("catalog_products", "Products in the current catalog snapshot"),
	)
	m.extractions = auto.NewCounterVec(
		m.counterOpts("biomarker_extractions_total", "Biomarker extractions from report text by outcome"),
		[]string{"outcome"},
	)

	m.leadsCaptured = auto.NewCounter(
		m.counterOpts("leads_captured_total", "Prospect leads stored"),
	)
	m.leadsDuplicate = auto.NewCounter(
		m.counterOpts("leads_duplicate_total", "Lead submissions dropped as replays"),
	)
	m.leadStatusUpdate = auto.NewCounterVec(
		m.counterOpts("lead_status_updates_total", "Lead status transitions by target status"),
		[]string{"status"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Pending persistence jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Persistence queue capacity"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running persistence workers"))
	m.workerJobs = auto.NewCounterVec(
		m.counterOpts("worker_jobs_total", "Persistence jobs by kind and outcome"),
		[]string{"kind", "outcome"},
	)
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Persistence job latency in milliseconds", nil),
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "GC pause time in milliseconds",
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50}),
	)
}

// RecordSponsorResolution counts a resolution by its winning signal.
func RecordSponsorResolution(source string) {
	globalManager.sponsorResolutions.WithLabelValues(source).Inc()
}

// RecordShareLink counts a built share link by form.
func RecordShareLink(form string) {
	globalManager.shareLinks.WithLabelValues(form).Inc()
}

// RecordRecommendation counts one emitted recommendation.
func RecordRecommendation(rule string) {
	globalManager.recommendations.WithLabelValues(rule).Inc()
}

// RecordRecommendationListSize observes the size of a recommendation list.
func RecordRecommendationListSize(n int) {
	globalManager.recommendationListSize.Observe(float64(n))
}

// RecordCatalogFallback counts a recommendation served with a fallback product.
func RecordCatalogFallback(category string) {
	globalManager.catalogFallbacks.WithLabelValues(category).Inc()
}

// RecordCatalogFetch records a remote catalog refresh.
func RecordCatalogFetch(outcome string, latencyMs float64) {
	globalManager.catalogFetches.WithLabelValues(outcome).Inc()
	globalManager.catalogFetchLatency.Observe(latencyMs)
}

// UpdateCatalogProducts sets the product count of the current snapshot.
func UpdateCatalogProducts(n int) {
	globalManager.catalogProducts.Set(float64(n))
}

// RecordExtraction counts a biomarker extraction attempt.
func RecordExtraction(outcome string) {
	globalManager.extractions.WithLabelValues(outcome).Inc()
}

// RecordLeadCaptured increments the stored leads counter.
func RecordLeadCaptured() {
	globalManager.leadsCaptured.Inc()
}

// RecordLeadDuplicate increments the replayed lead submissions counter.
func RecordLeadDuplicate() {
	globalManager.leadsDuplicate.Inc()
}

// RecordLeadStatusUpdate counts a status transition.
func RecordLeadStatusUpdate(status string) {
	globalManager.leadStatusUpdate.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
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

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerJob records a processed persistence job.
func RecordWorkerJob(kind, outcome string, latencyMs float64) {
	globalManager.workerJobs.WithLabelValues(kind, outcome).Inc()
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
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

// Package metrics provides Prometheus metrics for the dabline stroke service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dab emission reasons.
const (
	DabSampled    = "sampled"
	DabStationary = "stationary"
	DabTerminal   = "terminal"
	DabFlush      = "flush"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Stroke pipeline
	samplesProcessed   prometheus.Counter
	dabsEmitted        *prometheus.CounterVec
	strokesStarted     prometheus.Counter
	strokesFinished    *prometheus.CounterVec
	timebaseCorrection prometheus.Counter
	activePointers     prometheus.Gauge

	// Gate
	gateRuns         *prometheus.CounterVec
	gateCases        *prometheus.CounterVec
	blockingFailures *prometheus.CounterVec
	gateRunDuration  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dabline",
		subsystem:        "stroke",
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
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.samplesProcessed = auto.NewCounter(m.counterOpts(
		"samples_processed_total", "Raw input samples fed to a pipeline"))
	m.dabsEmitted = auto.NewCounterVec(m.counterOpts(
		"dabs_emitted_total", "Dabs emitted, by reason"), []string{"reason"})
	m.strokesStarted = auto.NewCounter(m.counterOpts(
		"strokes_started_total", "Strokes started"))
	m.strokesFinished = auto.NewCounterVec(m.counterOpts(
		"strokes_finished_total", "Strokes finished, by how they ended"), []string{"end"})
	m.timebaseCorrection = auto.NewCounter(m.counterOpts(
		"timebase_corrections_total", "Host timestamps rewritten to stay monotonic"))
	m.activePointers = auto.NewGauge(m.gaugeOpts(
		"active_pointers", "Pointers with a stroke in progress"))

	m.gateRuns = auto.NewCounterVec(m.counterOpts(
		"gate_runs_total", "Parity gate runs, by verdict"), []string{"verdict"})
	m.gateCases = auto.NewCounterVec(m.counterOpts(
		"gate_cases_total", "Parity gate cases, by result"), []string{"result"})
	m.blockingFailures = auto.NewCounterVec(m.counterOpts(
		"gate_blocking_failures_total", "Blocking failures, by name"), []string{"name"})
	m.gateRunDuration = auto.NewHistogram(m.histogramOpts(
		"gate_run_duration_milliseconds", "Parity gate run duration in milliseconds",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}))

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(m.counterOpts(
		"http_errors_total", "HTTP error responses by endpoint and error type"),
		[]string{"endpoint", "error_type", "severity"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count", "Number of goroutines"))
}

// RecordSample counts one processed sample.
func RecordSample() {
	globalManager.samplesProcessed.Inc()
}

// RecordDabs counts n dabs emitted for reason.
func RecordDabs(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.dabsEmitted.WithLabelValues(reason).Add(float64(n))
}

// RecordStrokeStarted counts a new stroke.
func RecordStrokeStarted() {
	globalManager.strokesStarted.Inc()
}

// RecordStrokeFinished counts a stroke that ended with pointer-up or was cancelled.
func RecordStrokeFinished(end string) {
	globalManager.strokesFinished.WithLabelValues(end).Inc()
}

// RecordTimebaseCorrections adds rewritten timestamps.
func RecordTimebaseCorrections(n uint64) {
	if n == 0 {
		return
	}
	globalManager.timebaseCorrection.Add(float64(n))
}

// UpdateActivePointers sets the number of pointers mid-stroke.
func UpdateActivePointers(n int) {
	globalManager.activePointers.Set(float64(n))
}

// RecordGateRun records a finished gate run.
func RecordGateRun(verdict string, durationMs float64) {
	globalManager.gateRuns.WithLabelValues(verdict).Inc()
	globalManager.gateRunDuration.Observe(durationMs)
}

// RecordGateCase counts one evaluated case or preset.
func RecordGateCase(result string) {
	globalManager.gateCases.WithLabelValues(result).Inc()
}

// RecordBlockingFailure counts one named blocking failure.
func RecordBlockingFailure(name string) {
	globalManager.blockingFailures.WithLabelValues(name).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

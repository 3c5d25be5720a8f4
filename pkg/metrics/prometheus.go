// Package metrics provides Prometheus metrics for the scoreline service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultNamespace       = "scoreline"
	subsystem              = "predictions"
	defaultRefreshInterval = 10 * time.Second
)

// latencyBuckets are in milliseconds.
var latencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // shared bucket layout

// Manager manages all Prometheus metrics for the scoreline service.
type Manager struct {
	namespace       string
	enabled         bool
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Prediction flow
	predictionsCreated  prometheus.Counter
	predictionsRejected *prometheus.CounterVec
	predictionsScored   *prometheus.CounterVec
	pointsAwarded       prometheus.Counter
	scoringLatency      prometheus.Histogram

	// Match lifecycle
	matchTransitions  *prometheus.CounterVec
	matchesAutoLocked prometheus.Counter
	schedulerRuns     *prometheus.CounterVec

	// Users
	usersRegistered prometheus.Counter

	// Analytics
	leaderboardQueries *prometheus.CounterVec
	leaderboardLatency prometheus.Histogram
	statsCacheHits     prometheus.Counter
	statsCacheMisses   prometheus.Counter
	statsCacheErrors   prometheus.Counter

	// Store
	storeOperationLatency *prometheus.HistogramVec
	storeErrors           *prometheus.CounterVec
	storeRecords          *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:       defaultNamespace,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   latencyBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.predictionsCreated = auto.NewCounter(m.counterOpts("created_total",
		"Total number of predictions accepted"))
	m.predictionsRejected = auto.NewCounterVec(m.counterOpts("rejected_total",
		"Total number of prediction writes rejected, by reason"), []string{"reason"})
	m.predictionsScored = auto.NewCounterVec(m.counterOpts("scored_total",
		"Total number of predictions scored, by accuracy category"), []string{"category"})
	m.pointsAwarded = auto.NewCounter(m.counterOpts("points_awarded_total",
		"Total points awarded across all scored predictions"))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts("scoring_fanout_milliseconds",
		"Duration of finishing a match and scoring its predictions in milliseconds"))

	m.matchTransitions = auto.NewCounterVec(m.counterOpts("match_transitions_total",
		"Total number of match lifecycle transitions"), []string{"transition"})
	m.matchesAutoLocked = auto.NewCounter(m.counterOpts("matches_auto_locked_total",
		"Total number of matches locked by the auto-lock sweep"))
	m.schedulerRuns = auto.NewCounterVec(m.counterOpts("scheduler_runs_total",
		"Total number of scheduled job runs by job and result"), []string{"job", "result"})

	m.usersRegistered = auto.NewCounter(m.counterOpts("users_registered_total",
		"Total number of registered users"))

	m.leaderboardQueries = auto.NewCounterVec(m.counterOpts("leaderboard_queries_total",
		"Total number of leaderboard queries by metric and period"), []string{"metric", "period"})
	m.leaderboardLatency = auto.NewHistogram(m.histogramOpts("leaderboard_latency_milliseconds",
		"Leaderboard computation latency in milliseconds"))
	m.statsCacheHits = auto.NewCounter(m.counterOpts("stats_cache_hits_total",
		"Total number of user stats served from cache"))
	m.statsCacheMisses = auto.NewCounter(m.counterOpts("stats_cache_misses_total",
		"Total number of user stats recomputed"))
	m.statsCacheErrors = auto.NewCounter(m.counterOpts("stats_cache_errors_total",
		"Total number of stats cache backend failures"))

	m.storeOperationLatency = auto.NewHistogramVec(m.histogramOpts("store_operation_milliseconds",
		"Store operation latency in milliseconds"), []string{"backend", "op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total",
		"Total number of failed store operations"), []string{"backend", "op"})
	m.storeRecords = auto.NewGaugeVec(m.gaugeOpts("store_records",
		"Number of records per table"), []string{"table"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Total number of errors by endpoint, method and error type"), []string{"endpoint", "method", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Total number of errors by type and severity"), []string{"error_type", "severity"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes",
		"Allocated heap memory in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds",
		"Average GC pause time in milliseconds"))
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

func on() bool { return globalManager.enabled }

// Prediction Metrics Functions.

// RecordPredictionCreated increments the accepted predictions counter.
func RecordPredictionCreated() {
	if on() {
		globalManager.predictionsCreated.Inc()
	}
}

// RecordPredictionRejected counts a rejected prediction write.
func RecordPredictionRejected(reason string) {
	if on() {
		globalManager.predictionsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordPredictionScored counts a scored prediction and its points.
func RecordPredictionScored(category string, points int) {
	if on() {
		globalManager.predictionsScored.WithLabelValues(category).Inc()
		globalManager.pointsAwarded.Add(float64(points))
	}
}

// RecordScoringLatency records how long a finish-and-score pass took.
func RecordScoringLatency(latencyMs float64) {
	if on() {
		globalManager.scoringLatency.Observe(latencyMs)
	}
}

// Match Metrics Functions.

// RecordMatchTransition counts a lifecycle transition.
func RecordMatchTransition(transition string) {
	if on() {
		globalManager.matchTransitions.WithLabelValues(transition).Inc()
	}
}

// RecordMatchesAutoLocked adds the matches locked by one sweep.
func RecordMatchesAutoLocked(n int) {
	if on() && n > 0 {
		globalManager.matchesAutoLocked.Add(float64(n))
	}
}

// RecordSchedulerRun counts a scheduled job run.
func RecordSchedulerRun(job, result string) {
	if on() {
		globalManager.schedulerRuns.WithLabelValues(job, result).Inc()
	}
}

// RecordUserRegistered increments the registered users counter.
func RecordUserRegistered() {
	if on() {
		globalManager.usersRegistered.Inc()
	}
}

// Analytics Metrics Functions.

// RecordLeaderboardQuery counts a leaderboard query and its latency.
func RecordLeaderboardQuery(metric, period string, latencyMs float64) {
	if on() {
		globalManager.leaderboardQueries.WithLabelValues(metric, period).Inc()
		globalManager.leaderboardLatency.Observe(latencyMs)
	}
}

// RecordStatsCacheHit increments the cache hit counter.
func RecordStatsCacheHit() {
	if on() {
		globalManager.statsCacheHits.Inc()
	}
}

// RecordStatsCacheMiss increments the cache miss counter.
func RecordStatsCacheMiss() {
	if on() {
		globalManager.statsCacheMisses.Inc()
	}
}

// RecordStatsCacheError increments the cache failure counter.
func RecordStatsCacheError() {
	if on() {
		globalManager.statsCacheErrors.Inc()
	}
}

// Store Metrics Functions.

// RecordStoreOperation records the latency of one store call.
func RecordStoreOperation(backend, op string, latencyMs float64) {
	if on() {
		globalManager.storeOperationLatency.WithLabelValues(backend, op).Observe(latencyMs)
	}
}

// RecordStoreError counts a failed store call.
func RecordStoreError(backend, op string) {
	if on() {
		globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// UpdateStoreRecords sets the record count of a table.
func UpdateStoreRecords(table string, count int) {
	if on() {
		globalManager.storeRecords.WithLabelValues(table).Set(float64(count))
	}
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if on() {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if on() {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if on() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

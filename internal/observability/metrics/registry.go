package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration buckets run from 5ms to 10s; advisor-backed
	// feature routes sit at the upper end.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight tracks requests currently being served
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// Business metrics track the anonymous funnel
var (
	// SessionsCreatedTotal counts anonymous sessions created
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jules_anonymous_sessions_created_total",
			Help: "Total number of anonymous sessions created",
		},
	)

	// SessionResolutionsTotal counts resolver outcomes
	SessionResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_session_resolutions_total",
			Help: "Anonymous session resolutions by outcome",
		},
		[]string{"outcome"}, // adopted|created|expired|not_found|failed|throttled|skipped
	)

	// SessionsActive reflects the last observed count of unexpired sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jules_anonymous_sessions_active",
			Help: "Number of unexpired anonymous sessions",
		},
	)

	// UsageIncrementsTotal counts successful usage increments per feature
	UsageIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_usage_increments_total",
			Help: "Total number of usage increments",
		},
		[]string{"feature"},
	)

	// UsageDenialsTotal counts requests rejected by the usage limiter
	UsageDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_usage_denials_total",
			Help: "Total number of requests denied by usage limits",
		},
		[]string{"feature"},
	)

	// MigrationsTotal counts migrate and rollback attempts by result
	MigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_migrations_total",
			Help: "Total number of anonymous-to-user migrations",
		},
		[]string{"result"}, // success|already_migrated|not_found|failure|rolled_back
	)

	// MigrationItemsMovedTotal counts content records re-pointed by migrations
	MigrationItemsMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_migration_items_moved_total",
			Help: "Total number of content records moved by migrations",
		},
		[]string{"kind"}, // fit_check|conversation
	)

	// MigrationDuration measures the migrate transaction
	MigrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jules_migration_duration_seconds",
			Help:    "Time taken by the migrate transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	// ReaperRunsTotal counts cleanup sweeps by status
	ReaperRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_reaper_runs_total",
			Help: "Total number of expired-session sweeps",
		},
		[]string{"status"}, // success|partial|failure
	)

	// ReaperSessionsDeletedTotal counts sessions removed by sweeps
	ReaperSessionsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jules_reaper_sessions_deleted_total",
			Help: "Total number of expired sessions deleted",
		},
	)
)

// Dependency metrics
var (
	// CircuitBreakerState is 0 when closed, 1 when half-open and 2 when open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jules_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerRejectionsTotal counts calls refused without reaching the dependency
	CircuitBreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_circuit_breaker_rejections_total",
			Help: "Calls rejected by an open or saturated half-open circuit",
		},
		[]string{"name"},
	)
)

// Access control metrics
var (
	// TokenVerificationsTotal counts bearer token checks by caller role and result
	TokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_auth_requests_total",
			Help: "Bearer token verifications by role and result",
		},
		[]string{"role", "result"}, // result: success|invalid
	)

	// AccessDeniedTotal counts authenticated callers refused by an ownership or admin check
	AccessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jules_auth_forbidden_total",
			Help: "Authenticated requests refused with 403, by role and reason",
		},
		[]string{"role", "reason"}, // reason: not_admin|subject_mismatch
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

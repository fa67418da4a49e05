package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Surveillance metrics
	casesRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_registered_total",
			Help: "Total number of disease cases registered",
		},
		[]string{"province", "status"},
	)

	caseStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_status_changed_total",
			Help: "Total number of case status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	publicVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_verifications_total",
			Help: "Total number of public patient-card verifications",
		},
		[]string{"result"},
	)

	// Cache metrics
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of aggregate cache hits",
		},
		[]string{"key"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of aggregate cache misses",
		},
		[]string{"key"},
	)

	cacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache tag invalidations",
		},
		[]string{"tag"},
	)

	// Audit metrics
	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries recorded",
		},
	)

	auditEntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Total number of audit entries dropped due to a full buffer",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath keeps metric cardinality bounded for long ID-bearing paths
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordCaseRegistered records a case registration
func RecordCaseRegistered(province, status string) {
	casesRegistered.WithLabelValues(province, status).Inc()
}

// RecordCaseStatusChange records a case status transition
func RecordCaseStatusChange(fromStatus, toStatus string) {
	caseStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordPublicVerification records a patient-card verification attempt
func RecordPublicVerification(found bool) {
	result := "not_found"
	if found {
		result = "verified"
	}
	publicVerifications.WithLabelValues(result).Inc()
}

// RecordCacheHit records an aggregate cache hit
func RecordCacheHit(key string) {
	cacheHits.WithLabelValues(key).Inc()
}

// RecordCacheMiss records an aggregate cache miss
func RecordCacheMiss(key string) {
	cacheMisses.WithLabelValues(key).Inc()
}

// RecordCacheInvalidation records a cache tag invalidation
func RecordCacheInvalidation(tag string) {
	cacheInvalidations.WithLabelValues(tag).Inc()
}

// RecordAuditEntry records an audit entry write
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordAuditEntryDropped records an audit entry lost to backpressure
func RecordAuditEntryDropped() {
	auditEntriesDropped.Inc()
}

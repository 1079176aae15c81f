// Package metrics provides Prometheus metrics for the CodeNest server.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codenest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Session metrics
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codenest_active_sessions",
			Help: "Number of live workspace sessions",
		},
	)

	sessionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codenest_sessions_evicted_total",
			Help: "Total sessions evicted after idling",
		},
	)

	terminalLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_terminal_lines_total",
			Help: "Total terminal lines appended",
		},
		[]string{"type"},
	)

	// Remote execution metrics
	executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_executions_total",
			Help: "Total remote code executions",
		},
		[]string{"language", "result"},
	)

	executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codenest_execution_duration_seconds",
			Help:    "Remote execution round-trip time in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"language"},
	)

	// Summarization metrics
	summariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_summaries_total",
			Help: "Total summarization requests",
		},
		[]string{"result"},
	)

	summaryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codenest_summary_duration_seconds",
			Help:    "Summarization round-trip time in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_stale_responses_total",
			Help: "Remote responses discarded because a newer request was issued",
		},
		[]string{"kind"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_auth_attempts_total",
			Help: "Total token validations",
		},
		[]string{"result"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codenest_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codenest_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codenest_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_sse_events_total",
			Help: "Total SSE events published",
		},
		[]string{"type"},
	)

	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codenest_terminal_ws_connections_active",
			Help: "Number of open terminal WebSocket connections",
		},
	)

	// Rate limiting
	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codenest_rate_limit_hits_total",
			Help: "Total rate limit rejections (429s)",
		},
	)

	// Snapshot metrics
	snapshotOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_snapshot_operations_total",
			Help: "Total project snapshot saves and restores",
		},
		[]string{"operation", "status"},
	)

	snapshotBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codenest_snapshot_bytes_written_total",
			Help: "Total bytes written by snapshot saves",
		},
	)

	// S3 metrics
	s3OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codenest_s3_operation_duration_seconds",
			Help:    "S3 operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	s3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_s3_operations_total",
			Help: "Total S3 operations",
		},
		[]string{"operation", "status"},
	)
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetActiveSessions sets the number of live sessions.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordSessionsEvicted records idle sessions removed by cleanup.
func RecordSessionsEvicted(count int) {
	sessionsEvictedTotal.Add(float64(count))
}

// RecordTerminalLine records an appended terminal line.
func RecordTerminalLine(lineType string) {
	terminalLinesTotal.WithLabelValues(lineType).Inc()
}

// RecordExecution records a remote execution. result is one of
// "success", "failed" (program error) or "error" (upstream failure).
func RecordExecution(language, result string, duration time.Duration) {
	executionsTotal.WithLabelValues(language, result).Inc()
	executionDuration.WithLabelValues(language).Observe(duration.Seconds())
}

// RecordSummary records a summarization request outcome.
func RecordSummary(result string, duration time.Duration) {
	summariesTotal.WithLabelValues(result).Inc()
	if duration > 0 {
		summaryDuration.Observe(duration.Seconds())
	}
}

// RecordStaleResponse records a remote response dropped as out of date.
func RecordStaleResponse(kind string) {
	staleResponsesTotal.WithLabelValues(kind).Inc()
}

// RecordAuthAttempt records a token validation.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// SetDBConnectionsOpen sets the number of open database connections.
func SetDBConnectionsOpen(count int) {
	dbConnectionsOpen.Set(float64(count))
}

// RecordS3Operation records an S3 operation.
func RecordS3Operation(operation string, duration time.Duration, success bool) {
	s3OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	s3OperationsTotal.WithLabelValues(operation, status(success)).Inc()
}

// RecordSnapshot records a snapshot save or restore.
func RecordSnapshot(operation string, bytes int, success bool) {
	snapshotOperationsTotal.WithLabelValues(operation, status(success)).Inc()
	if success && bytes > 0 {
		snapshotBytes.Add(float64(bytes))
	}
}

// SetSSEConnectionsActive sets the number of active SSE connections.
func SetSSEConnectionsActive(count int64) {
	sseConnectionsActive.Set(float64(count))
}

// RecordSSEEvent records an SSE event publication.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}

// WSConnected adjusts the open terminal WebSocket gauge by delta.
func WSConnected(delta int) {
	wsConnectionsActive.Add(float64(delta))
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
// Requests are labelled by their matched route pattern to keep ids out of
// the label set.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}

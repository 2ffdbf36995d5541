package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentd_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeagentd_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ActiveTasks tracks in-flight orchestrator tasks
	ActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeagentd_active_tasks",
			Help: "Number of in-flight streaming tasks",
		},
	)

	// TasksTotal counts completed tasks by outcome
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentd_tasks_total",
			Help: "Total number of completed tasks by outcome",
		},
		[]string{"backend", "outcome"},
	)

	// TaskDuration tracks how long wrapper runs take end to end
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeagentd_task_duration_seconds",
			Help:    "Task duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"backend", "outcome"},
	)

	// StreamEventsEmitted counts stream events delivered to the hub
	StreamEventsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeagentd_stream_events_emitted_total",
			Help: "Total number of stream events published",
		},
	)

	// StreamEventsDropped counts events dropped on full subscriber buffers
	StreamEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentd_stream_events_dropped_total",
			Help: "Total number of stream events dropped due to slow subscribers",
		},
		[]string{"task_id"},
	)

	// ScheduleRuns counts scheduled task firings by status
	ScheduleRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagentd_schedule_runs_total",
			Help: "Total number of scheduled task firings",
		},
		[]string{"status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for streaming responses
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker; websocket upgrades take over the
// underlying connection through the wrapped writer.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath normalizes URL paths to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/health", "/metrics", "/ws", "/api/tasks":
		return path
	default:
		for _, prefix := range []string{"/api/tasks/", "/api/sessions", "/api/settings", "/api/workspaces", "/api/schedules", "/api/fs", "/api/recent-dirs"} {
			if strings.HasPrefix(path, prefix) {
				return prefix
			}
		}
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTaskStart increments the in-flight task gauge
func RecordTaskStart() {
	ActiveTasks.Inc()
}

// RecordTaskEnd decrements the in-flight gauge and records the outcome
func RecordTaskEnd(backend, outcome string, durationSeconds float64) {
	ActiveTasks.Dec()
	TasksTotal.WithLabelValues(backend, outcome).Inc()
	TaskDuration.WithLabelValues(backend, outcome).Observe(durationSeconds)
}

// RecordEventEmitted counts one published stream event
func RecordEventEmitted() {
	StreamEventsEmitted.Inc()
}

// RecordEventDrop records a stream event dropped for a slow subscriber
func RecordEventDrop(taskID string) {
	StreamEventsDropped.WithLabelValues(taskID).Inc()
}

// RecordScheduleRun records a scheduled task firing
func RecordScheduleRun(status string) {
	ScheduleRuns.WithLabelValues(status).Inc()
}

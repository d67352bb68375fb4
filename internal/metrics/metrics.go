// Package metrics exposes Prometheus metrics for the data sweeper.
//
// A Metrics value owns its own registry so tests can create independent
// instances. It implements core.Recorder for domain events and provides
// HTTP middleware that records request counts and latency by route pattern.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datasweeper"

// Metrics holds every collector and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	filesLoaded    *prometheus.CounterVec
	rowsLoaded     *prometheus.CounterVec
	filesRejected  *prometheus.CounterVec
	operations     *prometheus.HistogramVec
	sessionsActive prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_loaded_total",
			Help:      "Uploaded files loaded into a working table, by format.",
		}, []string{"format"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows read from uploaded files, by format.",
		}, []string{"format"}),
		filesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_rejected_total",
			Help:      "Uploaded files skipped, by error code.",
		}, []string{"code"}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of table operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesLoaded,
		m.rowsLoaded,
		m.filesRejected,
		m.operations,
		m.sessionsActive,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FileLoaded implements core.Recorder.
func (m *Metrics) FileLoaded(format string, rows int) {
	m.filesLoaded.WithLabelValues(format).Inc()
	m.rowsLoaded.WithLabelValues(format).Add(float64(rows))
}

// FileRejected implements core.Recorder.
func (m *Metrics) FileRejected(code string) {
	m.filesRejected.WithLabelValues(code).Inc()
}

// Operation implements core.Recorder.
func (m *Metrics) Operation(name string, d time.Duration) {
	m.operations.WithLabelValues(name).Observe(d.Seconds())
}

// SessionsActive implements core.Recorder.
func (m *Metrics) SessionsActive(n int) {
	m.sessionsActive.Set(float64(n))
}

// Middleware records request count and latency. The route label is chi's
// matched pattern, so IDs in the path do not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	linkOperations  *prometheus.CounterVec
	halfLinks       *prometheus.GaugeVec
	lastAudit       prometheus.Gauge
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	linkOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_admin_link_operations_total",
		Help: "Admin/user link and unlink operations by outcome.",
	}, []string{"op", "outcome"})
	halfLinks := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odyssey_admin_half_links",
		Help: "Inconsistent admin/user links found by the last audit, by kind.",
	}, []string{"kind"})
	lastAudit := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "odyssey_admin_link_audit_last_run_timestamp_seconds",
		Help: "Unix time of the last completed link audit.",
	})
	registry.MustRegister(requests, duration, linkOps, halfLinks, lastAudit)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		linkOperations:  linkOps,
		halfLinks:       halfLinks,
		lastAudit:       lastAudit,
	}
}

// Handler returns the http.Handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLinkOperation counts one finished link or unlink.
func (m *Metrics) ObserveLinkOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.linkOperations.WithLabelValues(op, outcome).Inc()
}

// SetHalfLinks publishes the result of a link audit.
func (m *Metrics) SetHalfLinks(counts map[string]int, at time.Time) {
	if m == nil {
		return
	}
	m.halfLinks.Reset()
	for kind, n := range counts {
		m.halfLinks.WithLabelValues(kind).Set(float64(n))
	}
	m.lastAudit.Set(float64(at.Unix()))
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for HTTP requests
type Metrics struct {
	reqTotal    *prometheus.CounterVec
	reqLatency  *prometheus.HistogramVec
	reqInFlight prometheus.Gauge
	registry    *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	reqTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	reqLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reqInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	registry.MustRegister(reqTotal, reqLatency, reqInFlight)

	return &Metrics{
		reqTotal:    reqTotal,
		reqLatency:  reqLatency,
		reqInFlight: reqInFlight,
		registry:    registry,
	}
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.reqInFlight.Inc()
			defer m.reqInFlight.Dec()

			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rw, r)

			// Use Chi's route pattern so /devices/update/42 and
			// /devices/update/43 land in the same series.
			path := r.URL.Path
			if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil && len(chiCtx.RoutePatterns) > 0 {
				path = chiCtx.RoutePatterns[len(chiCtx.RoutePatterns)-1]
			}

			status := strconv.Itoa(rw.code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the HTTP status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	return sr.ResponseWriter.Write(b)
}

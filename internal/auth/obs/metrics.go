// Package obs exposes Prometheus metrics for the gateway's HTTP surface and
// the authentication flow outcomes.
package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_outcomes_total",
			Help: "First-factor login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	revokedTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auth_revoked_tokens",
		Help: "Session tokens currently on the revocation blacklist.",
	})
)

var registerOnce sync.Once

// Init registers the metrics with the default registry. Idempotent, so a
// process that builds more than one Application registers only once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, loginOutcomes, revokedTokens)
	})
}

// Handler serves the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin counts a first-factor outcome ("ok", "not_found", "inactive",
// "bad_password", "error").
func ObserveLogin(outcome string) {
	loginOutcomes.WithLabelValues(outcome).Inc()
}

// SetRevokedTokens reports the current blacklist size.
func SetRevokedTokens(n int) {
	revokedTokens.Set(float64(n))
}

// Instrument wraps a handler with RPS, latency, and in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

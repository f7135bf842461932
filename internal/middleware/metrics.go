package middleware

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the HTTP surface. Scraped at
// GET /metrics.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors with the default
// registry. Call once at wiring time; a second call would panic on
// duplicate registration.
func NewMetrics() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method and status code",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	prometheus.MustRegister(m.Requests)
	prometheus.MustRegister(m.RequestDuration)

	return m
}

// Collect returns a middleware that counts every request and observes its
// latency.
//
// Labels are method and status, not path: the route set includes
// per-account and per-post path segments, and putting those in a label
// would grow an unbounded series per account name.
func (m *Metrics) Collect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		timer := prometheus.NewTimer(m.RequestDuration.WithLabelValues(r.Method))
		next.ServeHTTP(wrapped, r)
		timer.ObserveDuration()

		m.Requests.WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

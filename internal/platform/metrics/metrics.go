// Package metrics holds process-wide Prometheus metrics. Module-specific
// metrics live next to their module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds transport-level Prometheus metrics.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all transport metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiplog_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one request observation.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// Package metrics holds the Prometheus collectors for the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricAccessDecisions     = "access_decisions_total"
	MetricCheckpassOutcomes   = "checkpass_outcomes_total"
)

// Metrics contains all collectors. Operations are safe for concurrent use.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	AccessDecisions *prometheus.CounterVec
	CheckpassKinds  *prometheus.CounterVec
}

// New creates the collectors without registering them; call Register.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"method", "route"},
		),
		AccessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAccessDecisions,
				Help: "Door access decisions by outcome",
			},
			[]string{"outcome"},
		),
		CheckpassKinds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCheckpassOutcomes,
				Help: "Checkpass validations by result kind",
			},
			[]string{"kind"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.HTTPRequests, m.HTTPDuration, m.AccessDecisions, m.CheckpassKinds,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

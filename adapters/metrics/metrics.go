// Package metrics provides Prometheus metrics collection for the CMS backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the backend.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Registration handshake metrics
	Registrations *prometheus.CounterVec // outcome: registered, invalid_state, forbidden, not_found

	// Outbound call metrics
	Revalidations *prometheus.CounterVec // outcome: success, failure
	HealthProbes  *prometheus.CounterVec // outcome: online, offline

	// Audit pipeline metrics
	AuditWrites      prometheus.Counter
	AuditWriteErrors prometheus.Counter
}

// New creates a new metrics collector with all metrics registered on reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cms",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cms",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		Registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cms",
				Name:      "registrations_total",
				Help:      "Registration claim attempts by outcome",
			},
			[]string{"outcome"},
		),
		Revalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cms",
				Name:      "revalidations_total",
				Help:      "Revalidation webhook dispatches by outcome",
			},
			[]string{"outcome"},
		),
		HealthProbes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cms",
				Name:      "health_probes_total",
				Help:      "Frontend health probes by outcome",
			},
			[]string{"outcome"},
		),
		AuditWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cms",
				Name:      "audit_writes_total",
				Help:      "Audit log rows persisted",
			},
		),
		AuditWriteErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cms",
				Name:      "audit_write_errors_total",
				Help:      "Audit log persistence failures (swallowed)",
			},
		),
	}
}

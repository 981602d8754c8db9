package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the delivery orchestrator. All methods
// are nil-safe so wiring stays optional in tests.
type Metrics struct {
	Outcomes    *prometheus.CounterVec
	SendLatency prometheus.Histogram
	Failures    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_orchestrator_outcomes_total",
			Help: "Total orchestrations by terminal outcome",
		}, []string{"outcome"}),
		SendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docrelay_orchestrator_send_duration_seconds",
			Help:    "Transport send latency for successful deliveries",
			Buckets: prometheus.DefBuckets,
		}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_orchestrator_failures_total",
			Help: "Total handled delivery failures by type",
		}, []string{"failure_type"}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveSendLatency(d time.Duration) {
	if m != nil {
		m.SendLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncFailure(failureType string) {
	if m != nil {
		m.Failures.WithLabelValues(failureType).Inc()
	}
}

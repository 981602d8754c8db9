package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit ledger. All methods are
// nil-safe so wiring stays optional in tests.
type Metrics struct {
	Appends        *prometheus.CounterVec
	AppendFailures *prometheus.CounterVec
	VerifyFailures prometheus.Counter
	OutboxDropped  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Appends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_ledger_appends_total",
			Help: "Total ledger entries appended by action type",
		}, []string{"action"}),
		AppendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_ledger_append_failures_total",
			Help: "Total failed ledger appends by action type",
		}, []string{"action"}),
		VerifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docrelay_ledger_verify_failures_total",
			Help: "Total integrity verification failures",
		}),
		OutboxDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docrelay_ledger_outbox_dropped_total",
			Help: "Total entries dropped from the fan-out outbox",
		}),
	}
}

func (m *Metrics) IncAppend(action string) {
	if m != nil {
		m.Appends.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncAppendFailure(action string) {
	if m != nil {
		m.AppendFailures.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncVerifyFailure() {
	if m != nil {
		m.VerifyFailures.Inc()
	}
}

func (m *Metrics) IncOutboxDropped() {
	if m != nil {
		m.OutboxDropped.Inc()
	}
}

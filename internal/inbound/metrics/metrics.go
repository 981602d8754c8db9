package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for inbound reconciliation. All methods are
// nil-safe so wiring stays optional in tests.
type Metrics struct {
	Received   *prometheus.CounterVec
	Matches    *prometheus.CounterVec
	Duplicates prometheus.Counter
	MatchScore prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Received: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_inbound_received_total",
			Help: "Total inbound documents by classified type",
		}, []string{"document_type"}),
		Matches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_inbound_match_outcomes_total",
			Help: "Total match decisions by band",
		}, []string{"band"}),
		Duplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docrelay_inbound_duplicates_total",
			Help: "Total documents rejected as content-hash duplicates",
		}),
		MatchScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docrelay_inbound_best_match_score",
			Help:    "Best candidate score per received document",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (m *Metrics) IncReceived(documentType string) {
	if m != nil {
		m.Received.WithLabelValues(documentType).Inc()
	}
}

func (m *Metrics) IncMatch(band string) {
	if m != nil {
		m.Matches.WithLabelValues(band).Inc()
	}
}

func (m *Metrics) IncDuplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}

func (m *Metrics) ObserveBestScore(score float64) {
	if m != nil {
		m.MatchScore.Observe(score)
	}
}

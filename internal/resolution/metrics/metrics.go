package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the resolution engine. Methods are
// nil-safe.
type Metrics struct {
	Resolutions *prometheus.CounterVec
	Promotions  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docrelay_resolution_outcomes_total",
			Help: "Resolution outcomes by source layer, resolved flag, and review flag",
		}, []string{"layer", "resolved", "review"}),
		Promotions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docrelay_resolution_promotions_total",
			Help: "Human-reviewed resolutions promoted to verified internal contacts",
		}),
	}
}

func (m *Metrics) ObserveResolution(layer int, resolved, review bool) {
	if m != nil {
		m.Resolutions.WithLabelValues(
			strconv.Itoa(layer),
			strconv.FormatBool(resolved),
			strconv.FormatBool(review),
		).Inc()
	}
}

func (m *Metrics) IncPromotion() {
	if m != nil {
		m.Promotions.Inc()
	}
}

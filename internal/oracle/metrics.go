package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks request publishing and result fulfilment.
type Metrics struct {
	Published    *prometheus.CounterVec
	Fulfilled    *prometheus.CounterVec
	CircuitState prometheus.Gauge
}

// NewMetrics registers the oracle bridge metrics. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_oracle_requests_published_total",
			Help: "Verification requests published by sink and outcome",
		}, []string{"sink", "outcome"}),
		Fulfilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_oracle_results_total",
			Help: "Verification results consumed by outcome",
		}, []string{"outcome"}), // "stored", "revoked", "skipped", "error"
		CircuitState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clubdomains_oracle_circuit_open",
			Help: "1 while the oracle bus circuit is open",
		}),
	}
}

func (m *Metrics) IncPublished(sink, outcome string) {
	if m != nil {
		m.Published.WithLabelValues(sink, outcome).Inc()
	}
}

func (m *Metrics) IncFulfilled(outcome string) {
	if m != nil {
		m.Fulfilled.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.Set(1)
		return
	}
	m.CircuitState.Set(0)
}

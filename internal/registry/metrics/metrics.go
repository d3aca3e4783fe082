package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the domain registry.
type Metrics struct {
	Operations       *prometheus.CounterVec
	TxLatency        *prometheus.HistogramVec
	ListenerFailures *prometheus.CounterVec
}

// New registers the registry metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_registry_operations_total",
			Help: "Registry mutations by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: "ok", "rejected", "error"

		TxLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clubdomains_registry_tx_duration_seconds",
			Help:    "Duration of registry transactions by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		ListenerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_registry_listener_failures_total",
			Help: "Domain listener callbacks that failed after commit",
		}, []string{"callback"}),
	}
}

func (m *Metrics) RecordOperation(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.TxLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncListenerFailure(callback string) {
	if m != nil {
		m.ListenerFailures.WithLabelValues(callback).Inc()
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the membership sources and the aggregator read path.
type Metrics struct {
	ProbeFailures   *prometheus.CounterVec
	ProbeLatency    *prometheus.HistogramVec
	Classifications *prometheus.CounterVec
	Acquisitions    *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
}

// New registers the membership metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		ProbeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_membership_probe_failures_total",
			Help: "Source probes that failed and were folded as no",
		}, []string{"source", "category"}),

		ProbeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clubdomains_membership_probe_duration_seconds",
			Help:    "Latency of individual membership source probes",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		Classifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_membership_classifications_total",
			Help: "Classification results by membership type",
		}, []string{"type"}),

		Acquisitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_membership_acquisitions_total",
			Help: "Passes minted or purchased and subscriptions bought",
		}, []string{"source", "kind"}),

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdomains_membership_verifications_total",
			Help: "Cross-chain verification reports by outcome",
		}, []string{"outcome"}), // outcome: "stored", "deleted"
	}
}

func (m *Metrics) IncProbeFailure(source, category string) {
	if m != nil {
		m.ProbeFailures.WithLabelValues(source, category).Inc()
	}
}

func (m *Metrics) ObserveProbe(source string, d time.Duration) {
	if m != nil {
		m.ProbeLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncClassification(kind string) {
	if m != nil {
		m.Classifications.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncAcquisition(source, kind string) {
	if m != nil {
		m.Acquisitions.WithLabelValues(source, kind).Inc()
	}
}

func (m *Metrics) IncVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initFDetectorMetrics() {
	r.FDetectorProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdetector_probes_total",
			Help: "Direct probes sent, by outcome",
		},
		[]string{"outcome"}, // ack, timeout
	)

	r.FDetectorPingReqsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fdetector_ping_reqs_total",
			Help: "Indirect probe requests sent to intermediaries",
		},
	)

	r.FDetectorVerdictsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdetector_verdicts_total",
			Help: "Verdicts emitted by the failure detector",
		},
		[]string{"kind"}, // alive, suspect
	)

	r.FDetectorProbeDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fdetector_probe_duration_seconds",
			Help:    "Round-trip time of acknowledged probes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	r.FDetectorPeersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fdetector_peers_total",
			Help: "Peers in the failure detector probe set",
		},
	)
}

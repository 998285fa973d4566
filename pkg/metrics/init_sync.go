package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSyncMetrics() {
	r.SyncRoundsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_sync_rounds_total",
			Help: "Total number of SYNC rounds initiated",
		},
	)

	r.SyncTimeoutsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_sync_timeouts_total",
			Help: "SYNC rounds that ended without a usable SYNC-ACK (timeout, malformed or foreign-group reply)",
		},
	)

	r.SyncAcksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_sync_acks_total",
			Help: "SYNC-ACK responses merged",
		},
	)

	r.SyncRequestsReceived = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_sync_requests_received_total",
			Help: "SYNC requests received and answered",
		},
	)

	r.SyncRoundDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluster_sync_round_duration_seconds",
			Help:    "Duration of SYNC rounds from send to merged SYNC-ACK",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 3.0, 10.0},
		},
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initClusterMetrics() {
	r.ClusterMembersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_members_total",
			Help: "Total number of members in the local membership table (excluding removed)",
		},
	)

	r.ClusterMembersByStatus = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluster_members_by_status",
			Help: "Number of members per status in the local membership table",
		},
		[]string{"status"}, // trusted, suspected, shutdown
	)

	r.ClusterMergesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_merges_total",
			Help: "Total number of membership merges by source",
		},
		[]string{"source"}, // sync, sync_ack, fdetector, gossip
	)

	r.ClusterDeltasTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_deltas_total",
			Help: "Total number of membership deltas produced by status",
		},
		[]string{"status"},
	)

	r.ClusterRefutationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_refutations_total",
			Help: "Times the local member refuted a SUSPECTED/SHUTDOWN claim about itself received by gossip",
		},
	)

	r.ClusterRemovalsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_removals_total",
			Help: "Members removed from the table by decay reason",
		},
		[]string{"reason"}, // suspect_timeout, shutdown_timeout
	)
}

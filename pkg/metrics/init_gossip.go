package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGossipMetrics() {
	r.GossipSpreadTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gossip_spread_total",
			Help: "Messages handed to the gossip protocol for dissemination",
		},
	)

	r.GossipSentTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gossip_sent_total",
			Help: "Gossip requests sent to peers",
		},
	)

	r.GossipReceivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gossip_received_total",
			Help: "Gossips received, by novelty",
		},
		[]string{"result"}, // new, duplicate
	)

	r.GossipQueueSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gossip_queue_size",
			Help: "Gossips currently queued for retransmission",
		},
	)

	r.GossipPeersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gossip_peers_total",
			Help: "Peers in the gossip dissemination set",
		},
	)
}

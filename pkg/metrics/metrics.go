package metrics

import (
	"time"
)

// UpdateMembership updates the membership table gauges
func (r *Registry) UpdateMembership(trusted, suspected, shutdown int) {
	r.ClusterMembersTotal.Set(float64(trusted + suspected + shutdown))
	r.ClusterMembersByStatus.WithLabelValues("trusted").Set(float64(trusted))
	r.ClusterMembersByStatus.WithLabelValues("suspected").Set(float64(suspected))
	r.ClusterMembersByStatus.WithLabelValues("shutdown").Set(float64(shutdown))
}

// RecordMerge records a merge and the deltas it produced
func (r *Registry) RecordMerge(source string, deltaStatuses []string) {
	r.ClusterMergesTotal.WithLabelValues(source).Inc()
	for _, status := range deltaStatuses {
		r.ClusterDeltasTotal.WithLabelValues(status).Inc()
	}
}

// RecordSyncRound records a completed SYNC round
func (r *Registry) RecordSyncRound(acked bool, duration time.Duration) {
	r.SyncRoundsTotal.Inc()
	if acked {
		r.SyncAcksTotal.Inc()
		r.SyncRoundDuration.Observe(duration.Seconds())
	} else {
		r.SyncTimeoutsTotal.Inc()
	}
}

// RecordProbe records a direct probe outcome
func (r *Registry) RecordProbe(acked bool, duration time.Duration) {
	if acked {
		r.FDetectorProbesTotal.WithLabelValues("ack").Inc()
		r.FDetectorProbeDuration.Observe(duration.Seconds())
	} else {
		r.FDetectorProbesTotal.WithLabelValues("timeout").Inc()
	}
}

// RecordVerdict records an emitted failure detector verdict
func (r *Registry) RecordVerdict(kind string) {
	r.FDetectorVerdictsTotal.WithLabelValues(kind).Inc()
}

// RecordSent records an outbound transport message
func (r *Registry) RecordSent(qualifier string, bytes int) {
	r.TransportSentTotal.WithLabelValues(qualifier).Inc()
	r.TransportSentBytes.Add(float64(bytes))
}

// RecordReceived records an inbound transport message
func (r *Registry) RecordReceived(qualifier string, bytes int) {
	r.TransportReceivedTotal.WithLabelValues(qualifier).Inc()
	r.TransportReceivedBytes.Add(float64(bytes))
}

// RecordGossipReceived records an incoming gossip by novelty
func (r *Registry) RecordGossipReceived(isNew bool) {
	if isNew {
		r.GossipReceivedTotal.WithLabelValues("new").Inc()
	} else {
		r.GossipReceivedTotal.WithLabelValues("duplicate").Inc()
	}
}

package cluster

import (
	"github.com/dd0wney/cluso-cluster/pkg/fdetector"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/stream"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// eventKind tags the inputs fused by the dispatch loop
type eventKind int

const (
	eventSyncRequest eventKind = iota
	eventSyncAck
	eventFDVerdict
	eventGossipPayload
	eventSuspectExpired
	eventShutdownExpired
)

// event is one unit of work for the dispatch lane
type event struct {
	kind          eventKind
	payload       MembershipPayload
	from          transport.Endpoint
	correlationID string
	verdict       fdetector.Event
	endpoint      transport.Endpoint
}

// dispatchLoop is the single writer of the membership table. It runs
// until Stop drains it.
func (m *Membership) dispatchLoop() {
	defer close(m.laneDone)

	for {
		select {
		case e := <-m.events:
			m.handleEvent(e)
		case <-m.laneDrain:
			for {
				select {
				case e := <-m.events:
					m.handleEvent(e)
				default:
					return
				}
			}
		}
	}
}

func (m *Membership) handleEvent(e event) {
	switch e.kind {
	case eventSyncRequest:
		m.handleSyncRequest(e)

	case eventSyncAck:
		deltas := m.table.mergePayload(e.payload)
		m.metricsRegistry.RecordMerge("sync_ack", deltaStatuses(deltas))
		if len(deltas) > 0 {
			m.logger.Debug("Merged SYNC-ACK", logging.EndpointID(e.from.ID),
				logging.Count(len(deltas)))
		}
		m.processUpdates(deltas, true)

	case eventFDVerdict:
		deltas := m.table.mergeFDEvent(e.verdict)
		m.metricsRegistry.RecordMerge("fdetector", deltaStatuses(deltas))
		if len(deltas) > 0 {
			m.logger.Debug("Merged verdict", logging.EndpointID(e.verdict.Endpoint.ID),
				logging.Status(e.verdict.Kind.String()))
		}
		m.processUpdates(deltas, true)

	case eventGossipPayload:
		deltas := m.table.mergePayload(e.payload)
		m.metricsRegistry.RecordMerge("gossip", deltaStatuses(deltas))
		m.processUpdates(deltas, false)

	case eventSuspectExpired:
		m.metricsRegistry.ClusterRemovalsTotal.WithLabelValues("suspect_timeout").Inc()
		m.logger.Info("Removing suspected member", logging.EndpointID(e.endpoint.ID))
		m.processUpdates(m.table.remove(e.endpoint), false)

	case eventShutdownExpired:
		m.metricsRegistry.ClusterRemovalsTotal.WithLabelValues("shutdown_timeout").Inc()
		m.logger.Info("Removing shutdown member", logging.EndpointID(e.endpoint.ID))
		m.table.removeSilently(e.endpoint)
		m.metricsRegistry.UpdateMembership(m.table.counts())
	}
}

// processUpdates drives the downstream effects of a delta set:
//
//  1. Recompute the trusted/suspected peer set for the failure detector
//     and the gossip broadcaster
//  2. Republish the deltas through gossip unless they arrived by gossip;
//     refutations of the local member are re-gossiped regardless, so a
//     false rumor dies even on the path it came in on
//  3. Publish each delta to update subscribers (REMOVED tombstones are
//     internal and not published)
//  4. Arm or cancel decay timers for the new statuses
func (m *Membership) processUpdates(updates []Member, spreadGossip bool) {
	if len(updates) == 0 {
		return
	}

	endpoints := m.table.trustedOrSuspectedEndpoints()
	m.fdetector.SetClusterEndpoints(endpoints)
	m.gossip.SetClusterEndpoints(endpoints)
	m.metricsRegistry.UpdateMembership(m.table.counts())

	toSpread := updates
	if !spreadGossip {
		toSpread = nil
		for _, update := range updates {
			if update.Endpoint.Equal(m.localEndpoint) && update.Status == Trusted {
				m.metricsRegistry.ClusterRefutationsTotal.Inc()
				toSpread = append(toSpread, update)
			}
		}
	}
	if len(toSpread) > 0 {
		payload := MembershipPayload{Members: toSpread, SyncGroup: m.config.SyncGroup}
		if msg, err := encodePayload(QualifierMembershipGossip, "", payload); err != nil {
			m.logger.Error("Failed to encode gossip payload", logging.Error(err))
		} else {
			m.gossip.Spread(msg)
		}
	}

	for _, update := range updates {
		if update.Status != Removed {
			m.updates.Publish(update)
		}
	}

	for _, update := range updates {
		member := update
		m.logger.Debug("Member transition", logging.EndpointID(member.Endpoint.ID),
			logging.Status(member.Status.String()))

		switch member.Status {
		case Suspected:
			m.fdetector.Suspect(member.Endpoint)
			m.timers.ScheduleKeyed(member.ID(), func() {
				m.enqueue(event{kind: eventSuspectExpired, endpoint: member.Endpoint})
			}, m.config.MaxSuspectTime)

		case Trusted:
			m.fdetector.Trust(member.Endpoint)
			m.timers.Cancel(member.ID())

		case Shutdown:
			m.timers.Cancel(member.ID())
			m.timers.Schedule(func() {
				m.enqueue(event{kind: eventShutdownExpired, endpoint: member.Endpoint})
			}, m.config.MaxShutdownTime)

		case Removed:
			m.timers.Cancel(member.ID())
		}
	}
}

// deltaStatuses renders delta statuses for metrics labels
func deltaStatuses(deltas []Member) []string {
	statuses := make([]string, len(deltas))
	for i, d := range deltas {
		statuses[i] = d.Status.String()
	}
	return statuses
}

// transportAdapter forwards SYNC requests onto the dispatch lane
func (m *Membership) transportAdapter(sub *stream.Subscription) {
	defer m.wg.Done()

	for value := range sub.Channel() {
		incoming, ok := value.(transport.IncomingMessage)
		if !ok || incoming.Message.Qualifier != QualifierSync {
			continue
		}

		payload, err := decodePayload(incoming.Message)
		if err != nil {
			m.logger.Warn("Dropped malformed SYNC", logging.EndpointID(incoming.From.ID),
				logging.Error(err))
			continue
		}
		if payload.SyncGroup != m.config.SyncGroup {
			// Foreign sync group; drop without a reply.
			continue
		}

		m.enqueue(event{
			kind:          eventSyncRequest,
			payload:       payload,
			from:          incoming.From,
			correlationID: incoming.Message.CorrelationID,
		})
	}
}

// fdAdapter forwards failure detector verdicts onto the dispatch lane
func (m *Membership) fdAdapter(sub *stream.Subscription) {
	defer m.wg.Done()

	for value := range sub.Channel() {
		verdict, ok := value.(fdetector.Event)
		if !ok {
			continue
		}
		m.enqueue(event{kind: eventFDVerdict, verdict: verdict})
	}
}

// gossipAdapter forwards membership gossip payloads onto the dispatch lane
func (m *Membership) gossipAdapter(sub *stream.Subscription) {
	defer m.wg.Done()

	for value := range sub.Channel() {
		msg, ok := value.(transport.Message)
		if !ok || msg.Qualifier != QualifierMembershipGossip {
			continue
		}

		payload, err := decodePayload(msg)
		if err != nil {
			m.logger.Warn("Dropped malformed membership gossip", logging.Error(err))
			continue
		}
		if payload.SyncGroup != m.config.SyncGroup {
			continue
		}

		m.enqueue(event{kind: eventGossipPayload, payload: payload})
	}
}

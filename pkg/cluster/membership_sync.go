package cluster

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// nextCorrelationID renders the monotonic per-process sync counter for
// the wire
func (m *Membership) nextCorrelationID() string {
	return strconv.FormatInt(m.correlation.Add(1), 10)
}

// snapshotPayload renders the current table for a SYNC or SYNC-ACK
func (m *Membership) snapshotPayload() MembershipPayload {
	return MembershipPayload{
		Members:   m.table.asList(),
		SyncGroup: m.config.SyncGroup,
	}
}

// sendSync fans a SYNC with the given correlation id out to seed
// addresses. Sends run off the dispatch lane; individual failures are
// logged and otherwise ignored.
func (m *Membership) sendSync(seeds []string, correlationID string) {
	msg, err := encodePayload(QualifierSync, correlationID, m.snapshotPayload())
	if err != nil {
		m.logger.Error("Failed to encode SYNC", logging.Error(err))
		return
	}

	for _, seed := range seeds {
		addr, err := transport.DialAddr(seed)
		if err != nil {
			m.logger.Warn("Skipped invalid seed", logging.Address(seed), logging.Error(err))
			continue
		}
		go func(addr string) {
			if err := m.transport.Send(addr, msg); err != nil {
				m.logger.Warn("SYNC send failed", logging.Address(addr), logging.Error(err))
			}
		}(addr)
	}
}

// awaitSyncAck waits for the first matching SYNC-ACK and enqueues it for
// the dispatch lane. Responses from foreign sync groups are discarded.
func (m *Membership) awaitSyncAck(correlationID string, started time.Time) bool {
	incoming, err := m.transport.AwaitFirst(m.inputCtx, QualifierSyncAck, correlationID, m.config.SyncTimeout)
	if err != nil {
		m.metricsRegistry.RecordSyncRound(false, 0)
		m.logger.Info("Timeout waiting for SYNC-ACK", logging.CorrelationID(correlationID))
		return false
	}

	payload, err := decodePayload(incoming.Message)
	if err != nil {
		m.metricsRegistry.RecordSyncRound(false, 0)
		m.logger.Warn("Dropped malformed SYNC-ACK", logging.EndpointID(incoming.From.ID),
			logging.Error(err))
		return false
	}
	if payload.SyncGroup != m.config.SyncGroup {
		m.metricsRegistry.RecordSyncRound(false, 0)
		return false
	}

	m.metricsRegistry.RecordSyncRound(true, time.Since(started))
	m.enqueue(event{
		kind:          eventSyncAck,
		payload:       payload,
		from:          incoming.From,
		correlationID: correlationID,
	})
	return true
}

// doInitialSync sends SYNC to every seed and blocks for the first
// SYNC-ACK, at most for the sync timeout. Proceeding without an answer is
// fine; the running phase keeps trying.
func (m *Membership) doInitialSync() {
	correlationID := m.nextCorrelationID()
	started := time.Now()
	m.sendSync(m.seeds, correlationID)
	m.awaitSyncAck(correlationID, started)
}

// syncLoop is the running phase: every sync interval, one seed chosen
// uniformly at random gets a SYNC. Outstanding rounds are isolated by
// correlation id, so a slow round cannot corrupt a later one.
func (m *Membership) syncLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			seed := m.seeds[rand.Intn(len(m.seeds))]
			correlationID := m.nextCorrelationID()
			started := time.Now()
			m.logger.Debug("Sync round", logging.Address(seed),
				logging.CorrelationID(correlationID))
			m.sendSync([]string{seed}, correlationID)

			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.awaitSyncAck(correlationID, started)
			}()
		}
	}
}

// handleSyncRequest merges an incoming SYNC on the dispatch lane and
// replies with the merged snapshot under the same correlation id. The
// reply is sent even when the merge produced no deltas.
func (m *Membership) handleSyncRequest(e event) {
	m.metricsRegistry.SyncRequestsReceived.Inc()

	deltas := m.table.mergePayload(e.payload)
	m.metricsRegistry.RecordMerge("sync", deltaStatuses(deltas))
	if len(deltas) > 0 {
		m.logger.Debug("Merged SYNC", logging.EndpointID(e.from.ID),
			logging.Count(len(deltas)))
	}
	m.processUpdates(deltas, true)

	ack, err := encodePayload(QualifierSyncAck, e.correlationID, m.snapshotPayload())
	if err != nil {
		m.logger.Error("Failed to encode SYNC-ACK", logging.Error(err))
		return
	}
	from := e.from
	go func() {
		if err := m.transport.SendToEndpoint(from, ack); err != nil {
			m.logger.Warn("SYNC-ACK send failed", logging.EndpointID(from.ID),
				logging.Error(err))
		}
	}()
}

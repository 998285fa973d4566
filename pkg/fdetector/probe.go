package fdetector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/stream"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// pingReqPayload asks an intermediary to probe target on our behalf
type pingReqPayload struct {
	Target transport.Endpoint `json:"target"`
}

// probeLoop drives one probe round per ping interval. Each round probes
// one random peer; while suspects exist one of them is probed as well, so
// recovery is noticed quickly.
func (fd *FailureDetector) probeLoop() {
	defer fd.wg.Done()

	ticker := time.NewTicker(fd.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-fd.stopCh:
			return
		case <-ticker.C:
			target, ok := fd.pickProbeTarget()
			if !ok {
				continue
			}
			go fd.probe(target)

			if suspect, ok := fd.pickSuspectTarget(); ok && !suspect.Equal(target) {
				go fd.probe(suspect)
			}
		}
	}
}

// pickSuspectTarget selects one currently suspected peer at random
func (fd *FailureDetector) pickSuspectTarget() (transport.Endpoint, bool) {
	fd.peersMu.RLock()
	defer fd.peersMu.RUnlock()

	for id := range fd.suspected {
		if ep, exists := fd.peers[id]; exists {
			return ep, true
		}
	}
	return transport.Endpoint{}, false
}

// probe sends a direct ping; on timeout it escalates to an indirect round
// through up to MaxEndpointsToSelect intermediaries before a SUSPECT
// verdict.
func (fd *FailureDetector) probe(target transport.Endpoint) {
	correlationID := fd.nextCorrelationID()
	started := time.Now()

	ping := transport.Message{Qualifier: QualifierPing, CorrelationID: correlationID}
	if err := fd.transport.SendToEndpoint(target, ping); err != nil {
		fd.logger.Debug("Ping send failed",
			logging.EndpointID(target.ID), logging.Error(err))
	}

	if _, err := fd.transport.AwaitFirst(context.Background(), QualifierAck, correlationID, fd.config.PingTimeout); err == nil {
		fd.metricsRegistry.RecordProbe(true, time.Since(started))
		fd.emit(Event{Endpoint: target, Kind: Alive})
		return
	}
	fd.metricsRegistry.RecordProbe(false, 0)

	intermediaries := fd.pickIntermediaries(target, fd.config.MaxEndpointsToSelect)
	if len(intermediaries) > 0 {
		data, err := json.Marshal(pingReqPayload{Target: target})
		if err != nil {
			fd.logger.Error("Failed to marshal ping request", logging.Error(err))
			return
		}
		req := transport.Message{
			Qualifier:     QualifierPingReq,
			CorrelationID: correlationID,
			Data:          data,
		}
		for _, mediator := range intermediaries {
			fd.metricsRegistry.FDetectorPingReqsTotal.Inc()
			if err := fd.transport.SendToEndpoint(mediator, req); err != nil {
				fd.logger.Debug("Ping request send failed",
					logging.EndpointID(mediator.ID), logging.Error(err))
			}
		}

		if _, err := fd.transport.AwaitFirst(context.Background(), QualifierAck, correlationID, fd.config.PingTimeout); err == nil {
			fd.emit(Event{Endpoint: target, Kind: Alive})
			return
		}
	}

	fd.emit(Event{Endpoint: target, Kind: Suspect})
}

// handleLoop answers pings and forwards indirect probe requests
func (fd *FailureDetector) handleLoop(sub *stream.Subscription) {
	defer fd.wg.Done()

	for value := range sub.Channel() {
		incoming, ok := value.(transport.IncomingMessage)
		if !ok {
			continue
		}

		switch incoming.Message.Qualifier {
		case QualifierPing:
			ack := transport.Message{
				Qualifier:     QualifierAck,
				CorrelationID: incoming.Message.CorrelationID,
			}
			go func(from transport.Endpoint) {
				if err := fd.transport.SendToEndpoint(from, ack); err != nil {
					fd.logger.Debug("Ack send failed",
						logging.EndpointID(from.ID), logging.Error(err))
				}
			}(incoming.From)

		case QualifierPingReq:
			var payload pingReqPayload
			if err := json.Unmarshal(incoming.Message.Data, &payload); err != nil {
				fd.logger.Warn("Dropped malformed ping request", logging.Error(err))
				continue
			}
			go fd.forwardProbe(incoming.From, payload.Target, incoming.Message.CorrelationID)
		}
	}
}

// forwardProbe probes target on behalf of origin and forwards the ack
func (fd *FailureDetector) forwardProbe(origin, target transport.Endpoint, originalCorrelationID string) {
	correlationID := fd.nextCorrelationID()

	ping := transport.Message{Qualifier: QualifierPing, CorrelationID: correlationID}
	if err := fd.transport.SendToEndpoint(target, ping); err != nil {
		return
	}

	if _, err := fd.transport.AwaitFirst(context.Background(), QualifierAck, correlationID, fd.config.PingTimeout); err != nil {
		return
	}

	forwarded := transport.Message{
		Qualifier:     QualifierAck,
		CorrelationID: originalCorrelationID,
	}
	if err := fd.transport.SendToEndpoint(origin, forwarded); err != nil {
		fd.logger.Debug("Forwarded ack send failed",
			logging.EndpointID(origin.ID), logging.Error(err))
	}
}

// emit publishes a verdict
func (fd *FailureDetector) emit(event Event) {
	if event.Kind == Alive {
		fd.metricsRegistry.RecordVerdict("alive")
	} else {
		fd.metricsRegistry.RecordVerdict("suspect")
	}
	fd.logger.Debug("Verdict", logging.EndpointID(event.Endpoint.ID),
		logging.Status(event.Kind.String()))
	fd.bus.Publish(event)
}

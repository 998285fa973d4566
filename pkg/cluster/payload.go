package cluster

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-cluster/pkg/transport"
	"github.com/dd0wney/cluso-cluster/pkg/validation"
)

// Message qualifiers. Sync and syncAck are the anti-entropy exchange;
// the gossip qualifier discriminates membership payloads on the gossip
// stream.
const (
	QualifierSync             = "io.servicefabric.cluster/membership/sync"
	QualifierSyncAck          = "io.servicefabric.cluster/membership/syncAck"
	QualifierMembershipGossip = "io.servicefabric.cluster/membership/gossip"
)

// MembershipPayload is the wire-visible snapshot exchanged in SYNC,
// SYNC-ACK and membership gossip
type MembershipPayload struct {
	Members   []Member `json:"members" validate:"max=4096"`
	SyncGroup string   `json:"sync_group" validate:"max=64"`
}

// encodePayload renders a payload as a transport message
func encodePayload(qualifier, correlationID string, payload MembershipPayload) (transport.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return transport.Message{}, fmt.Errorf("encode membership payload: %w", err)
	}
	return transport.Message{
		Qualifier:     qualifier,
		CorrelationID: correlationID,
		Data:          data,
	}, nil
}

// decodePayload parses and bounds-checks a payload from the wire
func decodePayload(msg transport.Message) (MembershipPayload, error) {
	var payload MembershipPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return MembershipPayload{}, fmt.Errorf("decode membership payload: %w", err)
	}
	if err := validation.Struct(&payload); err != nil {
		return MembershipPayload{}, fmt.Errorf("invalid membership payload: %w", err)
	}
	for _, member := range payload.Members {
		if member.Endpoint.ID == "" || len(member.Endpoint.ID) > validation.MaxEndpointIDLength {
			return MembershipPayload{}, fmt.Errorf("invalid membership payload: bad endpoint id %q", member.Endpoint.ID)
		}
		if err := validation.ValidateMetadata(member.Metadata); err != nil {
			return MembershipPayload{}, fmt.Errorf("invalid membership payload: %w", err)
		}
	}
	return payload, nil
}

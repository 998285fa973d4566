package cluster

import (
	"fmt"

	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// MemberStatus represents the state of a cluster member
type MemberStatus int

const (
	// Trusted is a member believed alive
	Trusted MemberStatus = iota
	// Suspected is a member that failed probing and is decaying toward removal
	Suspected
	// Shutdown is a member that announced a graceful leave
	Shutdown
	// Removed is the absorbing terminal state; removed members are
	// retained as tombstones and never listed
	Removed
)

// String returns the string representation of a MemberStatus
func (s MemberStatus) String() string {
	switch s {
	case Trusted:
		return "TRUSTED"
	case Suspected:
		return "SUSPECTED"
	case Shutdown:
		return "SHUTDOWN"
	case Removed:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Member is one entry of the membership table
type Member struct {
	Endpoint transport.Endpoint `json:"endpoint"`
	Status   MemberStatus       `json:"status"`
	Metadata map[string]string  `json:"metadata,omitempty"`
}

// ID returns the member's stable identifier
func (m Member) ID() string {
	return m.Endpoint.ID
}

// String returns a human-readable member description
func (m Member) String() string {
	return fmt.Sprintf("%s [%s]", m.Endpoint, m.Status)
}

// clone returns a deep copy so table internals never escape
func (m Member) clone() Member {
	cp := m
	if m.Metadata != nil {
		cp.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

// metadataEqual compares two metadata maps
func metadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

package cluster

import (
	"slices"
	"sync"

	"github.com/dd0wney/cluso-cluster/pkg/fdetector"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// membershipTable holds one Member per endpoint id, with a distinguished
// local entry. The event dispatcher is the only writer; other components
// read snapshot copies.
//
// Concurrent Safety:
// 1. All methods use RWMutex for thread-safe access
// 2. Snapshot reads (asList, get, ...) use RLock and return copies
// 3. Removed members are retained as tombstones so REMOVED is absorbing
type membershipTable struct {
	members map[string]*Member // endpoint id -> member
	localID string
	mu      sync.RWMutex
}

// newMembershipTable creates an empty table for the given local endpoint
func newMembershipTable(localID string) *membershipTable {
	return &membershipTable{
		members: make(map[string]*Member),
		localID: localID,
	}
}

// mergeMember applies one incoming member record against the table and
// returns the delta, if any.
//
// The transition rules (current -> incoming):
//   - absent:    insert; delta unless the record is already REMOVED
//   - local:     a remote SUSPECTED/SHUTDOWN claim about ourselves is
//     refuted with a synthetic TRUSTED delta; nothing else overwrites
//     the local record
//   - TRUSTED:   any status wins; same status updates metadata/address
//   - SUSPECTED: only TRUSTED (recovery), SHUTDOWN and REMOVED win
//   - SHUTDOWN:  only REMOVED wins
//   - REMOVED:   absorbing, nothing wins
func (t *membershipTable) mergeMember(incoming Member) []Member {
	t.mu.Lock()
	defer t.mu.Unlock()

	if incoming.Endpoint.ID == t.localID {
		switch incoming.Status {
		case Suspected, Shutdown:
			return t.refuteLocked(incoming)
		case Removed:
			// A remote opinion never removes the local member.
			return nil
		default:
			// Only the initial local insert reaches the table.
			if _, exists := t.members[t.localID]; exists {
				return nil
			}
		}
	}

	current, exists := t.members[incoming.Endpoint.ID]
	if !exists {
		stored := incoming.clone()
		t.members[incoming.Endpoint.ID] = &stored
		if incoming.Status == Removed {
			return nil
		}
		return []Member{stored.clone()}
	}

	if !t.acceptsLocked(current.Status, incoming.Status) {
		return nil
	}

	changed := current.Status != incoming.Status ||
		!metadataEqual(current.Metadata, incoming.Metadata) ||
		current.Endpoint.Host != incoming.Endpoint.Host ||
		current.Endpoint.Port != incoming.Endpoint.Port

	if !changed {
		return nil
	}

	updated := incoming.clone()
	t.members[incoming.Endpoint.ID] = &updated
	return []Member{updated.clone()}
}

// acceptsLocked is the status transition table
func (t *membershipTable) acceptsLocked(current, incoming MemberStatus) bool {
	switch current {
	case Trusted:
		return true
	case Suspected:
		return incoming == Trusted || incoming == Shutdown || incoming == Removed
	case Shutdown:
		return incoming == Removed
	case Removed:
		return false
	default:
		return false
	}
}

// refuteLocked handles a remote SUSPECTED or SHUTDOWN opinion about the
// local member: it yields a synthetic TRUSTED delta so the refutation is
// re-gossiped, and never touches the local record.
func (t *membershipTable) refuteLocked(incoming Member) []Member {
	local, exists := t.members[t.localID]
	if !exists || local.Status != Trusted {
		return nil
	}
	return []Member{local.clone()}
}

// mergePayload merges every member of an incoming payload, preserving
// discovery order within the call
func (t *membershipTable) mergePayload(payload MembershipPayload) []Member {
	deltas := make([]Member, 0)
	for _, member := range payload.Members {
		deltas = append(deltas, t.mergeMember(member)...)
	}
	return deltas
}

// mergeFDEvent folds a failure detector verdict into the table. Metadata
// is untouched and verdicts about unknown members or the local member are
// ignored.
func (t *membershipTable) mergeFDEvent(event fdetector.Event) []Member {
	if event.Endpoint.ID == t.localID {
		return nil
	}

	t.mu.RLock()
	current, exists := t.members[event.Endpoint.ID]
	if !exists {
		t.mu.RUnlock()
		return nil
	}
	hint := current.clone()
	t.mu.RUnlock()

	if event.Kind == fdetector.Alive {
		hint.Status = Trusted
	} else {
		hint.Status = Suspected
	}
	return t.mergeMember(hint)
}

// remove marks a member REMOVED and returns the delta. The tombstone is
// retained so later rumors about the member stay dead.
func (t *membershipTable) remove(endpoint transport.Endpoint) []Member {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, exists := t.members[endpoint.ID]
	if !exists || current.Status == Removed {
		return nil
	}

	current.Status = Removed
	return []Member{current.clone()}
}

// removeSilently marks a member REMOVED without producing a delta
func (t *membershipTable) removeSilently(endpoint transport.Endpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, exists := t.members[endpoint.ID]; exists {
		current.Status = Removed
	}
}

// asList returns a snapshot of current members, REMOVED excluded, sorted
// by endpoint id for stable output
func (t *membershipTable) asList() []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	list := make([]Member, 0, len(t.members))
	for _, member := range t.members {
		if member.Status == Removed {
			continue
		}
		list = append(list, member.clone())
	}
	slices.SortFunc(list, func(a, b Member) int {
		switch {
		case a.Endpoint.ID < b.Endpoint.ID:
			return -1
		case a.Endpoint.ID > b.Endpoint.ID:
			return 1
		default:
			return 0
		}
	})
	return list
}

// get returns a copy of one member by id
func (t *membershipTable) get(id string) (Member, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	member, exists := t.members[id]
	if !exists || member.Status == Removed {
		return Member{}, false
	}
	return member.clone(), true
}

// local returns a copy of the local member
func (t *membershipTable) local() Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if member, exists := t.members[t.localID]; exists {
		return member.clone()
	}
	return Member{}
}

// trustedOrSuspectedEndpoints returns the endpoints that drive the
// failure detector and gossip peer sets
func (t *membershipTable) trustedOrSuspectedEndpoints() []transport.Endpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()

	endpoints := make([]transport.Endpoint, 0, len(t.members))
	for _, member := range t.members {
		if member.Status == Trusted || member.Status == Suspected {
			endpoints = append(endpoints, member.Endpoint)
		}
	}
	return endpoints
}

// counts returns how many members hold each non-removed status
func (t *membershipTable) counts() (trusted, suspected, shutdown int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, member := range t.members {
		switch member.Status {
		case Trusted:
			trusted++
		case Suspected:
			suspected++
		case Shutdown:
			shutdown++
		}
	}
	return trusted, suspected, shutdown
}

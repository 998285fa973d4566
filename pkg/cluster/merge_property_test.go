package cluster

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genStatus generates an arbitrary member status
func genStatus() gopter.Gen {
	return gen.OneConstOf(Trusted, Suspected, Shutdown, Removed)
}

// genMemberID generates a small id space so merges collide often
func genMemberID() gopter.Gen {
	return gen.OneConstOf("m1", "m2", "m3", "local")
}

// applySequence replays a sequence of incoming records against a table
func applySequence(table *membershipTable, ids []string, statuses []MemberStatus) {
	for i, id := range ids {
		table.mergeMember(testMember(id, statuses[i%len(statuses)]))
	}
}

// TestMergeProperties verifies the universal merge invariants under
// arbitrary sequences of incoming records
func TestMergeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Property 1: the local member is never SUSPECTED, whatever the
	// cluster claims about it
	properties.Property("no self-suspicion", prop.ForAll(
		func(ids []string, statuses []MemberStatus) bool {
			table := newMembershipTable("local")
			table.mergeMember(testMember("local", Trusted))
			if len(statuses) == 0 {
				statuses = []MemberStatus{Trusted}
			}
			applySequence(table, ids, statuses)

			local := table.local()
			return local.Status == Trusted || local.Status == Shutdown
		},
		gen.SliceOf(genMemberID()),
		gen.SliceOf(genStatus()),
	))

	// Property 2: REMOVED is absorbing; no later record resurrects a
	// removed member
	properties.Property("terminal removed", prop.ForAll(
		func(ids []string, statuses []MemberStatus) bool {
			table := newMembershipTable("local")
			table.mergeMember(testMember("m1", Suspected))
			table.remove(testEndpoint("m1"))
			if len(statuses) == 0 {
				statuses = []MemberStatus{Trusted}
			}
			applySequence(table, ids, statuses)

			_, visible := table.get("m1")
			return !visible
		},
		gen.SliceOf(genMemberID()),
		gen.SliceOf(genStatus()),
	))

	// Property 3: merging the same record twice never emits a second
	// delta (merges are idempotent)
	properties.Property("idempotent merge", prop.ForAll(
		func(id string, status MemberStatus) bool {
			table := newMembershipTable("local")
			if id == "local" {
				table.mergeMember(testMember("local", Trusted))
			}
			record := testMember(id, status)
			table.mergeMember(record)
			second := table.mergeMember(record)
			return len(second) == 0
		},
		gen.OneConstOf("m1", "m2"),
		genStatus(),
	))

	// Property 4: two tables fed the same records in different orders
	// agree on the surviving member set once both saw everything twice
	// (anti-entropy style exchange of full snapshots)
	properties.Property("pairwise convergence", prop.ForAll(
		func(statuses []MemberStatus) bool {
			if len(statuses) == 0 {
				return true
			}
			a := newMembershipTable("a")
			b := newMembershipTable("b")

			records := make([]Member, len(statuses))
			for i, status := range statuses {
				records[i] = testMember(genIDs[i%len(genIDs)], status)
			}

			for _, r := range records {
				a.mergeMember(r)
			}
			for i := len(records) - 1; i >= 0; i-- {
				b.mergeMember(records[i])
			}

			// Exchange full snapshots both ways, twice, like SYNC does
			for i := 0; i < 2; i++ {
				b.mergePayload(MembershipPayload{Members: a.asList()})
				a.mergePayload(MembershipPayload{Members: b.asList()})
			}

			return memberSetsEqual(a.asList(), b.asList())
		},
		gen.SliceOf(genStatus()),
	))

	properties.TestingRun(t)
}

var genIDs = []string{"m1", "m2", "m3", "m4"}

// memberSetsEqual compares two member lists by id and status
func memberSetsEqual(a, b []Member) bool {
	if len(a) != len(b) {
		return false
	}
	statuses := make(map[string]MemberStatus, len(a))
	for _, m := range a {
		statuses[m.ID()] = m.Status
	}
	for _, m := range b {
		status, exists := statuses[m.ID()]
		if !exists || status != m.Status {
			return false
		}
	}
	return true
}

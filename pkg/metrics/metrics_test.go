package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// gather returns the metric family with the given name, or nil
func gather(t *testing.T, r *Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// TestRegistry_MembershipGauges tests the membership status gauges
func TestRegistry_MembershipGauges(t *testing.T) {
	r := NewRegistry()

	r.UpdateMembership(3, 1, 2)

	mf := gather(t, r, "cluster_members_total")
	if mf == nil {
		t.Fatal("cluster_members_total not registered")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 6 {
		t.Errorf("Expected cluster_members_total 6, got %v", got)
	}

	mf = gather(t, r, "cluster_members_by_status")
	if mf == nil {
		t.Fatal("cluster_members_by_status not registered")
	}
	byStatus := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		byStatus[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	if byStatus["trusted"] != 3 || byStatus["suspected"] != 1 || byStatus["shutdown"] != 2 {
		t.Errorf("Unexpected status gauge values: %v", byStatus)
	}
}

// TestRegistry_SyncRound tests sync round counters and histogram
func TestRegistry_SyncRound(t *testing.T) {
	r := NewRegistry()

	r.RecordSyncRound(true, 20*time.Millisecond)
	r.RecordSyncRound(false, 0)

	if mf := gather(t, r, "cluster_sync_rounds_total"); mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Error("Expected 2 sync rounds")
	}
	if mf := gather(t, r, "cluster_sync_timeouts_total"); mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Error("Expected 1 sync timeout")
	}
	if mf := gather(t, r, "cluster_sync_round_duration_seconds"); mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Error("Expected 1 duration observation")
	}
}

// TestRegistry_ProbeOutcomes tests failure detector probe metrics
func TestRegistry_ProbeOutcomes(t *testing.T) {
	r := NewRegistry()

	r.RecordProbe(true, time.Millisecond)
	r.RecordProbe(false, 0)
	r.RecordVerdict("suspect")

	mf := gather(t, r, "fdetector_probes_total")
	outcomes := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		outcomes[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if outcomes["ack"] != 1 || outcomes["timeout"] != 1 {
		t.Errorf("Unexpected probe outcomes: %v", outcomes)
	}
}

// TestRegistry_TransportCounters tests transport sent and received byte counters
func TestRegistry_TransportCounters(t *testing.T) {
	r := NewRegistry()

	r.RecordSent("io.servicefabric.cluster/membership/sync", 128)
	r.RecordReceived("io.servicefabric.cluster/membership/syncAck", 256)

	if mf := gather(t, r, "transport_sent_bytes_total"); mf.GetMetric()[0].GetCounter().GetValue() != 128 {
		t.Error("Expected 128 sent bytes")
	}
	if mf := gather(t, r, "transport_received_bytes_total"); mf.GetMetric()[0].GetCounter().GetValue() != 256 {
		t.Error("Expected 256 received bytes")
	}
}

// TestDefaultRegistry_Singleton tests that the default registry is shared
func TestDefaultRegistry_Singleton(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry should return the same instance")
	}
}

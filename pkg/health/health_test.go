package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHealthChecker_OverallStatus tests worst-status-wins aggregation
func TestHealthChecker_OverallStatus(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("ok", func() Check {
		return Check{Name: "ok", Status: StatusHealthy}
	})

	if got := hc.Check().Status; got != StatusHealthy {
		t.Errorf("Expected healthy, got %s", got)
	}

	hc.RegisterCheck("warn", func() Check {
		return Check{Name: "warn", Status: StatusDegraded}
	})
	if got := hc.Check().Status; got != StatusDegraded {
		t.Errorf("Expected degraded, got %s", got)
	}

	hc.RegisterCheck("bad", func() Check {
		return Check{Name: "bad", Status: StatusUnhealthy}
	})
	if got := hc.Check().Status; got != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", got)
	}
}

// TestMembershipCheck tests the membership-derived check
func TestMembershipCheck(t *testing.T) {
	check := MembershipCheck(func() (bool, int, int, int) {
		return true, 3, 1, 0
	})()
	if check.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", check.Status)
	}

	check = MembershipCheck(func() (bool, int, int, int) {
		return true, 1, 3, 0
	})()
	if check.Status != StatusDegraded {
		t.Errorf("Expected degraded when suspicion dominates, got %s", check.Status)
	}

	check = MembershipCheck(func() (bool, int, int, int) {
		return false, 0, 0, 0
	})()
	if check.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy without a trusted local member, got %s", check.Status)
	}
}

// TestHTTPHandler tests status codes and JSON shape
func TestHTTPHandler(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("transport", TransportCheck(func() bool { return true }))

	rec := httptest.NewRecorder()
	hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	var response Response
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy response, got %s", response.Status)
	}
	if _, exists := response.Checks["transport"]; !exists {
		t.Error("Expected transport check in response")
	}
}

// TestReadinessHandler tests that readiness is binary
func TestReadinessHandler(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("membership", MembershipCheck(func() (bool, int, int, int) {
		return false, 0, 0, 0
	}))

	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for unready node, got %d", rec.Code)
	}
}

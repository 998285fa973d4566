package health

// Common health check functions

// MembershipCheck reports on the local membership view. The service is
// unhealthy when the local member is gone, degraded when a large share
// of the cluster is suspected.
func MembershipCheck(state func() (localTrusted bool, trusted, suspected, shutdown int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "membership",
			Details: make(map[string]any),
		}

		localTrusted, trusted, suspected, shutdown := state()
		check.Details["trusted"] = trusted
		check.Details["suspected"] = suspected
		check.Details["shutdown"] = shutdown

		switch {
		case !localTrusted:
			check.Status = StatusUnhealthy
			check.Message = "Local member is not trusted"
		case suspected > trusted:
			check.Status = StatusDegraded
			check.Message = "More suspected than trusted members"
		default:
			check.Status = StatusHealthy
		}

		return check
	}
}

// TransportCheck reports whether the wire is up
func TransportCheck(listening func() bool) CheckFunc {
	return func() Check {
		check := Check{Name: "transport"}

		if listening() {
			check.Status = StatusHealthy
			check.Message = "Listening"
		} else {
			check.Status = StatusUnhealthy
			check.Message = "Not listening"
		}

		return check
	}
}

// SeedCheck reports whether any seed members are configured. A node
// without seeds cannot anti-entropy its way back after a partition.
func SeedCheck(seedCount func() int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "seeds",
			Details: make(map[string]any),
		}

		count := seedCount()
		check.Details["count"] = count

		if count == 0 {
			check.Status = StatusDegraded
			check.Message = "No seed members configured"
		} else {
			check.Status = StatusHealthy
		}

		return check
	}
}

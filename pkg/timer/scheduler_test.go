package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestScheduler_KeyedFires tests that a keyed task fires after its delay
func TestScheduler_KeyedFires(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleKeyed("m1", func() { fired.Add(1) }, 20*time.Millisecond)

	if !s.HasKey("m1") {
		t.Error("Expected pending keyed task for m1")
	}

	waitFor(t, func() bool { return fired.Load() == 1 })

	if s.HasKey("m1") {
		t.Error("Expected key to be cleared after firing")
	}
}

// TestScheduler_KeyedReplace tests that rescheduling a key replaces the task
func TestScheduler_KeyedReplace(t *testing.T) {
	s := New()
	defer s.Stop()

	var first, second atomic.Int32
	s.ScheduleKeyed("m1", func() { first.Add(1) }, 20*time.Millisecond)
	s.ScheduleKeyed("m1", func() { second.Add(1) }, 20*time.Millisecond)

	waitFor(t, func() bool { return second.Load() == 1 })
	time.Sleep(50 * time.Millisecond)

	if first.Load() != 0 {
		t.Error("Replaced task should not fire")
	}
}

// TestScheduler_Cancel tests that a cancelled task never fires
func TestScheduler_Cancel(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleKeyed("m1", func() { fired.Add(1) }, 20*time.Millisecond)
	s.Cancel("m1")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("Cancelled task should not fire")
	}
	if s.HasKey("m1") {
		t.Error("Cancelled key should be cleared")
	}
}

// TestScheduler_CancelAfterFire tests that cancelling a fired key is a no-op
func TestScheduler_CancelAfterFire(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleKeyed("m1", func() { fired.Add(1) }, 5*time.Millisecond)

	waitFor(t, func() bool { return fired.Load() == 1 })
	s.Cancel("m1")
}

// TestScheduler_Unkeyed tests unkeyed scheduling
func TestScheduler_Unkeyed(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule(func() { fired.Add(1) }, 10*time.Millisecond)
	s.Schedule(func() { fired.Add(1) }, 10*time.Millisecond)

	waitFor(t, func() bool { return fired.Load() == 2 })
}

// TestScheduler_FiresNoEarlierThanDelay tests firing accuracy
func TestScheduler_FiresNoEarlierThanDelay(t *testing.T) {
	s := New()
	defer s.Stop()

	start := time.Now()
	done := make(chan time.Duration, 1)
	s.Schedule(func() { done <- time.Since(start) }, 50*time.Millisecond)

	elapsed := <-done
	if elapsed < 50*time.Millisecond {
		t.Errorf("Task fired after %v, before the 50ms delay", elapsed)
	}
}

// TestScheduler_Stop tests that Stop cancels pending work and rejects new work
func TestScheduler_Stop(t *testing.T) {
	s := New()

	var fired atomic.Int32
	s.ScheduleKeyed("m1", func() { fired.Add(1) }, 20*time.Millisecond)
	s.Schedule(func() { fired.Add(1) }, 20*time.Millisecond)

	s.Stop()

	s.ScheduleKeyed("m2", func() { fired.Add(1) }, time.Millisecond)
	s.Schedule(func() { fired.Add(1) }, time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("Expected no tasks to fire after Stop, got %d", fired.Load())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for condition")
		case <-time.After(time.Millisecond):
		}
	}
}

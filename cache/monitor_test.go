package cache

import (
	"testing"
	"time"
)

// Pressure tiers are exercised directly against pressureSweep; the ticker
// wiring is trivial and covered by the monitor start/stop test below.

func fillStore(s *Store[int], clk *fakeClock, n int) {
	for i := 1; i <= n; i++ {
		clk.add(time.Second)
		s.Put(key(i), i)
	}
}

// At >=80% occupancy the sweep trims back to capacity. Occupancy cannot
// exceed capacity between puts, so this tier is a backstop and leaves a
// full store at capacity.
func TestPressure_TrimTier(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := New[int](Options[int]{Capacity: 10, Constrained: true, Clock: clk})
	t.Cleanup(func() { _ = s.Close() })

	fillStore(s, clk, 10)
	s.pressureSweep()
	if s.Len() != 10 {
		t.Fatalf("len=%d, want 10 (trim-to-capacity tier is a no-op at capacity)", s.Len())
	}
}

// At >=60% occupancy the sweep drops the oldest half.
func TestPressure_HalfTier(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := New[int](Options[int]{Capacity: 10, Constrained: true, Clock: clk})
	t.Cleanup(func() { _ = s.Close() })

	fillStore(s, clk, 7)
	s.pressureSweep()
	if s.Len() != 3 {
		t.Fatalf("len=%d, want 3 (dropped oldest half of 7)", s.Len())
	}
	// The survivors are the newest writes.
	for i := 5; i <= 7; i++ {
		if !s.Contains(key(i)) {
			t.Fatalf("entry %d must survive", i)
		}
	}
}

// At >=40% occupancy the sweep drops the oldest 30%.
func TestPressure_CutTier(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := New[int](Options[int]{Capacity: 10, Constrained: true, Clock: clk})
	t.Cleanup(func() { _ = s.Close() })

	fillStore(s, clk, 4)
	s.pressureSweep()
	if s.Len() != 2 {
		t.Fatalf("len=%d, want 2 (dropped ceil(30%% of 4))", s.Len())
	}
	if !s.Contains(key(3)) || !s.Contains(key(4)) {
		t.Fatal("newest entries must survive the cut tier")
	}
}

// Below 40% occupancy the sweep leaves residency alone.
func TestPressure_BelowTiers(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := New[int](Options[int]{Capacity: 10, Constrained: true, Clock: clk})
	t.Cleanup(func() { _ = s.Close() })

	fillStore(s, clk, 3)
	s.pressureSweep()
	if s.Len() != 3 {
		t.Fatalf("len=%d, want 3 (no tier below 40%%)", s.Len())
	}
}

// The sweep also ages out TTL-expired entries in an idle session.
func TestPressure_TTLExpiry(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := New[int](Options[int]{Capacity: 10, Constrained: true, TTL: time.Minute, Clock: clk})
	t.Cleanup(func() { _ = s.Close() })

	fillStore(s, clk, 3)
	clk.add(2 * time.Minute)
	s.pressureSweep()
	if s.Len() != 0 {
		t.Fatalf("len=%d, want 0 after TTL sweep", s.Len())
	}
}

// Pressure evictions are reported with their own reason.
func TestPressure_EvictReason(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	var reasons []EvictReason
	s := New[int](Options[int]{
		Capacity:    10,
		Constrained: true,
		Clock:       clk,
		OnEvict:     func(_ Key, _ int, r EvictReason) { reasons = append(reasons, r) },
	})
	t.Cleanup(func() { _ = s.Close() })

	fillStore(s, clk, 7)
	s.pressureSweep()
	if len(reasons) == 0 {
		t.Fatal("expected pressure evictions")
	}
	for _, r := range reasons {
		if r != EvictPressure {
			t.Fatalf("reason=%v, want EvictPressure", r)
		}
	}
}

// The monitor goroutine runs on its ticker and applies the tiers without
// any put happening in between.
func TestMonitor_Background(t *testing.T) {
	t.Parallel()

	s := New[int](Options[int]{
		Capacity:        10,
		Constrained:     true,
		MonitorInterval: 10 * time.Millisecond,
	})
	t.Cleanup(func() { _ = s.Close() })

	for i := 1; i <= 7; i++ {
		s.Put(key(i), i)
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.Len() > 3 {
		if time.Now().After(deadline) {
			t.Fatalf("monitor did not trim, len=%d", s.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

package ratelimit

import (
	"testing"
	"time"
)

// fakeClock drives a limiter deterministically: sleep advances time instead
// of blocking.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeLimiter(maxRequests int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(maxRequests, window)
	l.now = func() time.Time { return clock.now }
	l.sleep = func(d time.Duration) {
		clock.slept = append(clock.slept, d)
		clock.now = clock.now.Add(d)
	}
	return l, clock
}

func TestAcquireWithinLimit(t *testing.T) {
	l, clock := newFakeLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.Acquire()
	}

	if len(clock.slept) != 0 {
		t.Errorf("expected no sleeps within the limit, got %v", clock.slept)
	}
}

func TestAcquireBlocksWhenFull(t *testing.T) {
	l, clock := newFakeLimiter(2, time.Minute)

	l.Acquire()
	clock.now = clock.now.Add(10 * time.Second)
	l.Acquire()

	// Third call must wait until the first admission ages out.
	l.Acquire()

	if len(clock.slept) != 1 {
		t.Fatalf("expected 1 sleep, got %d", len(clock.slept))
	}
	if clock.slept[0] != 50*time.Second {
		t.Errorf("expected 50s wait, got %v", clock.slept[0])
	}
}

func TestAcquireAfterWindowExpiry(t *testing.T) {
	l, clock := newFakeLimiter(1, time.Second)

	l.Acquire()
	clock.now = clock.now.Add(2 * time.Second)
	l.Acquire()

	if len(clock.slept) != 0 {
		t.Errorf("expected no sleep after window expiry, got %v", clock.slept)
	}
}

func TestCanProceed(t *testing.T) {
	l, clock := newFakeLimiter(2, time.Minute)

	if !l.CanProceed() {
		t.Error("fresh limiter should allow requests")
	}

	l.Acquire()
	l.Acquire()
	if l.CanProceed() {
		t.Error("full limiter should not allow requests")
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if !l.CanProceed() {
		t.Error("limiter should allow requests after the window passes")
	}
}

func TestCanProceedDoesNotAdmit(t *testing.T) {
	l, _ := newFakeLimiter(1, time.Minute)

	l.CanProceed()
	l.CanProceed()
	if !l.CanProceed() {
		t.Error("CanProceed must not consume limit slots")
	}
}

func TestRegistryFallback(t *testing.T) {
	r := NewRegistry()

	if r.Get(APITwitter) == nil {
		t.Fatal("expected twitter limiter")
	}
	if r.Get("unknown") != r.Get(APIWeb) {
		t.Error("unknown API should fall back to the web limiter")
	}
	if r.Get(APILLM) == r.Get(APIArxiv) {
		t.Error("distinct APIs must have distinct limiters")
	}
}

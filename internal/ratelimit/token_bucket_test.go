package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := NewTokenBucket(clk, 5, 5)

	if !b.Allow(5) {
		t.Fatalf("expected initial burst to succeed")
	}
	if b.Allow(1) {
		t.Fatalf("expected bucket to be empty")
	}

	clk.Advance(200 * time.Millisecond)
	if !b.Allow(1) {
		t.Fatalf("expected one token after 200ms at 5/s")
	}
	if b.Allow(1) {
		t.Fatalf("expected bucket to be empty again")
	}
}

func TestTokenBucket_ClampsToCapacity(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := NewTokenBucket(clk, 1, 1)

	if !b.Allow(1) {
		t.Fatalf("expected initial token")
	}
	clk.Advance(10 * time.Second)
	if got := b.Available(); got != 1 {
		t.Fatalf("Available()=%d, want 1", got)
	}
	if !b.Allow(1) {
		t.Fatalf("expected refill up to capacity")
	}
	if b.Allow(1) {
		t.Fatalf("expected capacity clamp")
	}
}

func TestTokenBucket_AccumulatesSubMillisecondSteps(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := NewTokenBucket(clk, 1, 1000)

	if !b.Allow(1) {
		t.Fatalf("expected initial token")
	}
	for i := 0; i < 4; i++ {
		clk.Advance(250 * time.Microsecond)
		b.Available()
	}
	if !b.Allow(1) {
		t.Fatalf("expected 1ms of accumulated steps to refill one token at 1000/s")
	}
}

func TestTokenBucket_ClockGoingBackwardsDoesNotRefill(t *testing.T) {
	clk := &fakeClock{now: time.Unix(100, 0)}
	b := NewTokenBucket(clk, 2, 1)

	if !b.Allow(2) {
		t.Fatalf("expected initial burst")
	}
	clk.Advance(-time.Minute)
	if b.Allow(1) {
		t.Fatalf("expected no refill when the clock moves backwards")
	}
	clk.Advance(time.Second)
	if !b.Allow(1) {
		t.Fatalf("expected refill once the clock moves forward again")
	}
}

func TestTokenBucket_ZeroRequestAlwaysAllowed(t *testing.T) {
	b := NewTokenBucket(&fakeClock{now: time.Unix(0, 0)}, 0, 0)
	if !b.Allow(0) {
		t.Fatalf("Allow(0)=false, want true")
	}
	if b.Allow(1) {
		t.Fatalf("Allow(1)=true on a zero-capacity bucket")
	}
}

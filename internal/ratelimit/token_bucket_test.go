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

func TestTokenBucket_BurstAndRefill(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := NewTokenBucket(clk, 5, 5) // burst of 5, 5 requests/sec.

	for i := 0; i < 5; i++ {
		if !b.Allow() {
			t.Fatalf("expected burst request %d to succeed", i)
		}
	}
	if b.Allow() {
		t.Fatalf("expected budget to be spent")
	}

	clk.Advance(200 * time.Millisecond) // one emission interval at 5/sec.
	if !b.Allow() {
		t.Fatalf("expected one request after time advance")
	}
	if b.Allow() {
		t.Fatalf("expected only one request to have been recovered")
	}
}

func TestTokenBucket_DoesNotExceedCapacity(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := NewTokenBucket(clk, 1, 1) // burst of 1.

	if !b.Allow() {
		t.Fatalf("expected initial request")
	}

	clk.Advance(10 * time.Second)
	if !b.Allow() {
		t.Fatalf("expected recovery up to capacity")
	}
	if b.Allow() {
		t.Fatalf("expected capacity clamp (burst of 1)")
	}
}

func TestTokenBucket_SustainedRate(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := NewTokenBucket(clk, 2, 2)

	if !b.Allow() || !b.Allow() {
		t.Fatalf("expected burst of 2")
	}
	if b.Allow() {
		t.Fatalf("expected budget to be spent")
	}

	// At 2 requests/sec, every 500ms admits exactly one more.
	for i := 0; i < 4; i++ {
		clk.Advance(500 * time.Millisecond)
		if !b.Allow() {
			t.Fatalf("expected request %d at the sustained rate", i)
		}
		if b.Allow() {
			t.Fatalf("expected request %d to exhaust the interval", i)
		}
	}
}

func TestTokenBucket_TimeGoingBackwardsDoesNotRefill(t *testing.T) {
	clk := &fakeClock{now: time.Unix(100, 0)}
	b := NewTokenBucket(clk, 2, 2)

	if !b.Allow() || !b.Allow() {
		t.Fatalf("expected initial burst")
	}

	clk.Advance(-50 * time.Second)
	if b.Allow() {
		t.Fatalf("expected no recovery when the clock moves backwards")
	}
}

func TestTokenBucket_ZeroConfigRejects(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	if NewTokenBucket(clk, 0, 5).Allow() {
		t.Fatalf("expected zero capacity to reject")
	}
	if NewTokenBucket(clk, 5, 0).Allow() {
		t.Fatalf("expected zero rate to reject")
	}
}

package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func TestRemoteLimiter_IndependentBudgets(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewRemoteLimiter(clk, 2, 0)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatalf("expected first remote's burst to succeed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("expected first remote to be exhausted")
	}

	// A different remote has its own full bucket.
	if !l.Allow("10.0.0.2") {
		t.Fatalf("expected second remote to be unaffected")
	}

	clk.Advance(500 * time.Millisecond) // 1 token at 2 tokens/sec.
	if !l.Allow("10.0.0.1") {
		t.Fatalf("expected refill for first remote")
	}
}

func TestRemoteLimiter_DisabledAllowsEverything(t *testing.T) {
	l := NewRemoteLimiter(nil, 0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("expected disabled limiter to allow request %d", i)
		}
	}
}

func TestRemoteLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewRemoteLimiter(clk, 1, 2)

	if !l.Allow("a") {
		t.Fatalf("expected a's first request")
	}
	if !l.Allow("b") {
		t.Fatalf("expected b's first request")
	}

	// Touch "a" so "b" is the LRU, then add "c" to force the eviction.
	if l.Allow("a") {
		t.Fatalf("expected a to be exhausted")
	}
	if !l.Allow("c") {
		t.Fatalf("expected c's first request")
	}

	// "b" was evicted; its bucket comes back full.
	if !l.Allow("b") {
		t.Fatalf("expected evicted remote to restart with a full bucket")
	}
	// "a" was retained and stays exhausted.
	if l.Allow("a") {
		t.Fatalf("expected retained remote to keep its spent budget")
	}
}

func TestRemoteLimiter_BoundedState(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewRemoteLimiter(clk, 1, 8)

	for i := 0; i < 100; i++ {
		l.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}

	l.mu.Lock()
	n := len(l.buckets)
	q := l.order.Len()
	l.mu.Unlock()

	if n != 8 || q != 8 {
		t.Fatalf("tracked remotes=%d queue=%d, want 8", n, q)
	}
}

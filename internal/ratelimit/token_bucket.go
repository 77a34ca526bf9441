package ratelimit

import (
	"sync"
	"time"
)

const nanosPerSecond = int64(time.Second)

// TokenBucket enforces an integer requests/sec budget with a burst of
// up to capacity requests, using the virtual-scheduling form of the
// algorithm: rather than counting tokens it tracks the theoretical
// arrival time of the next conforming request. Each request costs one
// emission interval (1/rate second); a request conforms while that
// schedule has not run more than the burst allowance ahead of the
// Clock. A clock that jumps backwards simply makes the schedule look
// further ahead, so it can never mint extra budget.
//
// Rates that do not divide a second evenly are rounded to a whole
// nanosecond per interval, which over-admits by under one request per
// billion.
type TokenBucket struct {
	mu sync.Mutex

	clock Clock

	interval time.Duration // spacing of conforming requests at the sustained rate
	burst    time.Duration // schedule lead allowed: (capacity-1)*interval

	next time.Time // theoretical arrival time of the next request
}

// NewTokenBucket creates a bucket admitting rate requests/sec with a
// burst of capacity. A capacity or rate <= 0 yields a bucket that
// rejects everything; callers that want "unlimited" must not consult a
// bucket at all (see RemoteLimiter).
func NewTokenBucket(clock Clock, capacity, rate int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	b := &TokenBucket{clock: clock, next: clock.Now()}
	if capacity > 0 && rate > 0 {
		interval := nanosPerSecond / rate
		if interval <= 0 {
			interval = 1
		}
		b.interval = time.Duration(interval)
		b.burst = time.Duration(capacity-1) * b.interval
	}
	return b
}

// Allow consumes one request from the budget if it conforms.
func (b *TokenBucket) Allow() bool {
	if b.interval <= 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	next := b.next
	if next.Before(now) {
		next = now
	}
	if next.Sub(now) > b.burst {
		return false
	}
	b.next = next.Add(b.interval)
	return true
}

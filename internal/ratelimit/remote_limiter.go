package ratelimit

import (
	"container/list"
	"sync"
)

// defaultMaxRemotes bounds limiter state when no cap is configured, so an
// address spray cannot grow the bucket map without bound.
const defaultMaxRemotes = 4096

// RemoteLimiter enforces an independent requests/sec budget per remote
// key (normally the caller's IP address). Buckets are kept in an LRU so
// the total number of tracked remotes stays bounded; evicting a bucket
// merely resets that remote's budget to a full burst.
type RemoteLimiter struct {
	clock Clock

	requestsPerSecond int64
	maxRemotes        int

	mu      sync.Mutex
	buckets map[string]*remoteEntry
	order   *list.List
}

type remoteEntry struct {
	bucket *TokenBucket
	elem   *list.Element
}

// NewRemoteLimiter creates a limiter allowing requestsPerSecond per
// remote with an equal burst capacity. requestsPerSecond <= 0 disables
// limiting entirely: Allow always reports true.
func NewRemoteLimiter(clock Clock, requestsPerSecond int64, maxRemotes int) *RemoteLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	if maxRemotes <= 0 {
		maxRemotes = defaultMaxRemotes
	}
	return &RemoteLimiter{
		clock:             clock,
		requestsPerSecond: requestsPerSecond,
		maxRemotes:        maxRemotes,
		buckets:           make(map[string]*remoteEntry),
		order:             list.New(),
	}
}

// Allow reports whether one request from remote fits in its budget.
func (l *RemoteLimiter) Allow(remote string) bool {
	if l.requestsPerSecond <= 0 {
		return true
	}
	return l.bucketFor(remote).Allow()
}

func (l *RemoteLimiter) bucketFor(remote string) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.buckets[remote]; ok {
		l.order.MoveToFront(entry.elem)
		return entry.bucket
	}

	if len(l.buckets) >= l.maxRemotes {
		// Evict the least-recently used remote (oldest at the back).
		if elem := l.order.Back(); elem != nil {
			delete(l.buckets, elem.Value.(string))
			l.order.Remove(elem)
		}
	}

	bucket := NewTokenBucket(l.clock, l.requestsPerSecond, l.requestsPerSecond)
	l.buckets[remote] = &remoteEntry{
		bucket: bucket,
		elem:   l.order.PushFront(remote),
	}
	return bucket
}

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and by single-node dev
// runs without a Redis server. It mirrors the semantics the broker relies
// on: per-key expiry, atomic conditional writes, and blocking tail pops
// that wake on push.
//
// The clock is injectable so expiry behavior can be tested without
// sleeping; blocking pops use wall-clock timeouts regardless.
type MemoryStore struct {
	mu sync.Mutex

	now func() time.Time

	hashes   map[string]map[string]string
	strings  map[string]string
	lists    map[string][]string
	expiries map[string]time.Time

	// waiters maps a list key to a channel closed on the next push.
	waiters map[string]chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		now:      now,
		hashes:   make(map[string]map[string]string),
		strings:  make(map[string]string),
		lists:    make(map[string][]string),
		expiries: make(map[string]time.Time),
		waiters:  make(map[string]chan struct{}),
	}
}

// purgeLocked drops key from every namespace if its TTL has lapsed.
func (s *MemoryStore) purgeLocked(key string) {
	deadline, ok := s.expiries[key]
	if !ok || s.now().Before(deadline) {
		return
	}
	delete(s.expiries, key)
	delete(s.hashes, key)
	delete(s.strings, key)
	delete(s.lists, key)
}

func (s *MemoryStore) HashGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *MemoryStore) HashSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	h := s.hashes[key]
	if h == nil {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (s *MemoryStore) HashSetNX(_ context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	h := s.hashes[key]
	if h == nil {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	if _, exists := h[field]; exists {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (s *MemoryStore) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *MemoryStore) HashDelete(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	for _, f := range fields {
		delete(s.hashes[key], f)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	v, ok := s.strings[key]
	return v, ok, nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if _, exists := s.strings[key]; exists {
		return false, nil
	}
	s.strings[key] = value
	s.expiries[key] = s.now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	if _, ok := s.strings[key]; ok {
		return true, nil
	}
	if l, ok := s.lists[key]; ok && len(l) > 0 {
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if !s.existsLocked(key) {
		return nil
	}
	s.expiries[key] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) existsLocked(key string) bool {
	if _, ok := s.hashes[key]; ok {
		return true
	}
	if _, ok := s.strings[key]; ok {
		return true
	}
	_, ok := s.lists[key]
	return ok
}

func (s *MemoryStore) PushLeft(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	s.lists[key] = append([]string{value}, s.lists[key]...)
	if w, ok := s.waiters[key]; ok {
		close(w)
		delete(s.waiters, key)
	}
	return nil
}

func (s *MemoryStore) PopRight(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popRightLocked(key)
}

func (s *MemoryStore) popRightLocked(key string) (string, bool, error) {
	s.purgeLocked(key)
	l := s.lists[key]
	if len(l) == 0 {
		return "", false, nil
	}
	v := l[len(l)-1]
	if len(l) == 1 {
		delete(s.lists, key)
		delete(s.expiries, key)
	} else {
		s.lists[key] = l[:len(l)-1]
	}
	return v, true, nil
}

func (s *MemoryStore) BlockingPopRight(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if v, ok, _ := s.popRightLocked(key); ok {
			s.mu.Unlock()
			return v, true, nil
		}
		w, ok := s.waiters[key]
		if !ok {
			w = make(chan struct{})
			s.waiters[key] = w
		}
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-w:
			timer.Stop()
			// A concurrent consumer may win the race for the pushed element;
			// loop and re-check.
		case <-timer.C:
			return "", false, nil
		case <-ctx.Done():
			timer.Stop()
			return "", false, nil
		}
	}
}

func (s *MemoryStore) PopRightCount(_ context.Context, key string, count int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for len(out) < count {
		v, ok, _ := s.popRightLocked(key)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

package store

import (
	"context"
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

func TestMemoryStore_ListFIFO(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, v := range []string{"m1", "m2", "m3"} {
		if err := s.PushLeft(ctx, "q", v); err != nil {
			t.Fatalf("PushLeft: %v", err)
		}
	}

	want := []string{"m1", "m2", "m3"}
	for _, w := range want {
		v, ok, err := s.PopRight(ctx, "q")
		if err != nil || !ok {
			t.Fatalf("PopRight: ok=%v err=%v", ok, err)
		}
		if v != w {
			t.Fatalf("PopRight = %q, want %q", v, w)
		}
	}
	if _, ok, _ := s.PopRight(ctx, "q"); ok {
		t.Fatalf("expected empty list")
	}
}

func TestMemoryStore_PopRightCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, v := range []string{"a", "b", "c"} {
		_ = s.PushLeft(ctx, "q", v)
	}

	got, err := s.PopRightCount(ctx, "q", 2)
	if err != nil {
		t.Fatalf("PopRightCount: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("PopRightCount = %v, want [a b]", got)
	}

	got, err = s.PopRightCount(ctx, "q", 10)
	if err != nil {
		t.Fatalf("PopRightCount: %v", err)
	}
	if len(got) != 1 || got[0] != "c" {
		t.Fatalf("PopRightCount = %v, want [c]", got)
	}

	got, err = s.PopRightCount(ctx, "q", 10)
	if err != nil {
		t.Fatalf("PopRightCount: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty drain, got %v", got)
	}
}

func TestMemoryStore_BlockingPopTimesOut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	start := time.Now()
	_, ok, err := s.BlockingPopRight(ctx, "empty", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("BlockingPopRight: %v", err)
	}
	if ok {
		t.Fatalf("expected timeout, got a value")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestMemoryStore_BlockingPopWakesOnPush(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	done := make(chan string, 1)
	go func() {
		v, ok, err := s.BlockingPopRight(ctx, "q", 5*time.Second)
		if err != nil || !ok {
			done <- ""
			return
		}
		done <- v
	}()

	// Give the consumer a moment to block before pushing.
	time.Sleep(10 * time.Millisecond)
	if err := s.PushLeft(ctx, "q", "hello"); err != nil {
		t.Fatalf("PushLeft: %v", err)
	}

	select {
	case v := <-done:
		if v != "hello" {
			t.Fatalf("blocking pop = %q, want %q", v, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("blocking pop did not wake on push")
	}
}

func TestMemoryStore_BlockingPopHonorsContext(t *testing.T) {
	s := NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, ok, err := s.BlockingPopRight(ctx, "empty", 5*time.Second)
	if err != nil || ok {
		t.Fatalf("BlockingPopRight: ok=%v err=%v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation not honored, blocked for %v", elapsed)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(1000, 0)}
	s := NewMemoryStoreWithClock(clk.Now)

	if err := s.HashSet(ctx, "sessions:red fox jumps", map[string]string{"host_secret": "s1"}); err != nil {
		t.Fatalf("HashSet: %v", err)
	}
	if err := s.Expire(ctx, "sessions:red fox jumps", 600*time.Second); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	if ok, _ := s.Exists(ctx, "sessions:red fox jumps"); !ok {
		t.Fatalf("expected key before expiry")
	}

	clk.Advance(599 * time.Second)
	if ok, _ := s.Exists(ctx, "sessions:red fox jumps"); !ok {
		t.Fatalf("expected key just before deadline")
	}

	clk.Advance(2 * time.Second)
	if ok, _ := s.Exists(ctx, "sessions:red fox jumps"); ok {
		t.Fatalf("expected key to expire")
	}
	if _, ok, _ := s.HashGet(ctx, "sessions:red fox jumps", "host_secret"); ok {
		t.Fatalf("expected fields to expire with the key")
	}
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(0, 0)}
	s := NewMemoryStoreWithClock(clk.Now)

	set, err := s.SetNX(ctx, "k", "v1", time.Minute)
	if err != nil || !set {
		t.Fatalf("first SetNX: set=%v err=%v", set, err)
	}
	set, err = s.SetNX(ctx, "k", "v2", time.Minute)
	if err != nil || set {
		t.Fatalf("second SetNX should not overwrite: set=%v err=%v", set, err)
	}
	v, ok, _ := s.Get(ctx, "k")
	if !ok || v != "v1" {
		t.Fatalf("Get = %q ok=%v, want v1", v, ok)
	}

	// After expiry the key is claimable again.
	clk.Advance(2 * time.Minute)
	set, err = s.SetNX(ctx, "k", "v2", time.Minute)
	if err != nil || !set {
		t.Fatalf("SetNX after expiry: set=%v err=%v", set, err)
	}
}

func TestMemoryStore_HashSetNX(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	set, err := s.HashSetNX(ctx, "h", "f", "v1")
	if err != nil || !set {
		t.Fatalf("first HashSetNX: set=%v err=%v", set, err)
	}
	set, err = s.HashSetNX(ctx, "h", "f", "v2")
	if err != nil || set {
		t.Fatalf("second HashSetNX should lose: set=%v err=%v", set, err)
	}
	v, ok, _ := s.HashGet(ctx, "h", "f")
	if !ok || v != "v1" {
		t.Fatalf("HashGet = %q ok=%v, want v1", v, ok)
	}
}

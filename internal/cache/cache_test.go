package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrLoadCachesWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New[int]()
	c.now = func() time.Time { return now }

	var calls int32
	loader := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader)
		if err != nil {
			t.Fatalf("GetOrLoad should succeed: %v", err)
		}
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("loader should run once, ran %d times", got)
	}
}

func TestGetOrLoadReloadsAfterExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New[int]()
	c.now = func() time.Time { return now }

	var calls int32
	loader := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	if v, _ := c.GetOrLoad(context.Background(), "k", time.Minute, loader); v != 1 {
		t.Fatalf("first load should return 1, got %d", v)
	}

	now = now.Add(59 * time.Second)
	if v, _ := c.GetOrLoad(context.Background(), "k", time.Minute, loader); v != 1 {
		t.Fatalf("value should still be cached, got %d", v)
	}

	now = now.Add(2 * time.Second)
	if v, _ := c.GetOrLoad(context.Background(), "k", time.Minute, loader); v != 2 {
		t.Fatalf("expired entry should reload, got %d", v)
	}
}

func TestGetOrLoadCoalescesConcurrentCallers(t *testing.T) {
	c := New[string]()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	loader := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return "value", nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]string, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrLoad(context.Background(), "k", time.Minute, loader)
		}(i)
	}

	<-started
	// Give the remaining goroutines time to queue on the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d failed: %v", i, errs[i])
		}
		if results[i] != "value" {
			t.Fatalf("waiter %d got %q", i, results[i])
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("coalesced load should run once, ran %d times", got)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[int]()

	boom := errors.New("boom")
	var calls int32
	loader := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, boom
		}
		return 7, nil
	}

	if _, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader); !errors.Is(err, boom) {
		t.Fatalf("first load should fail with boom, got %v", err)
	}
	v, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader)
	if err != nil {
		t.Fatalf("second load should succeed: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int]()

	var calls int32
	loader := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	if v, _ := c.GetOrLoad(context.Background(), "k", time.Minute, loader); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	c.Invalidate("k")
	if v, _ := c.GetOrLoad(context.Background(), "k", time.Minute, loader); v != 2 {
		t.Fatalf("invalidated key should reload, got %d", v)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[int]()

	var calls int32
	loader := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	keys := []string{"details:A:1", "details:A:2", "other:A"}
	for _, k := range keys {
		if _, err := c.GetOrLoad(context.Background(), k, time.Minute, loader); err != nil {
			t.Fatalf("prime %s: %v", k, err)
		}
	}

	c.InvalidatePrefix("details:A:")

	before := atomic.LoadInt32(&calls)
	if _, err := c.GetOrLoad(context.Background(), "other:A", time.Minute, loader); err != nil {
		t.Fatalf("other:A: %v", err)
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatal("unmatched key should stay cached")
	}

	if _, err := c.GetOrLoad(context.Background(), "details:A:1", time.Minute, loader); err != nil {
		t.Fatalf("details:A:1: %v", err)
	}
	if atomic.LoadInt32(&calls) != before+1 {
		t.Fatal("matched key should have been dropped")
	}
}

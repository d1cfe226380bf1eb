package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSetExpiry(t *testing.T) {
	c := New[string](time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("entry should still be fresh")
	}
	now = now.Add(time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read")
	}
}

func TestSweepAndDeleteContaining(t *testing.T) {
	c := New[int](time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("tok-a GET /bookings?page=1", 1)
	c.Set("tok-b GET /bookings?page=2", 2)
	c.Set("tok-a GET /users", 3)
	if n := c.DeleteContaining("/bookings"); n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	now = now.Add(2 * time.Minute)
	c.Set("/schedules", 4)
	if n := c.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if _, ok := c.Get("/schedules"); !ok {
		t.Fatalf("fresh entry should survive sweep")
	}
}

func TestGetOrLoadCoalesces(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", load)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected 1 load, got %d", calls.Load())
	}
	for _, v := range results {
		if v != 7 {
			t.Fatalf("unexpected result %d", v)
		}
	}
	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		t.Fatalf("cached value should be served")
		return 0, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")
	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Fatalf("expected reload, got %d %v", v, err)
	}
}

func TestGetOrLoadSurvivesFirstCallerCancel(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 9, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(firstCtx, "k", load)
		firstErr <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "k", load)
		if err != nil {
			t.Errorf("second caller failed: %v", err)
		}
		second <- v
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller should see its own cancellation, got %v", err)
	}
	close(release)
	if v := <-second; v != 9 {
		t.Fatalf("expected shared value 9, got %d", v)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 load, got %d", calls.Load())
	}
	if v, ok := c.Get("k"); !ok || v != 9 {
		t.Fatalf("value should be cached after the shared load")
	}
}

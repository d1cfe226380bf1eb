package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 2 * time.Minute

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is an in-memory response cache. Entries expire after the configured TTL and
// concurrent loads of the same key share one call.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]
	group   singleflight.Group
	now     func() time.Time

	OnHit  func()
	OnMiss func()
}

func New[V any](ttl time.Duration) *TTL[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTL[V]{ttl: ttl, entries: make(map[string]entry[V]), now: time.Now}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// DeleteContaining drops every entry whose key contains part.
func (c *TTL[V]) DeleteContaining(part string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.entries {
		if strings.Contains(key, part) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Sweep removes expired entries.
func (c *TTL[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrLoad returns the cached value for key or calls load once for all concurrent
// callers. The shared load runs detached from any single caller's cancellation; a
// caller whose ctx ends stops waiting without failing the others. Load errors are
// not cached.
func (c *TTL[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		if c.OnHit != nil {
			c.OnHit()
		}
		return v, nil
	}
	if c.OnMiss != nil {
		c.OnMiss()
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

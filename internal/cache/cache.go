// Package cache holds small byte caches used to avoid recomputing read-mostly results.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is satisfied by Memory and Redis. Misses and backend failures both report ok=false.
//
// Entries are never deleted to invalidate them. Callers fold a version into the
// key and Bump it instead, so a result computed before a bump is written under
// a key nobody reads any more.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	// Version returns the counter stored at key, 0 if it was never bumped.
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) error
}

// Memory is process-local; use it only where a single process owns the data.
type Memory struct {
	mu       sync.RWMutex
	ttl      time.Duration
	m        map[string]entry
	versions map[string]int64
	now      func() time.Time
}

type entry struct {
	val []byte
	exp time.Time
}

func New(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl:      ttl,
		m:        make(map[string]entry),
		versions: make(map[string]int64),
		now:      time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *Memory) Set(_ context.Context, key string, val []byte) {
	c.mu.Lock()
	c.m[key] = entry{val: val, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Memory) Version(_ context.Context, key string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.versions[key], nil
}

// Bump also drops the entries that expired, since old versions are never read again.
func (c *Memory) Bump(_ context.Context, key string) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.versions[key]++

	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
		}
	}

	return nil
}

package cache

import (
	"context"
	"sync"
	"time"
)

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewMemoryCache returns an in-process TTL cache. A background janitor
// sweeps expired entries at ttl/2 intervals.
func NewMemoryCache(ttl time.Duration) ProcessedCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &memoryCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *memoryCache) MarkProcessed(_ context.Context, id string) {
	c.mu.Lock()
	c.entries[id] = time.Now().Add(c.ttl)
	c.mu.Unlock()
}

func (c *memoryCache) IsProcessed(_ context.Context, id string) bool {
	c.mu.RLock()
	expiry, ok := c.entries[id]
	c.mu.RUnlock()
	return ok && time.Now().Before(expiry)
}

func (c *memoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]time.Time)
	c.mu.Unlock()
}

func (c *memoryCache) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *memoryCache) janitor() {
	interval := c.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for id, expiry := range c.entries {
				if now.After(expiry) {
					delete(c.entries, id)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// ABOUTME: TTL cache for deduplicating chat events
// ABOUTME: Re-delivered sync events are processed at most once per TTL window

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen event keys. Matrix sync can re-deliver events
// after reconnects, so command handling checks here before acting.
type Cache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	done   chan struct{}
	closed bool
}

// New creates a cache whose entries expire after ttl. A background goroutine
// sweeps expired entries once per ttl.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go c.sweep()
	return c
}

// CheckAndMark atomically reports whether the key was already seen within
// the TTL, marking it as seen if not.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seen, ok := c.seen[key]; ok && time.Since(seen) < c.ttl {
		return true
	}
	c.seen[key] = time.Now()
	return false
}

// Close stops the background sweeper. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, seen := range c.seen {
				if now.Sub(seen) >= c.ttl {
					delete(c.seen, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

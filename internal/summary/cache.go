// Package summary holds the process-local cache for generated thread
// summaries. Summaries are cheaply regenerable, so when multiple server
// instances run, each keeps its own cache; no cross-instance invalidation
// is attempted.
package summary

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached summary stays valid, measured from
// insertion. There is no sliding expiry: reads do not extend the lifetime.
const DefaultTTL = 60 * time.Second

type entry struct {
	bullets  []string
	insertAt time.Time
}

// Cache stores summary bullets keyed by (thread, intent filter). It is
// shared across all callers in the process, so entries must only ever hold
// thread-scoped content, never anything user-specific.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(threadID, intentFilter string) string {
	return threadID + ":" + intentFilter
}

// Get returns the cached bullets for the key, or ok=false on a miss.
// Expired entries are purged here, on lookup, rather than by a sweeper.
func (c *Cache) Get(threadID, intentFilter string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(threadID, intentFilter)
	e, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if c.now().Sub(e.insertAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	// Copy so callers cannot mutate the stored entry through the result.
	bullets := make([]string, len(e.bullets))
	copy(bullets, e.bullets)
	return bullets, true
}

// Put stores bullets under the key, restarting the TTL.
func (c *Cache) Put(threadID, intentFilter string, bullets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(threadID, intentFilter)] = entry{
		bullets:  bullets,
		insertAt: c.now(),
	}
}

// Invalidate drops the entry regardless of its age. Used by the manual
// refresh action to force regeneration before the TTL runs out.
func (c *Cache) Invalidate(threadID, intentFilter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(threadID, intentFilter))
}

// Len reports the number of stored entries, including any not yet purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

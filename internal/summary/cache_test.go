package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock lets tests advance time explicitly.
type manualClock struct {
	t time.Time
}

func (m *manualClock) Now() time.Time          { return m.t }
func (m *manualClock) Advance(d time.Duration) { m.t = m.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *manualClock) {
	clock := &manualClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCache(ttl)
	c.now = clock.Now
	return c, clock
}

func TestCachePutThenGet(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)

	bullets := []string{"Team decided to ship Friday"}
	c.Put("t1", "All", bullets)

	got, ok := c.Get("t1", "All")
	require.True(t, ok)
	assert.Equal(t, bullets, got)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)

	_, ok := c.Get("t1", "All")
	assert.False(t, ok)
}

func TestCacheKeysAreFilterScoped(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)

	c.Put("t1", "All", []string{"a"})

	_, ok := c.Get("t1", "Decision")
	assert.False(t, ok, "different filter must be a different key")

	_, ok = c.Get("t2", "All")
	assert.False(t, ok, "different thread must be a different key")
}

func TestCacheExpiryPurgesEntry(t *testing.T) {
	c, clock := newTestCache(DefaultTTL)

	c.Put("t1", "All", []string{"a"})

	clock.Advance(59 * time.Second)
	_, ok := c.Get("t1", "All")
	assert.True(t, ok, "entry should still be valid just under the TTL")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("t1", "All")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry should be purged on lookup")
}

func TestCacheNoSlidingExpiry(t *testing.T) {
	c, clock := newTestCache(DefaultTTL)

	c.Put("t1", "All", []string{"a"})

	// Repeated reads must not extend the lifetime.
	for i := 0; i < 5; i++ {
		clock.Advance(11 * time.Second)
		c.Get("t1", "All")
	}

	clock.Advance(10 * time.Second)
	_, ok := c.Get("t1", "All")
	assert.False(t, ok)
}

func TestCacheInvalidateBypassesTTL(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)

	c.Put("t1", "All", []string{"a"})
	c.Invalidate("t1", "All")

	_, ok := c.Get("t1", "All")
	assert.False(t, ok)
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)

	c.Put("t1", "All", []string{"a", "b"})

	got, ok := c.Get("t1", "All")
	require.True(t, ok)
	got[0] = "mutated"

	again, ok := c.Get("t1", "All")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, again, "mutating a result must not touch the stored entry")
}

func TestCachePutRestartsTTL(t *testing.T) {
	c, clock := newTestCache(DefaultTTL)

	c.Put("t1", "All", []string{"old"})
	clock.Advance(50 * time.Second)
	c.Put("t1", "All", []string{"new"})
	clock.Advance(50 * time.Second)

	got, ok := c.Get("t1", "All")
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, got)
}

package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/clock"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
)

// TTLCache is a map-backed Cache. Expired entries are purged lazily whenever
// they are looked at and by an optional periodic sweep, so an expired value
// is never returned even if the sweep has not run yet.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	defaultTTL    time.Duration
	sweepInterval time.Duration
	clock         clock.Clock

	hits   uint64
	misses uint64

	stopOnce sync.Once
	stop     chan struct{}
}

// entry holds a stored value with its creation time and max-age.
type entry struct {
	value     any
	createdAt time.Time
	maxAge    time.Duration
}

// expired reports whether now - createdAt > maxAge.
func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.maxAge
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithDefaultTTL sets the max-age used when Set is given ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *TTLCache) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithSweepInterval sets how often the janitor removes expired entries.
// Zero disables the janitor.
func WithSweepInterval(d time.Duration) Option {
	return func(c *TTLCache) {
		c.sweepInterval = d
	}
}

// WithClock sets the time source.
func WithClock(cl clock.Clock) Option {
	return func(c *TTLCache) {
		if cl != nil {
			c.clock = cl
		}
	}
}

// NewTTL creates an empty cache.
func NewTTL(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries:    make(map[string]*entry),
		defaultTTL: DefaultTTL,
		clock:      clock.Real{},
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache by key.
func (c *TTLCache) Get(key string) (any, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		c.misses++
		return nil, false
	}
	if e.expired(now) {
		c.remove(key)
		metrics.ResultCacheExpired.Inc()
		c.misses++
		return nil, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key, replacing any existing entry.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = &entry{
		value:     value,
		createdAt: c.clock.Now(),
		maxAge:    ttl,
	}
	n := len(c.entries)
	c.mu.Unlock()

	metrics.ResultCacheItems.Set(float64(n))
}

// Delete removes key. Deleting an unknown key is a no-op.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	c.remove(key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	metrics.ResultCacheItems.Set(0)
}

// Stats returns the live entries and hit/miss counters. Expired entries are
// purged before counting.
func (c *TTLCache) Stats() Stats {
	c.DeleteExpired()

	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	stats := Stats{
		Size:   len(keys),
		Hits:   c.hits,
		Misses: c.misses,
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	stats.Keys = keys
	return stats
}

// DeleteExpired removes every expired entry and returns how many were removed.
func (c *TTLCache) DeleteExpired() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			c.remove(k)
			removed++
		}
	}
	if removed > 0 {
		metrics.ResultCacheExpired.Add(float64(removed))
	}
	return removed
}

// remove must be called with mu held.
func (c *TTLCache) remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	metrics.ResultCacheItems.Set(float64(len(c.entries)))
}

package cache

import "time"

// DefaultTTL is the max-age applied when Set is called with ttl <= 0 and no
// other default was configured.
const DefaultTTL = 5 * time.Minute

// Cache defines the interface for a keyed store of computed values with a
// per-entry time-to-live.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns the value and true if found and not expired, otherwise nil and false.
	Get(key string) (any, bool)

	// Set stores a value in the cache with the given key and TTL.
	// TTL of 0 means use the default cache TTL.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Size   int      `json:"size"`   // Current number of live entries
	Keys   []string `json:"keys"`   // Live keys, sorted
	Hits   uint64   `json:"hits"`   // Total cache hits
	Misses uint64   `json:"misses"` // Total cache misses
}

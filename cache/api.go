package cache

// Key identifies one cached artifact: the resolved resource locator plus the
// display label it was rendered with. Two keys with the same locator but
// different labels are distinct entries.
type Key struct {
	Locator string
	Label   string
}

// String renders the key for logs and metrics labels.
func (k Key) String() string { return k.Locator + "|" + k.Label }

// Cache is the store interface consumed by the fetch/preload/display layers.
// All methods are safe for concurrent use by multiple goroutines.
type Cache[V any] interface {
	// Get returns the artifact for k and a presence flag. Expired entries
	// count as misses and are dropped on access.
	Get(k Key) (V, bool)

	// Contains reports whether a fresh entry for k is resident without
	// touching the hit/miss counters. Used by the preloader's dedup probe.
	Contains(k Key) bool

	// Put stamps the current time, inserts or fully replaces the entry for
	// k, and then sweeps (TTL expiry plus trim to capacity).
	Put(k Key, v V)

	// Invalidate removes the entry for k if present. Used by the reload and
	// retry paths; not counted as an eviction in metrics.
	Invalidate(k Key) bool

	// Len returns the number of resident entries.
	Len() int

	// Close stops the pressure monitor (if running) and marks the store
	// closed. Further operations are ignored.
	Close() error
}

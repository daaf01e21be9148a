// Package cache provides the bounded, time-aware store of rendered preview
// artifacts, keyed by (locator, label).
//
// Design
//
//   - Keys: a Key is the resolved resource locator plus the caller-supplied
//     display label. The label participates in the key even though it does
//     not change the drawn pixels: callers using different labels for the
//     same locator get independent entries on purpose.
//
//   - Storage: one map[Key]*entry for lookups and an intrusive doubly linked
//     list ordered by write time (head = newest, tail = oldest). All
//     operations are O(1) except sweeps, which walk from the tail.
//
//   - Eviction: strictly oldest-first by write stamp. Put re-stamps and fully
//     replaces any prior entry for the same key, then sweeps: TTL-expired
//     entries are dropped first, then the store is trimmed to Capacity.
//
//   - Pressure: on constrained engines a periodic monitor applies tiered
//     eviction independent of individual puts — at >=80% occupancy trim to
//     capacity, at >=60% drop the oldest half, at >=40% drop the oldest 30%.
//     The monitor is inert on unconstrained profiles.
//
//   - TTL: entries older than Options.TTL (45 minutes by default) are
//     dropped regardless of size pressure.
//
//   - Atomicity: an entry becomes visible only once fully constructed; a
//     reader never observes a partial entry. All mutation happens under one
//     mutex, so the store is safe for concurrent use.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; plug the Prometheus adapter to export them.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every eviction
//     (reason is one of EvictTTL, EvictCapacity, EvictPressure).
//
// Basic usage
//
//	s := cache.New[*render.Artifact](cache.Options[*render.Artifact]{Capacity: 30})
//	s.Put(cache.Key{Locator: "https://…/photo.jpg", Label: "PREVIEW"}, art)
//	if a, ok := s.Get(cache.Key{Locator: "https://…/photo.jpg", Label: "PREVIEW"}); ok {
//		_ = a
//	}
//	_ = s.Close()
package cache

package cache

import "time"

// DefaultTTL is the age after which an entry is dropped regardless of size
// pressure.
const DefaultTTL = 45 * time.Minute

// DefaultMonitorInterval is how often the pressure monitor runs on
// constrained profiles.
const DefaultMonitorInterval = 30 * time.Second

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the store behavior. Zero values are safe;
// defaults are applied in New():
//   - TTL == 0              => DefaultTTL (negative disables expiry)
//   - MonitorInterval == 0  => DefaultMonitorInterval
//   - nil Metrics           => NoopMetrics
type Options[V any] struct {
	// Capacity is the entry count limit; the store is trimmed to it on
	// every sweep. Must be > 0.
	Capacity int

	// TTL is the maximum entry age. 0 means DefaultTTL; a negative value
	// disables expiry.
	TTL time.Duration

	// Constrained activates the tiered pressure monitor. The monitor runs
	// on its own ticker, independent of individual puts.
	Constrained bool

	// MonitorInterval is the pressure monitor period (constrained only).
	MonitorInterval time.Duration

	// OnEvict is called for every eviction under the store lock; keep
	// callbacks lightweight.
	OnEvict func(k Key, v V, reason EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals. Nil => NoopMetrics.
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}

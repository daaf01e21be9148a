package cache

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictTTL — the entry outlived Options.TTL.
	EvictTTL EvictReason = iota
	// EvictCapacity — removed while trimming the store to Capacity.
	EvictCapacity
	// EvictPressure — removed by the tiered memory-pressure monitor.
	EvictPressure
)

// Metrics exposes store-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(entries int)  {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}

package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/previewcache/internal/util"
)

// Store is the bounded, time-aware artifact store. Entries are ordered by
// write stamp in an intrusive list (head = newest, tail = oldest); every
// trim removes entries in strictly increasing age order.
type Store[V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[Key]*entry[V]
	head *entry[V] // newest
	tail *entry[V] // oldest
	len  int

	opt    Options[V]
	closed atomic.Bool
	stop   chan struct{} // pressure monitor stop signal; nil when inert

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

// Stats is a diagnostics snapshot, consumed by tests and operators rather
// than business logic.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// New constructs a Store with the provided Options.
// On constrained profiles it also starts the pressure monitor goroutine;
// call Close to stop it.
func New[V any](opt Options[V]) *Store[V] {
	if opt.Capacity <= 0 {
		panic("Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.TTL == 0 {
		opt.TTL = DefaultTTL
	}
	if opt.MonitorInterval <= 0 {
		opt.MonitorInterval = DefaultMonitorInterval
	}

	s := &Store[V]{
		m:   make(map[Key]*entry[V], opt.Capacity),
		opt: opt,
	}
	if opt.Constrained {
		s.stop = make(chan struct{})
		go s.monitor()
	}
	return s
}

// Get returns the artifact for k and a presence flag. An expired entry is
// evicted on access and reported as a miss.
func (s *Store[V]) Get(k Key) (V, bool) {
	var zero V
	if s.closed.Load() {
		return zero, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		return zero, false
	}
	if s.expiredLocked(e) {
		s.evictLocked(e, EvictTTL)
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		return zero, false
	}
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return e.val, true
}

// Contains reports whether a fresh entry for k is resident. It does not
// touch the hit/miss counters and does not evict expired entries.
func (s *Store[V]) Contains(k Key) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	return ok && !s.expiredLocked(e)
}

// Put stamps the current time and inserts or fully replaces the entry for k,
// then sweeps: TTL-expired entries are dropped and the store is trimmed back
// to Capacity. The entry becomes visible atomically.
func (s *Store[V]) Put(k Key, v V) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Full replace: the old entry is unlinked, the new one is stamped and
	// inserted at the head, so ordering stays strictly by write time.
	if old, ok := s.m[k]; ok {
		s.unlinkLocked(old)
		delete(s.m, k)
	}
	e := &entry[V]{key: k, val: v, createdAt: s.now()}
	s.m[k] = e
	s.pushFrontLocked(e)

	s.sweepLocked()
}

// Invalidate removes the entry for k if present. Not counted as an eviction.
func (s *Store[V]) Invalidate(k Key) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[k]
	if !ok {
		return false
	}
	s.unlinkLocked(e)
	delete(s.m, k)
	s.opt.Metrics.Size(s.len)
	return true
}

// Len returns the number of resident entries.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len
}

// Stats returns a diagnostics snapshot of counters and occupancy.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	entries := s.len
	s.mu.Unlock()
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evicts.Load(),
		Entries:   entries,
	}
}

// Close stops the pressure monitor and marks the store closed.
// Further operations are ignored.
func (s *Store[V]) Close() error {
	if s.closed.CompareAndSwap(false, true) && s.stop != nil {
		close(s.stop)
	}
	return nil
}

// -------------------- internals (mu held) --------------------

func (s *Store[V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

func (s *Store[V]) expiredLocked(e *entry[V]) bool {
	if s.opt.TTL < 0 {
		return false
	}
	return s.now()-e.createdAt > int64(s.opt.TTL)
}

// pushFrontLocked inserts e as the newest entry in O(1).
func (s *Store[V]) pushFrontLocked(e *entry[V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
	s.len++
}

// unlinkLocked removes e from the list and updates counters in O(1).
func (s *Store[V]) unlinkLocked(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	s.len--
}

// evictLocked removes the entry, updates metrics, and calls OnEvict.
func (s *Store[V]) evictLocked(e *entry[V], reason EvictReason) {
	s.unlinkLocked(e)
	delete(s.m, e.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Callbacks run under the lock; keep them lightweight.
		cb(e.key, e.val, reason)
	}
}

// sweepLocked drops expired entries and trims the store to Capacity,
// oldest first.
func (s *Store[V]) sweepLocked() {
	if s.opt.TTL >= 0 {
		for s.tail != nil && s.expiredLocked(s.tail) {
			s.evictLocked(s.tail, EvictTTL)
		}
	}
	for s.len > s.opt.Capacity {
		s.evictLocked(s.tail, EvictCapacity)
	}
	s.opt.Metrics.Size(s.len)
}

// dropOldestLocked evicts n entries from the tail with the given reason.
func (s *Store[V]) dropOldestLocked(n int, reason EvictReason) {
	for i := 0; i < n && s.tail != nil; i++ {
		s.evictLocked(s.tail, reason)
	}
	s.opt.Metrics.Size(s.len)
}

package cache

import (
	"math"
	"time"
)

// Occupancy tiers for the pressure monitor, as fractions of Capacity.
// Tiers are evaluated top-down; the first match applies.
const (
	pressureTrimAt = 0.8 // trim back to Capacity
	pressureHalfAt = 0.6 // drop the oldest 50%
	pressureCutAt  = 0.4 // drop the oldest 30%

	pressureCutFraction = 0.3
)

// monitor runs the tiered pressure checks on a fixed ticker until Close.
// Only started on constrained profiles.
func (s *Store[V]) monitor() {
	t := time.NewTicker(s.opt.MonitorInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.pressureSweep()
		}
	}
}

// pressureSweep applies the first matching occupancy tier. It also drops
// TTL-expired entries so an idle session still ages out.
func (s *Store[V]) pressureSweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opt.TTL >= 0 {
		for s.tail != nil && s.expiredLocked(s.tail) {
			s.evictLocked(s.tail, EvictTTL)
		}
	}

	ratio := float64(s.len) / float64(s.opt.Capacity)
	switch {
	case ratio >= pressureTrimAt:
		s.dropOldestLocked(s.len-s.opt.Capacity, EvictPressure)
	case ratio >= pressureHalfAt:
		s.dropOldestLocked((s.len+1)/2, EvictPressure)
	case ratio >= pressureCutAt:
		s.dropOldestLocked(int(math.Ceil(float64(s.len)*pressureCutFraction)), EvictPressure)
	}
	s.opt.Metrics.Size(s.len)
}

// Package util contains internal helpers shared by the pipeline packages.
package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a reasonable default for most modern CPUs.
// std has runtime/internal/sys.CacheLineSize but it's unexported.
const CacheLineSize = 64

// CacheLinePad separates groups of hot fields into distinct cache lines to
// reduce false sharing. Place between a mutex-guarded region and counters.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedAtomicUint64 is an atomic uint64 padded to exactly one cache line.
// The store's hit/miss/eviction counters are updated from many goroutines;
// padding keeps them from sharing a line with each other or the lock.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte // 8 = size of uint64; pad to 64 bytes
}

// Compile-time size check (must be exactly one cache line).
var _ [CacheLineSize - int(unsafe.Sizeof(PaddedAtomicUint64{}))]byte

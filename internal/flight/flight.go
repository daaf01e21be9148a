// Package flight implements the in-flight registry: concurrent requests for
// the same key are coalesced so that the underlying fetch/render pipeline
// runs at most once per key at a time.
package flight

import (
	"context"
	"sync"
)

// Group coalesces concurrent function calls for the same key K so that
// the supplied fn is executed at most once. Other concurrent callers
// attach to the same outcome and wait for the shared result.
//
// Concurrency notes:
//   - The first caller for a given key becomes the leader and runs fn.
//   - Followers wait on the call's done channel. Publishing (val, err)
//     happens-before close(done), so reads after <-done observe the
//     final values.
//   - Cancelling ctx in a follower unblocks only that follower; it does
//     NOT cancel the leader's fn. The leader's outcome may still land in
//     the cache, which is deliberate: a superseded key is often requested
//     again shortly after.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do runs fn once for the given key. Concurrent calls with the same key
// wait for the shared result. If ctx is cancelled in a follower, that
// follower returns ctx.Err() while the leader continues to run fn.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	c, leader := g.join(key)
	if !leader {
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	// Leader path: run fn outside the lock, publish, then clear the
	// in-flight marker so a later request for the key starts fresh.
	c.val, c.err = fn()
	close(c.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return c.val, c.err
}

// join returns the call for key, creating one (and electing the caller as
// leader) when none is in flight.
func (g *Group[K, V]) join(key K) (*call[V], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		return c, false
	}
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	return c, true
}

// Leading reports whether a call for key is currently in flight.
func (g *Group[K, V]) Leading(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

// Count returns the number of keys currently in flight.
// Exposed for diagnostics; see the preview package's Stats.
func (g *Group[K, V]) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

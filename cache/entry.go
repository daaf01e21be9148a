package cache

// entry is an intrusive doubly linked list element owned by the store.
// It carries the key/value alongside list links and the write stamp used
// for oldest-first eviction and TTL expiry.
type entry[V any] struct {
	key Key
	val V

	// Intrusive list links: head is newest, tail is oldest.
	prev *entry[V]
	next *entry[V]

	// createdAt is the absolute write stamp in UnixNano. Entries are
	// immutable after insertion; Put replaces the whole entry instead of
	// re-stamping in place.
	createdAt int64
}

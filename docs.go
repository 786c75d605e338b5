// Package quickleaf implements a capacity-bounded, single-owner,
// in-process key/value cache with FIFO eviction, per-entry TTL, an
// ordered-listing query surface, a mutation event stream, and an
// optional SQLite write-behind durable store.
//
// Reinsertion is a no-op when the stored value is already equal under
// the tag-sensitive Value.Equal, regardless of whether the existing
// entry has already expired: InsertWithTTL("k", v, ttl) followed immediately by
// Insert("k", v) does not refresh created_at, does not reset the TTL
// clock, and does not count as the "new key" that would trigger FIFO
// eviction at capacity. Only a value that differs under Value.Equal
// is treated as a real write.
package quickleaf

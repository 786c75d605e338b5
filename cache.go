package quickleaf

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/armon/go-radix"
	"github.com/rs/zerolog"

	"github.com/phlowdotdev/quickleaf/store"
)

/*
Cache is a capacity-bounded, in-process key/value store with FIFO
eviction, per-entry TTL, and an ordered-listing query surface (3).

It generalizes the teacher's map+list LRU (tempuscache's cache.go) in
three ways: eviction order is insertion order rather than recency
(Get never reorders, 4.A), expiration is per-entry rather than
cache-wide, and lookups by key order are served from a radix index
(index) kept in lockstep with data rather than re-sorted on demand.

CONCURRENCY MODEL (5): Cache has no internal mutex. It is built for a
single owning goroutine, matching the original's !Send design ported
faithfully rather than papered over with a sync.RWMutex the teacher
happened to reach for. The only goroutines it starts — the fan-out
loop and the store's Worker — never touch data or index; they operate
on the event channel and the separate SQL file respectively.
*/
type Cache struct {
	data     *orderedMap
	index    *radix.Tree
	capacity int

	defaultTTLMS *uint64
	clock        Clock
	logger       zerolog.Logger

	externalSender EventSender
	internalEvents chan Event

	store          *store.Store
	worker         *store.Worker
	pendingPersist *persistOption

	janitorInterval time.Duration
}

// Option configures a Cache at construction time (functional options,
// ported from tempuscache's options.go pattern).
type Option func(*Cache)

// WithDefaultTTL sets the TTL applied to Insert calls that don't
// specify one explicitly (3). Without this option, plain Insert never
// expires.
func WithDefaultTTL(d time.Duration) Option {
	ms := durationToMS(d)
	return func(c *Cache) { c.defaultTTLMS = &ms }
}

// WithSender registers an external subscriber for mutation events
// (4.A, H). It is delivered to first on every mutation, ahead of the
// durable store's queue.
func WithSender(sender EventSender) Option {
	return func(c *Cache) { c.externalSender = sender }
}

// WithLogger overrides the default no-op logger used for the
// background worker's warnings (4.C, 7).
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithClock overrides the Clock used for TTL math and event
// timestamps. Tests use this to exercise TTL boundaries deterministically.
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithJanitor records a default interval for RunJanitor. It does not by
// itself start any goroutine — New never spawns anything that would
// touch data/index, per the single-owner model (5) — it only supplies
// the default so callers that do run RunJanitor on their own owning
// goroutine don't have to repeat the interval.
func WithJanitor(interval time.Duration) Option {
	return func(c *Cache) { c.janitorInterval = interval }
}

type persistOption struct {
	path string
}

// WithPersist enables the optional SQLite write-behind durable store
// (4.C) at the given file path. Surviving rows are loaded back into the
// cache during New, and every subsequent mutation is queued to a
// background worker that mirrors it to disk.
func WithPersist(path string) Option {
	return func(c *Cache) { c.pendingPersist = &persistOption{path: path} }
}

// New constructs a Cache with the given capacity. Capacity must be at
// least 1; the facade does not special-case 0 or negative values into
// "unbounded" the way the teacher's maxEntries <= 0 check did (3: the
// cache is always bounded).
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("quickleaf: capacity must be at least 1, got %d", capacity)
	}

	c := &Cache{
		data:           newOrderedMap(),
		index:          radix.New(),
		capacity:       capacity,
		clock:          SystemClock,
		logger:         zerolog.Nop(),
		internalEvents: make(chan Event, 256),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.pendingPersist != nil {
		if err := c.attachStore(c.pendingPersist.path); err != nil {
			return nil, &StoreOpenError{Path: c.pendingPersist.path, Err: err}
		}
	}

	if c.externalSender != nil || c.worker != nil {
		go runFanout(c.internalEvents, c.externalSender, c.worker)
	}

	return c, nil
}

// attachStore opens the durable store, rehydrates surviving rows
// (4.C: "load path" — sort by key, re-insert up to capacity, skip any
// expired row defensively), and starts the write-behind worker.
func (c *Cache) attachStore(path string) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}

	rows, err := s.LoadLive(time.Now().Unix())
	if err != nil {
		s.Close()
		return err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	now := c.clock.NowMS()
	for _, row := range rows {
		if c.data.len() >= c.capacity {
			break
		}
		var ttlMS *uint64
		if row.TTLSeconds != nil {
			ms := uint64(*row.TTLSeconds) * 1000
			ttlMS = &ms
		}
		createdAtMS := uint64(row.CreatedAt) * 1000
		it := newItem(ParseValue(row.Value), createdAtMS, ttlMS)
		if it.expired(now) {
			continue
		}
		c.data.put(row.Key, it)
		c.index.Insert(row.Key, struct{}{})
	}

	c.store = s
	c.worker = store.NewWorker(s, c.logger)
	return nil
}

// Close shuts down the background worker, flushing any queued writes,
// and closes the durable store's file. It is a no-op if no persist
// option was configured. The fan-out goroutine exits on its own once
// internalEvents is closed.
func (c *Cache) Close(ctx context.Context) error {
	close(c.internalEvents)

	if c.worker == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		c.worker.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return c.store.Close()
}

func durationToMS(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}

func msPtrToSecondsPtr(ms *uint64) *int64 {
	if ms == nil {
		return nil
	}
	sec := int64(*ms / 1000)
	return &sec
}

// Insert stores key=value, applying the cache's default TTL if one is
// configured (3), and otherwise never expiring.
func (c *Cache) Insert(key string, value Value) {
	c.insert(key, value, c.defaultTTLMS)
}

// InsertWithTTL stores key=value with an explicit TTL (4.C). When a
// durable store is attached, the row is additionally written
// synchronously so expires_at is recorded immediately rather than
// waiting for the asynchronous event to reach the worker.
func (c *Cache) InsertWithTTL(key string, value Value, ttl time.Duration) {
	ms := durationToMS(ttl)
	c.insert(key, value, &ms)

	if c.store != nil && c.worker.Healthy() {
		now := c.clock.NowMS()
		secs := msPtrToSecondsPtr(&ms)
		if err := c.store.UpsertSync(key, value.MarshalCanonical(), int64(now/1000), secs); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("synchronous ttl publish failed")
		}
	}
}

// InsertIfAbsent stores key=value only if key is not currently present
// (live or expired), returning ErrKeyExists otherwise. Supplements the
// base insert family (SPEC_FULL "InsertIfAbsent").
func (c *Cache) InsertIfAbsent(key string, value Value) error {
	if _, ok := c.data.get(key); ok {
		return ErrKeyExists
	}
	c.insert(key, value, c.defaultTTLMS)
	return nil
}

// insert implements the shared rule from 4.B: a key holding an
// already-equal value (regardless of that entry's expiry) is left
// untouched — no event, no created_at refresh. A genuinely new key
// triggers FIFO eviction only when the cache is already at capacity
// (4.A): replacing an existing key's value never evicts.
func (c *Cache) insert(key string, value Value, ttlMS *uint64) {
	now := c.clock.NowMS()

	if existing, ok := c.data.get(key); ok {
		if existing.value.Equal(value) {
			return
		}
		c.data.put(key, newItem(value, now, ttlMS))
		c.emit(insertEvent(key, value, ttlMS, now))
		return
	}

	if c.data.len() >= c.capacity {
		oldestKey, oldest, evicted := c.data.removeOldest()
		if evicted {
			c.index.Delete(oldestKey)
			c.emit(removeEvent(oldestKey, oldest.value, now))
		}
	}

	c.data.put(key, newItem(value, now, ttlMS))
	c.index.Insert(key, struct{}{})
	c.emit(insertEvent(key, value, ttlMS, now))
}

// Get returns the live value for key. It never reorders the FIFO
// queue and never mutates state beyond lazily dropping an expired
// entry it happens to encounter (4.A: "get MUST NOT change insertion
// order").
func (c *Cache) Get(key string) (Value, bool) {
	it, ok := c.data.get(key)
	if !ok {
		return Value{}, false
	}
	if it.expired(c.clock.NowMS()) {
		c.removeInternal(key)
		return Value{}, false
	}
	return it.value, true
}

// ContainsKey reports liveness without returning the value.
func (c *Cache) ContainsKey(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Replace atomically reads key's current value, applies fn, and
// re-inserts the result in place — preserving created_at and the TTL
// clock rather than restarting them the way a plain Insert would. It
// returns ErrKeyNotFound if the key is absent or already expired. This
// is the idiomatic stand-in for the original's get_mut borrow, which
// Go's copy-on-read Value has no equivalent for.
func (c *Cache) Replace(key string, fn func(Value) Value) error {
	it, ok := c.data.get(key)
	if !ok || it.expired(c.clock.NowMS()) {
		return ErrKeyNotFound
	}
	newValue := fn(it.value)
	c.data.put(key, newItem(newValue, it.createdAtMS, it.ttlMS))
	c.emit(insertEvent(key, newValue, it.ttlMS, c.clock.NowMS()))
	return nil
}

// Remove deletes key unconditionally, live or expired, and reports
// ErrKeyNotFound if it was never present.
func (c *Cache) Remove(key string) error {
	it, ok := c.data.get(key)
	if !ok {
		return ErrKeyNotFound
	}
	c.removeInternalWithValue(key, it.value)
	return nil
}

func (c *Cache) removeInternal(key string) {
	it, ok := c.data.removeByKey(key)
	if !ok {
		return
	}
	c.index.Delete(key)
	c.emit(removeEvent(key, it.value, c.clock.NowMS()))
}

func (c *Cache) removeInternalWithValue(key string, value Value) {
	c.data.removeByKey(key)
	c.index.Delete(key)
	c.emit(removeEvent(key, value, c.clock.NowMS()))
}

// Clear removes every entry and, if an external subscriber or durable
// store is attached, emits a single Clear event (4.D) for the fan-out
// goroutine to forward.
func (c *Cache) Clear() {
	c.data.clear()
	c.index = radix.New()
	c.emit(clearEvent(c.clock.NowMS()))
}

// Snapshot returns every live (key, value) pair in insertion order,
// performing a lazy-expiration sweep first. Supplements the base query
// surface (SPEC_FULL "Snapshot") for callers that want the whole live
// set without pagination.
func (c *Cache) Snapshot() []Pair {
	c.sweepExpired()
	keys := c.data.keys()
	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		it, ok := c.data.get(k)
		if !ok {
			continue
		}
		out = append(out, Pair{Key: k, Value: it.value})
	}
	return out
}

// List returns up to props' limit (key, value) pairs in the requested
// order, starting immediately after props' cursor and matching props'
// filter (4.F). It always performs a full lazy-expiration sweep first,
// then builds the complete live key sequence in order before applying
// the cursor or the filter — a cursor is validated against every live
// key, not just the ones the filter would keep, so naming a live key
// that the filter happens to exclude is a valid cursor, not a
// SortKeyNotFound.
//
// A limit of 0 short-circuits to an empty result without even
// validating the cursor (4.F edge cases).
func (c *Cache) List(props ListProps) ([]Pair, error) {
	if props.limit <= 0 {
		return nil, nil
	}

	c.sweepExpired()

	// The radix WalkPrefix fast path only helps when there's no cursor:
	// a cursor must be validated against the FULL live key sequence
	// (4.F), not one already narrowed by the filter, so taking the
	// prefix shortcut while a cursor is set would silently skip valid
	// cursor keys the filter excludes.
	if !props.startAfterKey.isSet && props.order == Asc {
		if prefix, ok := props.filter.hasPrefixFastPath(); ok {
			return c.listWithPrefixFastPath(prefix, props), nil
		}
	}

	keys := c.fullSortedKeys(props.order)

	start := 0
	if props.startAfterKey.isSet {
		idx := indexOf(keys, props.startAfterKey.key)
		if idx < 0 {
			return nil, ErrSortKeyNotFound
		}
		start = idx + 1
	}

	out := make([]Pair, 0, props.limit)
	for _, key := range keys[start:] {
		if len(out) >= props.limit {
			break
		}
		if !props.filter.match(key) {
			continue
		}
		it, ok := c.data.get(key)
		if !ok {
			continue
		}
		out = append(out, Pair{Key: key, Value: it.value})
	}
	return out, nil
}

// listWithPrefixFastPath walks only the radix subtree under prefix
// instead of the full key space, applying the remaining filter
// condition (e.g. StartAndEndWith's suffix) as it goes.
func (c *Cache) listWithPrefixFastPath(prefix string, props ListProps) []Pair {
	out := make([]Pair, 0, props.limit)
	c.index.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		if len(out) >= props.limit {
			return true
		}
		if !props.filter.match(key) {
			return false
		}
		if it, ok := c.data.get(key); ok {
			out = append(out, Pair{Key: key, Value: it.value})
		}
		return false
	})
	return out
}

// fullSortedKeys returns every live key in the requested order. The
// radix index (synced on every insert/remove/evict/clear) already
// holds keys in ascending lexicographic order via Walk; Desc just
// reverses that sequence rather than maintaining a second index.
func (c *Cache) fullSortedKeys(order Order) []string {
	keys := make([]string, 0, c.data.len())
	c.index.Walk(func(key string, _ interface{}) bool {
		keys = append(keys, key)
		return false
	})
	if order == Desc {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return keys
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (c *Cache) Len() int      { return c.data.len() }
func (c *Cache) IsEmpty() bool { return c.data.len() == 0 }
func (c *Cache) Capacity() int { return c.capacity }

// SetCapacity changes the bound at runtime. Lowering it below the
// current size does NOT retroactively evict anything (4.A) — the cache
// is simply left over its new bound until the next insert of a
// genuinely new key, at which point insert's own
// "c.data.len() >= c.capacity" check starts evicting as usual.
func (c *Cache) SetCapacity(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("quickleaf: capacity must be at least 1, got %d", capacity)
	}
	c.capacity = capacity
	return nil
}

// CleanupExpired performs one active-expiration sweep (4.A:
// "cleanup_expired() removes every entry whose TTL has elapsed and
// returns the count"), removing every currently-expired entry. Unlike
// the teacher's janitor.go, this is caller-driven rather than
// ticker-driven: running it on a goroutine of the cache's own would
// violate the single-owner model (5).
func (c *Cache) CleanupExpired() int {
	return c.sweepExpired()
}

// RunJanitor blocks, calling CleanupExpired on the interval configured
// by WithJanitor (or the interval passed directly if no default was
// set), until ctx is canceled. It generalizes the teacher's
// startJanitor/ticker.C loop (tempuscache's janitor.go) to a form that
// respects the single-owner model (5): unlike the teacher, which ran
// this loop on a Cache-owned background goroutine locked by a mutex,
// RunJanitor does not spawn anything itself — the caller must invoke
// it from the same goroutine that performs every other Cache
// operation, e.g. as one case of their own select loop.
func (c *Cache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.janitorInterval
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}

func (c *Cache) sweepExpired() int {
	now := c.clock.NowMS()
	removed := 0
	for _, key := range c.data.keys() {
		it, ok := c.data.get(key)
		if !ok {
			continue
		}
		if it.expired(now) {
			c.removeInternalWithValue(key, it.value)
			removed++
		}
	}
	return removed
}

// emit sends ev to the internal fan-out goroutine if one is running
// (external subscriber and/or durable store configured). A full buffer
// is dropped rather than blocking the mutation that produced it,
// matching 5's "send failure is ignored by the facade".
func (c *Cache) emit(ev Event) {
	if c.externalSender == nil && c.worker == nil {
		return
	}
	select {
	case c.internalEvents <- ev:
	default:
	}
}

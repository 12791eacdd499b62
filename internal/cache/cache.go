// Package cache implements the generic TTL cache (§4.B): per-entry expiry,
// LRU eviction at a configured max size, and single-flight fill so that
// concurrent callers for the same key share one in-flight load. Lookups are
// guarded by a single mutex for the whole cache (no lock striping);
// golang.org/x/sync/singleflight (already an
// indirect dependency of the teacher's module graph) supplies the dedup.
package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader computes the value for a cache miss.
type Loader[V any] func() (V, error)

type entry[V any] struct {
	key        string
	value      V
	expiresAt  time.Time // zero means no expiry
	listElem   *list.Element
}

// Stats is the snapshot returned by Cache.Stats.
type Stats struct {
	Hits      int64
	Misses    int64
	Loads     int64
	Evictions int64
	Size      int
}

// Cache is a generic, concurrency-safe TTL+LRU cache with single-flight fill.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	order   *list.List // front = most recently used
	maxSize int

	group singleflight.Group

	hits, misses, loads, evictions int64
}

// New creates a cache capped at maxSize entries (0 = unbounded).
func New[V any](maxSize int) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// GetOrFill returns the cached value for key if live, else invokes loader
// exactly once across all concurrent callers for key and caches the result
// for ttl (0 = no expiry). It reports whether the value was freshly filled.
//
// Concurrent callers that arrive while a load for key is in flight record a
// miss in their own initial lookup, then ride the shared singleflight result
// instead of loading and are counted as hits as well, matching the "loader invoked exactly once per key"
// contract (§4.B, §8 property 3) rather than each independently missing.
//
// group.Do's own shared return value can't tell us this: it reports whether
// any duplicate joined at all, which is also true for the goroutine that
// actually ran the closure. Leadership is tracked directly with ran, set
// only inside the closure that executes.
func (c *Cache[V]) GetOrFill(key string, loader Loader[V], ttl time.Duration) (V, bool, error) {
	if v, ok := c.peek(key); ok {
		return v, false, nil
	}

	var ran bool
	result, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check without counting: another goroutine may have filled the
		// entry between our peek above and this goroutine winning leadership
		// of the singleflight group for key.
		if v, ok := c.peekNoCount(key); ok {
			return v, nil
		}
		ran = true
		c.mu.Lock()
		c.loads++
		c.mu.Unlock()

		v, err := loader()
		if err != nil {
			return nil, err
		}
		c.set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	if !ran {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return result.(V), false, nil
	}
	return result.(V), true, nil
}

// peek returns the live cached value for key without triggering a load,
// recording a hit or miss and bumping LRU order on a hit.
func (c *Cache[V]) peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key, true)
}

// peekNoCount behaves like peek but does not affect hit/miss counters; used
// inside the singleflight critical section where counting was already
// attributed by the caller's own peek.
func (c *Cache[V]) peekNoCount(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key, false)
}

func (c *Cache[V]) lookupLocked(key string, count bool) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		if count {
			c.misses++
		}
		var zero V
		return zero, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeLocked(e)
		if count {
			c.misses++
		}
		var zero V
		return zero, false
	}
	c.order.MoveToFront(e.listElem)
	if count {
		c.hits++
	}
	return e.value, true
}

// set inserts or overwrites key's entry, evicting the LRU tail if the cache
// is over capacity. Expiry is applied eagerly: a write always resets it.
func (c *Cache[V]) set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.listElem)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.listElem = c.order.PushFront(e)
	c.entries[key] = e

	if c.maxSize > 0 {
		for len(c.entries) > c.maxSize {
			back := c.order.Back()
			if back == nil {
				break
			}
			c.removeLocked(back.Value.(*entry[V]))
			c.evictions++
		}
	}
}

// removeLocked deletes e from both the map and the LRU list. Caller holds c.mu.
func (c *Cache[V]) removeLocked(e *entry[V]) {
	delete(c.entries, e.key)
	c.order.Remove(e.listElem)
}

// Invalidate drops key, if present.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// InvalidateAll drops every entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.order.Init()
}

// Stats returns a point-in-time snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Loads:     c.loads,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

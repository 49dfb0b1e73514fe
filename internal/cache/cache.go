// Package cache provides a byte-budgeted LRU cache with TTL expiry, used for
// embeddings and search results.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entryOverheadBytes approximates per-entry bookkeeping cost beyond the value.
const entryOverheadBytes = 200

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	Evictions        int64   `json:"evictions"`
	TTLEvictions     int64   `json:"ttl_evictions"`
	HitRate          float64 `json:"hit_rate"`
	CurrentSizeBytes int64   `json:"current_size_bytes"`
	MaxSizeBytes     int64   `json:"max_size_bytes"`
	EntryCount       int     `json:"entry_count"`
	Utilization      float64 `json:"utilization"`
}

type entry[V any] struct {
	value    V
	bytes    int64
	storedAt time.Time
}

// Cache is a thread-safe LRU cache bounded by total byte size, with lazy
// TTL expiry on read. A TTL of zero disables expiry.
type Cache[V any] struct {
	mu       sync.Mutex
	lru      *lru.Cache[string, *entry[V]]
	ttl      time.Duration
	maxBytes int64
	curBytes int64
	sizeOf   func(V) int64

	hits, misses, evictions, ttlEvictions int64

	now func() time.Time
}

// New creates a cache bounded to maxSizeMB megabytes. sizeOf estimates the
// byte size of a value; a fixed overhead is added per entry.
func New[V any](maxSizeMB int, ttl time.Duration, sizeOf func(V) int64) (*Cache[V], error) {
	c := &Cache[V]{
		ttl:      ttl,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		sizeOf:   sizeOf,
		now:      time.Now,
	}
	// The item cap is a backstop; the byte budget is the real bound.
	inner, err := lru.NewWithEvict[string, *entry[V]](1_000_000, func(_ string, e *entry[V]) {
		c.curBytes -= e.bytes
		c.evictions++
	})
	if err != nil {
		return nil, err
	}
	c.lru = inner
	return c, nil
}

// Get returns the cached value for key, expiring it first if past TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.lru.Remove(key)
		// Remove fires the eviction callback; reclassify as a TTL expiry.
		c.evictions--
		c.ttlEvictions++
		c.misses++
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting least-recently-used entries until the
// byte budget holds. Values larger than the whole budget are not cached.
func (c *Cache[V]) Set(key string, value V) {
	size := c.sizeOf(value) + entryOverheadBytes
	if size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Remove(key) {
		c.evictions--
	}

	for c.curBytes+size > c.maxBytes && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}

	c.lru.Add(key, &entry[V]{value: value, bytes: size, storedAt: c.now()})
	c.curBytes += size
}

// Remove deletes a single entry if present.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Remove(key) {
		c.evictions--
	}
}

// Clear drops all entries. Counters survive so stats stay meaningful.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lru.Len()
	c.lru.Purge()
	// Purge fires the eviction callback per entry; a clear is not an eviction.
	c.evictions -= int64(n)
	c.curBytes = 0
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:             c.hits,
		Misses:           c.misses,
		Evictions:        c.evictions,
		TTLEvictions:     c.ttlEvictions,
		CurrentSizeBytes: c.curBytes,
		MaxSizeBytes:     c.maxBytes,
		EntryCount:       c.lru.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	if c.maxBytes > 0 {
		s.Utilization = float64(c.curBytes) / float64(c.maxBytes)
	}
	return s
}

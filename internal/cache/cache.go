// Package cache provides a process-local TTL cache with lazy eviction.
//
// Entries are never swept in the background. An expired entry is dropped the next time
// its key is looked up, or all at once by Clear.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a resolution stays valid when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is one cached value.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
}

// fresh reports whether the entry is still valid at now.
func (e Entry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hitCount"`
	Misses    int64 `json:"missCount"`
	Evictions int64 `json:"evictionCount"`
}

// Cache maps keys to timestamped values. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now. Used by tests to move time forward.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it is younger than ttl.
// An expired entry is removed and counted as a miss.
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !entry.fresh(c.now(), ttl) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Value, true
}

// Set stores value under key, stamped with the current time.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Key: key, Value: value, StoredAt: c.now()}
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry regardless of age. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictions += int64(len(c.entries))
	c.entries = make(map[string]Entry)
}

// Stats returns a snapshot of the cache counters. Size includes expired entries
// that have not been looked up since they expired.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// GetOrCompute returns the fresh value cached under key, or calls compute, stores
// its result and returns it. A compute error is returned as is and nothing is stored.
//
// compute runs without the lock held, so two callers racing on the same key may both
// compute. The later Set wins.
func GetOrCompute[T any](c *Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(key, ttl); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(key, v)
	return v, nil
}

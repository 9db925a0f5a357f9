package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
)

// CacheKey identifies one memoized transcription.
type CacheKey string

// NewCacheKey derives the key from the image content identity, the model
// identity and the exact prompt text.
func NewCacheKey(imageID, model, prompt string) CacheKey {
	h := sha256.New()
	h.Write([]byte(imageID))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}

// ResultCache memoizes successful transcriptions for the lifetime of the process.
//
// At most one value is stored per key. Two concurrent misses on the same key
// both compute, and the last write wins; compute is idempotent so this only
// costs an extra backend call. Failures are never stored. There is no eviction.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[CacheKey]string)}
}

// GetOrCompute returns the stored value for key, or runs compute and stores its
// result when it succeeds.
// Parameters:
//   - ctx: passed through to compute.
//   - key: cache key built with NewCacheKey.
//   - compute: produces the value on a miss.
//
// Returns:
//   - string: the cached or computed value.
//   - bool: true when the value came from the cache.
//   - error: compute's error, unchanged.
func (c *ResultCache) GetOrCompute(ctx context.Context, key CacheKey, compute func(context.Context) (string, error)) (string, bool, error) {
	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return value, true, nil
	}

	c.misses.Add(1)
	value, err := compute(ctx)
	if err != nil {
		return "", false, err
	}

	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()

	return value, false, nil
}

// Len returns the number of stored entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since construction.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Package dedup implements the time-windowed duplicate suppression cache.
//
// This file provides the in-process memory backend, selected with
// CACHE_BACKEND=memory. It exists for development setups without Redis and
// for hermetic tests of the claim race property. It enforces the same
// contract as the Redis backend but is process-local: replicas do not share
// its state, so it must not be used where global dedup matters.
package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache. Entries carry an absolute expiry and
// are lazily evicted on lookup plus opportunistically swept after a
// threshold of claims, so memory stays bounded without a background goroutine.
//
// Safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	claims  uint64

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// sweepEvery is the number of claims between full expiry sweeps.
const sweepEvery = 5000

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Claim records key for ttl if it is absent or expired, reporting whether
// this call created the entry. The check and the insert happen under one
// mutex hold, so concurrent claimers on the same key see exactly one winner.
// Losing claims leave the stored expiry untouched.
func (c *MemoryCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Sweep BEFORE the lookup so an expired entry for this very key cannot
	// survive the claim that should replace it.
	c.claims++
	if c.claims >= sweepEvery {
		for k, exp := range c.entries {
			if !exp.After(now) {
				delete(c.entries, k)
			}
		}
		c.claims = 0
	}

	if exp, ok := c.entries[key]; ok && exp.After(now) {
		return false, nil
	}
	c.entries[key] = now.Add(ttl)
	return true, nil
}

// Len reports the number of stored entries, including not-yet-swept expired
// ones. Intended for tests and debug endpoints.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

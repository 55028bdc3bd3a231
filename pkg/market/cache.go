package market

import (
	"context"
	"sync"
	"time"
)

// CachingProvider wraps a Provider with an in-memory series cache.
// A series fetched once is reused for the cache TTL, so the revision
// loop and multiple analyst kinds never refetch the same history.
type CachingProvider struct {
	mu      sync.RWMutex
	inner   Provider
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	series    Series
	fetchedAt time.Time
}

// NewCachingProvider wraps inner with a cache. A ttl of zero means
// entries never expire within a run.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Fetch implements Provider
func (c *CachingProvider) Fetch(ctx context.Context, symbol, period, interval string) (Series, error) {
	key := symbol + "|" + period + "|" + interval

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && (c.ttl == 0 || time.Since(entry.fetchedAt) < c.ttl) {
		return entry.series, nil
	}

	series, err := c.inner.Fetch(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{series: series, fetchedAt: time.Now()}
	c.mu.Unlock()

	return series, nil
}

// Close implements Provider
func (c *CachingProvider) Close() error {
	return c.inner.Close()
}

// Len returns the number of cached series
func (c *CachingProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

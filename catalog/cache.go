package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL bounds how long an entry is served without reloading.
	// Set to 0 to reload only when the source version changes.
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for catalog caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}

type cacheEntry struct {
	version  string
	records  []FoodRecord
	cachedAt time.Time
}

// Cache keeps the last loaded catalog of each source, keyed by source identity.
// An entry is reused only while the source reports the same version. Loads for
// the same identity and version are coalesced, and entries are swapped in whole,
// so no caller ever observes a partially loaded catalog.
type Cache struct {
	config  CacheConfig
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates an empty catalog cache
func NewCache(config CacheConfig) *Cache {
	return &Cache{
		config:  config,
		entries: make(map[string]*cacheEntry),
	}
}

// Load returns the catalog of src, reading it through the source only when the
// cached copy is missing, stale or expired. The result is a private copy.
func (c *Cache) Load(ctx context.Context, src Source) ([]FoodRecord, error) {
	id := src.Identity()
	version, err := src.Version(ctx)
	if err != nil {
		return nil, err
	}

	if records, ok := c.lookup(id, version); ok {
		c.hits.Add(1)
		return records, nil
	}
	c.misses.Add(1)

	// The shared load must not fail for every waiter because the first
	// caller went away.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(id+"@"+version, func() (any, error) {
		if records, ok := c.lookup(id, version); ok {
			return records, nil
		}
		records, err := src.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = &cacheEntry{
			version:  version,
			records:  records,
			cachedAt: time.Now(),
		}
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneRecords(v.([]FoodRecord)), nil
}

func (c *Cache) lookup(id, version string) ([]FoodRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok || e.version != version {
		return nil, false
	}
	if c.config.TTL > 0 && time.Since(e.cachedAt) > c.config.TTL {
		return nil, false
	}
	return cloneRecords(e.records), true
}

// Invalidate drops the entry for one source identity.
func (c *Cache) Invalidate(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, identity)
}

// InvalidateAll clears the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}

// Hits reports how many loads were served from the cache.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses reports how many loads went to the source.
func (c *Cache) Misses() int64 { return c.misses.Load() }

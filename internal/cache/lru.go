package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/onnwee/redpull/internal/metrics"
)

// LRUCache is a cost-bounded cache backed by ristretto. Hits and misses are
// reported to Prometheus under the cache's name.
type LRUCache struct {
	name       string
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

type cacheItem struct {
	data      []byte
	expiresAt time.Time
}

// NewLRU creates a cache holding at most maxSizeMB megabytes of values.
// maxEntries sizes ristretto's admission counters.
func NewLRU(name string, maxSizeMB int64, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	if maxSizeMB < 1 {
		maxSizeMB = 1
	}
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeMB * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &LRUCache{name: name, cache: c, defaultTTL: defaultTTL}, nil
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}
	item, ok := val.(*cacheItem)
	if !ok || time.Now().After(item.expiresAt) {
		c.cache.Del(key)
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return item.data, true
}

func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.cache.Set(key, &cacheItem{data: value, expiresAt: time.Now().Add(ttl)}, int64(len(key)+len(value)))
	// make the value visible to the next Get
	c.cache.Wait()
}

func (c *LRUCache) Delete(key string) { c.cache.Del(key) }

func (c *LRUCache) Clear() { c.cache.Clear() }

func (c *LRUCache) Stats() Stats {
	m := c.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      c.Cost(),
		Items:     c.Len(),
	}
}

// Len approximates the number of live entries.
func (c *LRUCache) Len() int64 {
	m := c.cache.Metrics
	return int64(m.KeysAdded()) - int64(m.KeysEvicted())
}

// Cost approximates the bytes held.
func (c *LRUCache) Cost() int64 {
	m := c.cache.Metrics
	return int64(m.CostAdded()) - int64(m.CostEvicted())
}

// Close releases ristretto's goroutines.
func (c *LRUCache) Close() { c.cache.Close() }

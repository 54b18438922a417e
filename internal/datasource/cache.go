package datasource

import (
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/pitwall/internal/metrics"
)

// CacheKey identifies one cached provider response
type CacheKey struct {
	Resource string
	ID       int
	Variant  string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	if k.Variant == "" {
		return fmt.Sprintf("%s:%d", k.Resource, k.ID)
	}
	return fmt.Sprintf("%s:%d:%s", k.Resource, k.ID, k.Variant)
}

// ResponseCache provides in-memory caching for provider responses
type ResponseCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewResponseCache creates a new response cache
func NewResponseCache(ttl time.Duration, maxSize int) *ResponseCache {
	return &ResponseCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached response
func (rc *ResponseCache) Get(key CacheKey) (interface{}, bool) {
	value, found := rc.cache.Get(key.String())

	rc.mu.Lock()
	if found {
		rc.hitCount++
	} else {
		rc.missCount++
	}
	ratio := rc.ratioLocked()
	rc.mu.Unlock()

	metrics.UpdateCacheHitRatio(ratio)
	return value, found
}

// Set stores a response. When the cache is full expired items are dropped
// first and, failing that, the new value is not stored.
func (rc *ResponseCache) Set(key CacheKey, value interface{}) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.maxSize > 0 && rc.cache.ItemCount() >= rc.maxSize {
		rc.cache.DeleteExpired()
		if rc.cache.ItemCount() >= rc.maxSize {
			return false
		}
	}

	rc.cache.Set(key.String(), value, rc.ttl)
	return true
}

// InvalidateID removes all entries for an id across resources
func (rc *ResponseCache) InvalidateID(id int) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for k := range rc.cache.Items() {
		parts := strings.SplitN(k, ":", 3)
		if len(parts) >= 2 && parts[1] == fmt.Sprint(id) {
			rc.cache.Delete(k)
			removed++
		}
	}
	return removed
}

// Delete removes one entry
func (rc *ResponseCache) Delete(key CacheKey) {
	rc.cache.Delete(key.String())
}

// Clear flushes the entire cache
func (rc *ResponseCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cache.Flush()
	rc.hitCount = 0
	rc.missCount = 0
}

// Stats returns cache statistics
func (rc *ResponseCache) Stats() (hits, misses uint64, ratio float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.hitCount, rc.missCount, rc.ratioLocked()
}

// ItemCount returns the number of items in cache
func (rc *ResponseCache) ItemCount() int {
	return rc.cache.ItemCount()
}

func (rc *ResponseCache) ratioLocked() float64 {
	total := rc.hitCount + rc.missCount
	if total == 0 {
		return 0
	}
	return float64(rc.hitCount) / float64(total)
}

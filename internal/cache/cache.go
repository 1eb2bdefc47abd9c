// Package cache provides a single TTL-with-singleflight primitive,
// shared by the Token/Chain Resolver (5 minute positive / 30s-5m
// negative TTL) and the Wallet Validator (2 minute TTL), plus the
// bounded signal-ingress dedup set.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// TTLCache wraps an expirable LRU with singleflight so concurrent
// lookups for the same key collapse into one underlying fetch instead
// of stampeding the source each resolves/validates against.
type TTLCache[K comparable, V any] struct {
	store *lru.LRU[K, V]
	group singleflight.Group
}

// NewTTLCache builds a cache holding up to size entries, each expiring
// ttl after insertion.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		store: lru.NewLRU[K, V](size, nil, ttl),
	}
}

// Get returns a cached value for key, if present and unexpired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	return c.store.Get(key)
}

// Set inserts or overwrites key's value, resetting its TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.store.Add(key, value)
}

// Remove evicts key, used by the Wallet Validator's Invalidate and by
// the Resolver to drop an empty positive entry.
func (c *TTLCache[K, V]) Remove(key K) {
	c.store.Remove(key)
}

// GetOrLoad returns the cached value for key, or calls load exactly
// once across all concurrent callers sharing that key, caching and
// returning its result. The singleflight group key is stringified by
// the caller because singleflight.Group only accepts string keys; see
// keyFunc below.
func (c *TTLCache[K, V]) GetOrLoad(key K, keyFunc func(K) string, load func() (V, error)) (V, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(keyFunc(key), func() (interface{}, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		loaded, err := load()
		if err != nil {
			return loaded, err
		}
		c.store.Add(key, loaded)
		return loaded, nil
	})

	var result V
	if v != nil {
		result = v.(V)
	}
	return result, err
}

package cache

import (
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"time"
)

// DefaultDedupCapacity is the minimum bound required for the
// signal-ingress dedup set ("at least 10,000 entries").
const DefaultDedupCapacity = 10_000

// DedupSet is a bounded, TTL-bounded set of recently seen signal keys
// that never grows without bound. The Execution Scheduler does not use
// it; it tracks seen signals itself.
type DedupSet struct {
	seen *lru.LRU[string, struct{}]
}

// NewDedupSet builds a dedup set holding at least capacity entries for
// up to ttl each.
func NewDedupSet(capacity int, ttl time.Duration) *DedupSet {
	if capacity < DefaultDedupCapacity {
		capacity = DefaultDedupCapacity
	}
	return &DedupSet{seen: lru.NewLRU[string, struct{}](capacity, nil, ttl)}
}

// SeenBefore reports whether key was already recorded, then records it
// if not. Check-then-add is not atomic across two calls; callers
// needing that must hold their own lock around SeenBefore.
func (d *DedupSet) SeenBefore(key string) bool {
	if _, ok := d.seen.Get(key); ok {
		return true
	}
	d.seen.Add(key, struct{}{})
	return false
}

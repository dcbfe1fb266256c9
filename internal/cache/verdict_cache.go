/*
Verdict Cache: TTL memoization with single-flight collapsing of duplicate
concurrent requests (spec §4.4).

Generic over the verdict type so this package has no dependency on the
decision package's tagged-sum Verdict type. Eviction on capacity is
approximate LRU via container/list, a choice spec §4.4 explicitly leaves
open ("any bounded associative structure... eviction must be approximately
LRU" — see DESIGN.md open-question entry).
*/
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheItem[V any] struct {
	fingerprint string
	username    string
	value       V
	expiry      time.Time
}

// Cache is a bounded, concurrency-safe fingerprint -> verdict memoization
// table with single-flight compute collapsing.
type Cache[V any] struct {
	capacity int

	mu            sync.Mutex
	entries       map[string]*list.Element
	order         *list.List // front = most recently used
	usernameIndex map[string]map[string]struct{}

	sf singleflight.Group
}

// New creates a cache bounded to capacity entries.
func New[V any](capacity int) *Cache[V] {
	return &Cache[V]{
		capacity:      capacity,
		entries:       make(map[string]*list.Element),
		order:         list.New(),
		usernameIndex: make(map[string]map[string]struct{}),
	}
}

// Get returns the cached verdict for fingerprint if present and unexpired.
func (c *Cache[V]) Get(fingerprint string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[fingerprint]
	if !ok {
		return zero, false
	}

	item := el.Value.(*cacheItem[V])
	if time.Now().After(item.expiry) {
		c.removeLocked(el)
		return zero, false
	}

	c.order.MoveToFront(el)
	return item.value, true
}

// Set inserts or refreshes fingerprint's cached verdict, tagged with
// username for later invalidation.
func (c *Cache[V]) Set(fingerprint, username string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(fingerprint, username, value, ttl)
}

func (c *Cache[V]) setLocked(fingerprint, username string, value V, ttl time.Duration) {
	if el, ok := c.entries[fingerprint]; ok {
		c.removeLocked(el)
	}

	item := &cacheItem[V]{
		fingerprint: fingerprint,
		username:    username,
		value:       value,
		expiry:      time.Now().Add(ttl),
	}
	el := c.order.PushFront(item)
	c.entries[fingerprint] = el

	if username != "" {
		set, ok := c.usernameIndex[username]
		if !ok {
			set = make(map[string]struct{})
			c.usernameIndex[username] = set
		}
		set[fingerprint] = struct{}{}
	}

	for c.capacity > 0 && len(c.entries) > c.capacity {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.removeLocked(back)
	}
}

func (c *Cache[V]) removeLocked(el *list.Element) {
	item := el.Value.(*cacheItem[V])
	delete(c.entries, item.fingerprint)
	c.order.Remove(el)
	if set, ok := c.usernameIndex[item.username]; ok {
		delete(set, item.fingerprint)
		if len(set) == 0 {
			delete(c.usernameIndex, item.username)
		}
	}
}

// InvalidateUsername evicts every cached entry tagged with username.
// Admin-surface writes call this after modifying an identity (spec §4.4).
func (c *Cache[V]) InvalidateUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.usernameIndex[username]
	if !ok {
		return
	}
	for fingerprint := range set {
		if el, ok := c.entries[fingerprint]; ok {
			c.removeLocked(el)
		}
	}
}

// ComputeFunc produces a fresh verdict along with the TTL it should be
// cached under.
type ComputeFunc[V any] func(ctx context.Context) (value V, ttl time.Duration, err error)

// ErrTimeout is returned to single-flight waiters whose context expires
// before the in-flight computation publishes a result. The in-flight
// computation is not cancelled and still populates the cache on
// completion (late publication, spec §5).
var ErrTimeout = context.DeadlineExceeded

// GetOrCompute returns the cached verdict for fingerprint, or runs fn with
// at-most-one concurrent execution per fingerprint across callers
// (single-flight). cacheHit reports whether the value came from the cache.
func (c *Cache[V]) GetOrCompute(ctx context.Context, fingerprint, username string, fn ComputeFunc[V]) (value V, cacheHit bool, err error) {
	if v, ok := c.Get(fingerprint); ok {
		return v, true, nil
	}

	resultCh := c.sf.DoChan(fingerprint, func() (interface{}, error) {
		v, ttl, err := fn(context.Background())
		if err != nil {
			return nil, err
		}
		c.Set(fingerprint, username, v, ttl)
		return v, nil
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			var zero V
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	case <-ctx.Done():
		var zero V
		return zero, false, ErrTimeout
	}
}

// Len reports the current number of cached entries, for observability.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of shards. It is a power of 2 so shard
	// selection is a mask.
	ShardCount = 16

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 64

	shardMask = ShardCount - 1
)

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash.
func Uint64Hasher(u uint64) uint64 {
	return u
}

// Stats reports cache usage.
type Stats struct {
	Len           int
	TotalCapacity int
	Hits          uint64
	Misses        uint64
	Evictions     uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

// Sharded is a thread-safe, sharded LRU cache.
type Sharded[K comparable, V any] struct {
	shards   [ShardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int

	evictMu sync.RWMutex
	onEvict func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	lru     lruList[K]
}

type entry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// NewSharded creates a cache holding up to capacity entries per shard.
// If capacity <= 0, DefaultCapacity is used.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K]) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*entry[K, V])
	}
	return c
}

// OnEvict registers fn to be called with every entry dropped by capacity
// eviction, Delete, Clear or replacement in Set. fn runs after the shard
// lock is released and may use the cache.
func (c *Sharded[K, V]) OnEvict(fn func(K, V)) {
	c.evictMu.Lock()
	c.onEvict = fn
	c.evictMu.Unlock()
}

func (c *Sharded[K, V]) shardOf(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value and marks it most recently used.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	s := c.shardOf(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	v := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// Set stores a value, evicting the shard's least recently used entries
// when it is full.
func (c *Sharded[K, V]) Set(key K, value V) {
	var dropped []evicted[K, V]

	s := c.shardOf(key)
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		dropped = append(dropped, evicted[K, V]{key, e.value})
		e.value = value
		s.lru.MoveToFront(e.node)
	} else {
		for s.lru.Len() >= c.capacity {
			oldest, _ := s.lru.RemoveOldest()
			dropped = append(dropped, evicted[K, V]{oldest, s.entries[oldest].value})
			delete(s.entries, oldest)
			c.evictions.Add(1)
		}
		s.entries[key] = &entry[K, V]{value: value, node: s.lru.PushFront(key)}
	}
	s.mu.Unlock()

	c.notify(dropped)
}

// Delete removes an entry, reporting whether it was present.
func (c *Sharded[K, V]) Delete(key K) bool {
	s := c.shardOf(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		s.lru.Remove(e.node)
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if ok {
		c.notify([]evicted[K, V]{{key, e.value}})
	}
	return ok
}

// Clear removes all entries.
func (c *Sharded[K, V]) Clear() {
	var dropped []evicted[K, V]
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for k, e := range s.entries {
			dropped = append(dropped, evicted[K, V]{k, e.value})
		}
		s.entries = make(map[K]*entry[K, V])
		s.lru.Clear()
		s.mu.Unlock()
	}
	c.notify(dropped)
}

// Len returns the total number of entries across all shards.
func (c *Sharded[K, V]) Len() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Stats returns current cache statistics.
func (c *Sharded[K, V]) Stats() Stats {
	return Stats{
		Len:           c.Len(),
		TotalCapacity: c.capacity * ShardCount,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
	}
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

func (c *Sharded[K, V]) notify(dropped []evicted[K, V]) {
	if len(dropped) == 0 {
		return
	}
	c.evictMu.RLock()
	fn := c.onEvict
	c.evictMu.RUnlock()
	if fn == nil {
		return
	}
	for _, d := range dropped {
		fn(d.key, d.value)
	}
}

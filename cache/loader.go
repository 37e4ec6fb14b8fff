package cache

import (
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Loader is a string-keyed cache that loads missing values on demand.
type Loader[V any] struct {
	*Sharded[string, V]
	group singleflight.Group
}

// NewLoader creates a loader holding up to capacity entries per shard.
func NewLoader[V any](capacity int) *Loader[V] {
	return &Loader[V]{Sharded: NewSharded[string, V](capacity, StringHasher)}
}

// Load returns the cached value for key, calling load on a miss.
// Concurrent misses on the same key share one call.
func (l *Loader[V]) Load(key string, load func() (V, error)) (V, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		l.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, fmt.Errorf("cache: load %s: %w", key, err)
	}
	val, _ := v.(V)
	return val, nil
}

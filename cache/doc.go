// Package cache holds decoded assets between frames.
//
// # Sharded
//
// A thread-safe LRU cache split into 16 shards to reduce lock contention.
// An eviction callback lets owners release what the evicted value holds,
// typically by queueing a gfx.Release for its GPU handles.
//
//	c := cache.NewSharded[string, *texture.Image](64, cache.StringHasher)
//	c.OnEvict(func(path string, img *texture.Image) { ... })
//
// # Loader
//
// Loader wraps a Sharded cache with load deduplication: concurrent misses
// on the same key run the load function once and share its result. Errors
// are returned to every waiter and never cached.
//
//	l := cache.NewLoader[*mesh.Mesh](64)
//	m, err := l.Load(path, func() (*mesh.Mesh, error) { return mesh.Load(path) })
package cache

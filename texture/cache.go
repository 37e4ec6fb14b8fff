package texture

import (
	"github.com/gogpu/engine"
	"github.com/gogpu/engine/cache"
)

// Cache holds decoded images by path. Concurrent requests for the same
// path decode it once.
type Cache struct {
	loader *cache.Loader[*Image]
	opts   []Option
}

// NewCache creates a cache of up to capacity images per shard, decoding
// with opts.
func NewCache(capacity int, opts ...Option) *Cache {
	c := &Cache{loader: cache.NewLoader[*Image](capacity), opts: opts}
	c.loader.OnEvict(func(path string, _ *Image) {
		engine.Logger().Debug("texture evicted", "path", path)
	})
	return c
}

// Get returns the image at path, loading it on first use.
func (c *Cache) Get(path string) (*Image, error) {
	return c.loader.Load(path, func() (*Image, error) {
		return Load(path, c.opts...)
	})
}

// Forget drops path from the cache.
func (c *Cache) Forget(path string) {
	c.loader.Delete(path)
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Stats {
	return c.loader.Stats()
}

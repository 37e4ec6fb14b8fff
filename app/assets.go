package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/cache"
	"github.com/gogpu/engine/fileio"
	"github.com/gogpu/engine/mesh"
	"github.com/gogpu/engine/texture"
)

// ErrAssetType is returned by Assets.Preload for a path whose extension
// names no known asset type.
var ErrAssetType = errors.New("app: unknown asset type")

// Assets caches meshes and textures by path.
type Assets struct {
	Textures *texture.Cache

	meshes *cache.Loader[*mesh.Mesh]
}

// NewAssets creates asset caches of up to capacity entries per shard.
// Textures are decoded with opts.
func NewAssets(capacity int, opts ...texture.Option) *Assets {
	return &Assets{
		Textures: texture.NewCache(capacity, opts...),
		meshes:   cache.NewLoader[*mesh.Mesh](capacity),
	}
}

// Mesh returns the OBJ mesh at path, loading it on first use.
func (a *Assets) Mesh(path string) (*mesh.Mesh, error) {
	return a.meshes.Load(path, func() (*mesh.Mesh, error) {
		return mesh.Load(path)
	})
}

// Texture returns the image at path, loading it on first use.
func (a *Assets) Texture(path string) (*texture.Image, error) {
	return a.Textures.Get(path)
}

// Preload loads paths in parallel by extension: .obj as meshes and image
// formats as textures, compressed or not. The first failure cancels the
// paths not started yet and is returned.
func (a *Assets) Preload(ctx context.Context, paths ...string) error {
	jobs := make([]func(context.Context) error, 0, len(paths))
	for _, p := range paths {
		var load func() error
		switch fileio.Ext(p) {
		case ".obj":
			load = func() error { _, err := a.Mesh(p); return err }
		case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
			load = func() error { _, err := a.Texture(p); return err }
		default:
			return fmt.Errorf("%w: %s", ErrAssetType, p)
		}
		jobs = append(jobs, func(context.Context) error { return load() })
	}
	return Preload(ctx, 0, jobs...)
}

// Preload runs jobs on up to limit goroutines, or GOMAXPROCS when limit is
// not positive, and waits for them. The context passed to the jobs is
// canceled by the first failure, which is returned.
func Preload(ctx context.Context, limit int, jobs ...func(context.Context) error) error {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return job(gctx)
		})
	}
	err := g.Wait()
	engine.Logger().Debug("preload finished", "jobs", len(jobs), "error", err)
	return err
}

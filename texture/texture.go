// Package texture decodes images into tightly packed texel data ready for
// gfx.Texture.
//
// PNG, JPEG, GIF, BMP and WebP inputs are supported; files may be zstd or
// LZ4 compressed (see fileio). Decoded images are converted to
// non-premultiplied RGBA8 and optionally downscaled to a maximum size.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"

	_ "golang.org/x/image/bmp" // register BMP
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/fileio"
	"github.com/gogpu/engine/gfx"
)

var (
	// ErrFormat is returned for data in an unregistered image format.
	ErrFormat = errors.New("texture: unknown image format")

	// ErrEmpty is returned for images without pixels.
	ErrEmpty = errors.New("texture: empty image")
)

// Image is decoded texel data.
type Image struct {
	Width  uint32
	Height uint32
	Format backend.TextureFormat
	Pix    []byte
}

// Desc returns the texture descriptor matching the image.
func (img *Image) Desc() backend.TextureDesc {
	return backend.TextureDesc{Width: img.Width, Height: img.Height, Format: img.Format}
}

// Upload queues the creation of a texture holding the image and returns
// its handle.
func (img *Image) Upload(b *cmdbuf.Buffer, hs *backend.Handles) (backend.Handle, error) {
	h := hs.Next()
	if err := gfx.Texture(b, h, img.Desc(), img.Pix); err != nil {
		return backend.InvalidHandle, fmt.Errorf("texture: upload: %w", err)
	}
	return h, nil
}

// NRGBA returns a view of the texel data as an image.
func (img *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pix,
		Stride: int(img.Width) * 4,
		Rect:   image.Rect(0, 0, int(img.Width), int(img.Height)),
	}
}

// Decode reads an encoded image and returns its texels and format name.
func Decode(r io.Reader, opts ...Option) (*Image, string, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrFormat
		}
		return nil, "", fmt.Errorf("texture: decode: %w", err)
	}
	img, err := FromImage(src, opts...)
	if err != nil {
		return nil, format, err
	}
	return img, format, nil
}

// Load decodes the image file at path.
func Load(path string, opts ...Option) (*Image, error) {
	data, err := fileio.ReadWholeFile(path)
	if err != nil {
		return nil, err
	}
	img, format, err := Decode(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	engine.Logger().Debug("texture loaded", "path", path, "format", format,
		"width", img.Width, "height", img.Height)
	return img, nil
}

// FromImage converts src to RGBA8 texels, applying the options.
func FromImage(src image.Image, opts ...Option) (*Image, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sb := src.Bounds()
	if sb.Empty() {
		return nil, ErrEmpty
	}
	w, h := fit(sb.Dx(), sb.Dy(), o.maxSize)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
	} else {
		o.filter.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	}
	if o.flipY {
		flip(dst)
	}

	format := backend.TextureFormatRGBA8Unorm
	if o.srgb {
		format = backend.TextureFormatRGBA8UnormSRGB
	}
	return &Image{Width: uint32(w), Height: uint32(h), Format: format, Pix: dst.Pix}, nil
}

// fit scales (w, h) down so neither side exceeds limit, keeping the aspect
// ratio. A limit <= 0 disables scaling.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

func flip(img *image.NRGBA) {
	rows := img.Rect.Dy()
	tmp := make([]byte, img.Stride)
	for y := 0; y < rows/2; y++ {
		a := img.Pix[y*img.Stride : (y+1)*img.Stride]
		b := img.Pix[(rows-1-y)*img.Stride : (rows-y)*img.Stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

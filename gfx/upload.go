package gfx

import (
	"fmt"

	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
)

// Shader queues the creation of a shader from WGSL source.
func Shader(b *cmdbuf.Buffer, h backend.Handle, wgsl string) error {
	c, tail, err := cmdbuf.AddExtra[CreateShader](b, SetupKey(StepUpload), len(wgsl))
	if err != nil {
		return fmt.Errorf("gfx: queue shader %d: %w", h, err)
	}
	c.Handle = h
	copy(tail, wgsl)
	return nil
}

// Upload queues the creation of a buffer holding a copy of data.
func Upload(b *cmdbuf.Buffer, h backend.Handle, usage backend.BufferUsage, data []byte) error {
	c, tail, err := cmdbuf.AddExtra[CreateBuffer](b, SetupKey(StepUpload), len(data))
	if err != nil {
		return fmt.Errorf("gfx: queue buffer %d: %w", h, err)
	}
	c.Handle = h
	c.Usage = usage
	copy(tail, data)
	return nil
}

// Update queues a partial buffer overwrite.
func Update(b *cmdbuf.Buffer, h backend.Handle, offset uint32, data []byte) error {
	c, tail, err := cmdbuf.AddExtra[UpdateBuffer](b, SetupKey(StepUpload), len(data))
	if err != nil {
		return fmt.Errorf("gfx: queue buffer update %d: %w", h, err)
	}
	c.Handle = h
	c.Offset = offset
	copy(tail, data)
	return nil
}

// Texture queues the creation of a texture. pixels must hold desc.Size()
// bytes; shorter data is rejected before anything is encoded.
func Texture(b *cmdbuf.Buffer, h backend.Handle, desc backend.TextureDesc, pixels []byte) error {
	if len(pixels) != desc.Size() {
		return fmt.Errorf("gfx: queue texture %d: %d bytes of pixels for %dx%d: %w",
			h, len(pixels), desc.Width, desc.Height, ErrPixelSize)
	}
	c, tail, err := cmdbuf.AddExtra[CreateTexture](b, SetupKey(StepUpload), len(pixels))
	if err != nil {
		return fmt.Errorf("gfx: queue texture %d: %w", h, err)
	}
	c.Handle = h
	c.Desc = desc
	copy(tail, pixels)
	return nil
}

// VertexArray queues the creation of a vertex array. It is keyed after
// buffer uploads submitted earlier in the same frame.
func VertexArray(b *cmdbuf.Buffer, h backend.Handle, desc *backend.VertexArrayDesc) error {
	c, err := cmdbuf.Add[CreateVertexArray](b, SetupKey(StepUpload))
	if err != nil {
		return fmt.Errorf("gfx: queue vertex array %d: %w", h, err)
	}
	c.Handle = h
	c.Desc = *desc
	return nil
}

// Release queues the destruction of resources. Destruction dispatches after
// the frame's uploads and clears and before any world geometry, so a
// released handle must not be drawn in the same frame.
func Release(b *cmdbuf.Buffer, hs ...backend.Handle) error {
	for _, h := range hs {
		c, err := cmdbuf.Add[Destroy](b, SetupKey(StepDestroy))
		if err != nil {
			return fmt.Errorf("gfx: queue destroy %d: %w", h, err)
		}
		c.Handle = h
	}
	return nil
}

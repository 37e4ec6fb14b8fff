package mesh

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/gfx"
	"github.com/gogpu/engine/sortkey"
)

// Resources are the GPU objects holding an uploaded mesh.
type Resources struct {
	VertexBuffer backend.Handle
	IndexBuffer  backend.Handle
	VertexArray  backend.Handle
	IndexCount   uint32
}

// Upload queues the creation of m's buffers and vertex array, reserving
// handles from hs.
func (m *Mesh) Upload(b *cmdbuf.Buffer, hs *backend.Handles) (Resources, error) {
	r := Resources{
		VertexBuffer: hs.Next(),
		IndexBuffer:  hs.Next(),
		VertexArray:  hs.Next(),
		IndexCount:   uint32(len(m.Indices)),
	}
	if err := gfx.Upload(b, r.VertexBuffer, backend.BufferUsageVertex, m.VertexBytes()); err != nil {
		return Resources{}, fmt.Errorf("mesh: upload %s: %w", m.Name, err)
	}
	if err := gfx.Upload(b, r.IndexBuffer, backend.BufferUsageIndex, m.IndexBytes()); err != nil {
		return Resources{}, fmt.Errorf("mesh: upload %s: %w", m.Name, err)
	}
	desc := Layout()
	desc.VertexBuffer = r.VertexBuffer
	desc.IndexBuffer = r.IndexBuffer
	desc.IndexFormat = m.IndexFormat()
	if err := gfx.VertexArray(b, r.VertexArray, &desc); err != nil {
		return Resources{}, fmt.Errorf("mesh: upload %s: %w", m.Name, err)
	}
	return r, nil
}

// Draw queues one indexed draw of the whole mesh. uniforms, if not empty,
// are copied into the packet and set before drawing. The returned command
// can be extended with cmdbuf.Append.
func (r Resources) Draw(b *cmdbuf.Buffer, key sortkey.Key, shader, texture backend.Handle, uniforms []byte) (*gfx.DrawMesh, error) {
	c, tail, err := cmdbuf.AddExtra[gfx.DrawMesh](b, key, len(uniforms))
	if err != nil {
		return nil, fmt.Errorf("mesh: draw: %w", err)
	}
	*c = gfx.DrawMesh{
		Shader:      shader,
		VertexArray: r.VertexArray,
		Texture:     texture,
		Topology:    gputypes.PrimitiveTopologyTriangleList,
		Count:       r.IndexCount,
		Indexed:     true,
	}
	copy(tail, uniforms)
	return c, nil
}

// Release queues the destruction of the mesh's GPU objects.
func (r Resources) Release(b *cmdbuf.Buffer) error {
	return gfx.Release(b, r.VertexArray, r.VertexBuffer, r.IndexBuffer)
}

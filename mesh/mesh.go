// Package mesh loads triangle meshes and turns them into GPU uploads.
//
// Meshes are parsed from Wavefront OBJ into interleaved vertices
// (position, normal, uv) with an index list. Upload queues the vertex and
// index buffers plus a vertex array on a command buffer; the returned
// Resources draw the mesh with a single gfx.DrawMesh packet.
package mesh

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/mathx"
)

// Vertex is one interleaved vertex as laid out in the vertex buffer.
type Vertex struct {
	Position mathx.Vec3
	Normal   mathx.Vec3
	UV       [2]float32
}

// VertexStride is the byte size of one Vertex in the vertex buffer.
const VertexStride = 32

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max mathx.Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mathx.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extent along each axis.
func (b Bounds) Size() mathx.Vec3 {
	return b.Max.Sub(b.Min)
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// IndexFormat returns the narrowest index format that addresses every vertex.
func (m *Mesh) IndexFormat() backend.IndexFormat {
	if len(m.Vertices) <= math.MaxUint16+1 {
		return backend.IndexFormatUint16
	}
	return backend.IndexFormatUint32
}

// VertexBytes returns the little-endian vertex buffer contents.
func (m *Mesh) VertexBytes() []byte {
	b := make([]byte, 0, len(m.Vertices)*VertexStride)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		for _, f := range [8]float32{
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.UV[0], v.UV[1],
		} {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
	}
	return b
}

// IndexBytes returns the index buffer contents in IndexFormat.
func (m *Mesh) IndexBytes() []byte {
	if m.IndexFormat() == backend.IndexFormatUint16 {
		b := make([]byte, 0, len(m.Indices)*2)
		for _, i := range m.Indices {
			b = binary.LittleEndian.AppendUint16(b, uint16(i))
		}
		return b
	}
	b := make([]byte, 0, len(m.Indices)*4)
	for _, i := range m.Indices {
		b = binary.LittleEndian.AppendUint32(b, i)
	}
	return b
}

// Layout returns the vertex layout of Vertex: position at location 0,
// normal at 1 and uv at 2. Buffers and index format are left unset.
func Layout() backend.VertexArrayDesc {
	d := backend.VertexArrayDesc{Stride: VertexStride}
	d.AddAttribute(backend.VertexAttribute{Location: 0, Offset: 0, Format: backend.VertexFormatFloat32x3})
	d.AddAttribute(backend.VertexAttribute{Location: 1, Offset: 12, Format: backend.VertexFormatFloat32x3})
	d.AddAttribute(backend.VertexAttribute{Location: 2, Offset: 24, Format: backend.VertexFormatFloat32x2})
	return d
}

func (m *Mesh) computeBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = Bounds{}
		return
	}
	b := Bounds{Min: m.Vertices[0].Position, Max: m.Vertices[0].Position}
	for _, v := range m.Vertices[1:] {
		b.Min = b.Min.Min(v.Position)
		b.Max = b.Max.Max(v.Position)
	}
	m.Bounds = b
}

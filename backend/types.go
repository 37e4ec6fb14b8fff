package backend

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageMapWrite indicates the buffer can be mapped for writing.
	BufferUsageMapWrite BufferUsage = 1 << 1

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageIndex indicates the buffer can be used as an index buffer.
	BufferUsageIndex BufferUsage = 1 << 4

	// BufferUsageVertex indicates the buffer can be used as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 5

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatRGBA8UnormSRGB is 8-bit RGBA in sRGB color space.
	TextureFormatRGBA8UnormSRGB

	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	TextureFormatBGRA8Unorm

	// TextureFormatR8Unorm is 8-bit red channel only.
	TextureFormatR8Unorm

	// TextureFormatRGBA32Float is 32-bit RGBA, floating point.
	TextureFormatRGBA32Float
)

// BytesPerPixel returns the size of one texel, or 0 for unknown formats.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSRGB, TextureFormatBGRA8Unorm:
		return 4
	case TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Width  uint32
	Height uint32
	Format TextureFormat
}

// Size returns the byte size of tightly packed pixel data for the texture.
func (d *TextureDesc) Size() int {
	return int(d.Width) * int(d.Height) * d.Format.BytesPerPixel()
}

// VertexFormat is the type of a vertex attribute.
type VertexFormat uint8

// Vertex formats.
const (
	VertexFormatFloat32 VertexFormat = iota + 1
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUnorm8x4
)

// Size returns the byte size of one attribute value.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFormatFloat32, VertexFormatUnorm8x4:
		return 4
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	default:
		return 0
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat uint8

// Index formats.
const (
	IndexFormatNone IndexFormat = iota
	IndexFormatUint16
	IndexFormatUint32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() uint32 {
	switch f {
	case IndexFormatUint16:
		return 2
	case IndexFormatUint32:
		return 4
	default:
		return 0
	}
}

// MaxVertexAttributes bounds the attributes of one vertex layout.
const MaxVertexAttributes = 8

// VertexAttribute describes one attribute inside an interleaved vertex.
type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexFormat
}

// VertexArrayDesc binds buffers to a vertex layout. It is a fixed-size
// value so it can travel inside command payloads.
type VertexArrayDesc struct {
	VertexBuffer  Handle
	IndexBuffer   Handle
	IndexFormat   IndexFormat
	Stride        uint32
	NumAttributes uint32
	Attributes    [MaxVertexAttributes]VertexAttribute
}

// AddAttribute appends an attribute, reporting false when the layout is full.
func (d *VertexArrayDesc) AddAttribute(a VertexAttribute) bool {
	if d.NumAttributes >= MaxVertexAttributes {
		return false
	}
	d.Attributes[d.NumAttributes] = a
	d.NumAttributes++
	return true
}

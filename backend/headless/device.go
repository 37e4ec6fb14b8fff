// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"
)

// Headless device errors.
var (
	// ErrOutOfRange is returned when a draw, update or binding reaches past
	// the resources it refers to.
	ErrOutOfRange = errors.New("headless: access out of range")

	// ErrDataSize is returned when texture pixels do not match the descriptor.
	ErrDataSize = errors.New("headless: data size mismatch")

	// ErrDestroyed is returned for a handle whose resource was destroyed.
	// Handles are never reused, so it always indicates a stale reference.
	// Errors wrapping it also match backend.ErrInvalidHandle.
	ErrDestroyed = errors.New("headless: resource destroyed")
)

// MaxTextureSlots is the number of sampler slots.
const MaxTextureSlots = 8

func init() {
	backend.Register(backend.BackendHeadless, func() backend.Device {
		return New()
	})
}

type kind uint8

const (
	kindShader kind = iota + 1
	kindBuffer
	kindVertexArray
	kindTexture
)

func (k kind) String() string {
	switch k {
	case kindShader:
		return "shader"
	case kindBuffer:
		return "buffer"
	case kindVertexArray:
		return "vertex array"
	case kindTexture:
		return "texture"
	default:
		return "resource"
	}
}

type resource struct {
	kind kind

	shader hal.ShaderModuleDescriptor

	buffer hal.BufferDescriptor
	data   []byte

	layout backend.VertexArrayDesc

	texture hal.TextureDescriptor
	desc    backend.TextureDesc
	pixels  []byte
}

// Device is a backend.Device that executes on the CPU.
//
// Device methods are meant for the render goroutine; the accessors
// (Framebuffer, Trace, DeviceStats, Texture) may be called from any
// goroutine.
type Device struct {
	opts options

	mu          sync.Mutex
	initialized bool
	threadBound bool
	resources   map[backend.Handle]*resource
	retired     *roaring.Bitmap
	fb          *image.RGBA
	viewport    image.Rectangle

	shader   backend.Handle
	vao      backend.Handle
	textures [MaxTextureSlots]backend.Handle
	uniforms []byte

	stats backend.DeviceStats
	trace []Call
}

// New creates an uninitialized headless device.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{opts: o}
}

// Name implements backend.Device.
func (d *Device) Name() string {
	return backend.BackendHeadless
}

// Init allocates the framebuffer and resource tables.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resources = make(map[backend.Handle]*resource)
	d.retired = roaring.New()
	d.fb = image.NewRGBA(image.Rect(0, 0, d.opts.width, d.opts.height))
	d.viewport = d.fb.Bounds()
	d.stats = backend.DeviceStats{}
	d.trace = d.trace[:0]
	d.initialized = true

	engine.Logger().Info("headless device initialized",
		"width", d.opts.width, "height", d.opts.height)
	return nil
}

// Close releases every resource. The device can be initialized again.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		engine.Logger().Debug("headless device closed",
			"resources", len(d.resources), "frames", d.stats.Frames)
	}
	d.resources = nil
	d.retired = nil
	d.fb = nil
	d.shader, d.vao = backend.InvalidHandle, backend.InvalidHandle
	d.textures = [MaxTextureSlots]backend.Handle{}
	d.uniforms = nil
	d.initialized = false
	return nil
}

// BindThread implements backend.ThreadBinder.
func (d *Device) BindThread() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threadBound = true
	return nil
}

// ThreadBound reports whether BindThread was called.
func (d *Device) ThreadBound() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threadBound
}

// --------------------------------------------------------------------------
// Resources
// --------------------------------------------------------------------------

// CreateShader compiles WGSL to SPIR-V, unless validation is disabled.
func (d *Device) CreateShader(h backend.Handle, wgsl []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.createShader(h, wgsl)
	d.record(Call{Op: OpCreateShader, Handle: h, Err: err != nil})
	return err
}

func (d *Device) createShader(h backend.Handle, wgsl []byte) error {
	if err := d.checkNew(h); err != nil {
		return err
	}

	opts := naga.DefaultOptions()
	opts.Validate = d.opts.validate
	spirv, err := naga.CompileWithOptions(string(wgsl), opts)
	if err != nil {
		engine.Logger().Warn("shader compilation failed", "handle", h, "error", err)
		return fmt.Errorf("headless: compile shader %d: %w", h, err)
	}

	d.resources[h] = &resource{
		kind:   kindShader,
		shader: backend.ShaderDescriptor(fmt.Sprintf("shader-%d", h), spirv),
	}
	return nil
}

// CreateBuffer implements backend.Device.
func (d *Device) CreateBuffer(h backend.Handle, usage backend.BufferUsage, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.checkNew(h)
	if err == nil {
		d.resources[h] = &resource{
			kind:   kindBuffer,
			buffer: backend.BufferDescriptor(fmt.Sprintf("buffer-%d", h), usage, len(data)),
			data:   append([]byte(nil), data...),
		}
	}
	d.record(Call{Op: OpCreateBuffer, Handle: h, Err: err != nil})
	return err
}

// UpdateBuffer implements backend.Device.
func (d *Device) UpdateBuffer(h backend.Handle, offset uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.updateBuffer(h, offset, data)
	d.record(Call{Op: OpUpdateBuffer, Handle: h, Err: err != nil})
	return err
}

func (d *Device) updateBuffer(h backend.Handle, offset uint32, data []byte) error {
	r, err := d.lookup(h, kindBuffer)
	if err != nil {
		return err
	}
	end := uint64(offset) + uint64(len(data))
	if end > r.buffer.Size {
		return fmt.Errorf("headless: update buffer %d [%d:%d] of %d: %w",
			h, offset, end, r.buffer.Size, ErrOutOfRange)
	}
	copy(r.data[offset:], data)
	return nil
}

// CreateVertexArray checks that the referenced buffers exist and carry the
// right usage.
func (d *Device) CreateVertexArray(h backend.Handle, desc *backend.VertexArrayDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.createVertexArray(h, desc)
	d.record(Call{Op: OpCreateVertexArray, Handle: h, Err: err != nil})
	return err
}

func (d *Device) createVertexArray(h backend.Handle, desc *backend.VertexArrayDesc) error {
	if err := d.checkNew(h); err != nil {
		return err
	}
	vb, err := d.lookup(desc.VertexBuffer, kindBuffer)
	if err != nil {
		return fmt.Errorf("headless: vertex array %d: %w", h, err)
	}
	if vb.buffer.Usage&gputypes.BufferUsageVertex == 0 {
		return fmt.Errorf("headless: vertex array %d: buffer %d lacks vertex usage: %w",
			h, desc.VertexBuffer, backend.ErrInvalidHandle)
	}
	if desc.IndexFormat != backend.IndexFormatNone {
		ib, err := d.lookup(desc.IndexBuffer, kindBuffer)
		if err != nil {
			return fmt.Errorf("headless: vertex array %d: %w", h, err)
		}
		if ib.buffer.Usage&gputypes.BufferUsageIndex == 0 {
			return fmt.Errorf("headless: vertex array %d: buffer %d lacks index usage: %w",
				h, desc.IndexBuffer, backend.ErrInvalidHandle)
		}
	}
	if desc.NumAttributes > backend.MaxVertexAttributes {
		return fmt.Errorf("headless: vertex array %d: %d attributes: %w", h, desc.NumAttributes, ErrOutOfRange)
	}
	for _, a := range desc.Attributes[:desc.NumAttributes] {
		if a.Offset+a.Format.Size() > desc.Stride {
			return fmt.Errorf("headless: vertex array %d: attribute %d exceeds stride %d: %w",
				h, a.Location, desc.Stride, ErrOutOfRange)
		}
	}

	d.resources[h] = &resource{kind: kindVertexArray, layout: *desc}
	return nil
}

// CreateTexture implements backend.Device.
func (d *Device) CreateTexture(h backend.Handle, desc *backend.TextureDesc, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.checkNew(h)
	if err == nil && len(pixels) != desc.Size() {
		err = fmt.Errorf("headless: texture %d: %d bytes for %dx%d: %w",
			h, len(pixels), desc.Width, desc.Height, ErrDataSize)
	}
	if err == nil {
		d.resources[h] = &resource{
			kind:    kindTexture,
			texture: backend.TextureDescriptor(fmt.Sprintf("texture-%d", h), desc),
			desc:    *desc,
			pixels:  append([]byte(nil), pixels...),
		}
	}
	d.record(Call{Op: OpCreateTexture, Handle: h, Err: err != nil})
	return err
}

// Destroy implements backend.Device. Bindings of the resource are cleared
// and the handle is retired.
func (d *Device) Destroy(h backend.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.resources[h]; ok {
		d.retired.Add(uint32(h))
		delete(d.resources, h)
	}
	if d.shader == h {
		d.shader = backend.InvalidHandle
	}
	if d.vao == h {
		d.vao = backend.InvalidHandle
	}
	for i := range d.textures {
		if d.textures[i] == h {
			d.textures[i] = backend.InvalidHandle
		}
	}
	d.record(Call{Op: OpDestroy, Handle: h})
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// SetViewport implements backend.Device. The origin is the top-left corner
// of the framebuffer; the area is clipped to it.
func (d *Device) SetViewport(v backend.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fb != nil {
		r := image.Rect(int(v.X), int(v.Y), int(v.X+v.Width), int(v.Y+v.Height))
		d.viewport = r.Intersect(d.fb.Bounds())
	}
	d.record(Call{Op: OpSetViewport})
}

// Clear fills the viewport of the framebuffer.
func (d *Device) Clear(c gputypes.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fb != nil {
		src := image.NewUniform(toNRGBA(c))
		draw.Draw(d.fb, d.viewport, src, image.Point{}, draw.Src)
	}
	d.record(Call{Op: OpClear})
}

// BindShader implements backend.Device.
func (d *Device) BindShader(h backend.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.lookup(h, kindShader)
	if err == nil {
		d.shader = h
	}
	d.record(Call{Op: OpBindShader, Handle: h, Err: err != nil})
	return err
}

// BindVertexArray implements backend.Device.
func (d *Device) BindVertexArray(h backend.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.lookup(h, kindVertexArray)
	if err == nil {
		d.vao = h
	}
	d.record(Call{Op: OpBindVertexArray, Handle: h, Err: err != nil})
	return err
}

// BindTexture implements backend.Device.
func (d *Device) BindTexture(slot uint32, h backend.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if slot >= MaxTextureSlots {
		err = fmt.Errorf("headless: texture slot %d: %w", slot, ErrOutOfRange)
	} else if _, err = d.lookup(h, kindTexture); err == nil {
		d.textures[slot] = h
	}
	d.record(Call{Op: OpBindTexture, Handle: h, Err: err != nil})
	return err
}

// SetUniforms keeps a copy of the uniform block for the bound shader.
func (d *Device) SetUniforms(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if !d.shader.IsValid() {
		err = fmt.Errorf("headless: set uniforms: %w", backend.ErrNothingBound)
	} else {
		d.uniforms = append(d.uniforms[:0], data...)
	}
	d.record(Call{Op: OpSetUniforms, Handle: d.shader, Err: err != nil})
	return err
}

// --------------------------------------------------------------------------
// Drawing
// --------------------------------------------------------------------------

// Draw validates a non-indexed draw against the bound vertex buffer.
func (d *Device) Draw(_ gputypes.PrimitiveTopology, first, count uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.draw(first, count, false)
	d.record(Call{Op: OpDraw, Handle: d.vao, Count: count, Err: err != nil})
	return err
}

// DrawIndexed validates an indexed draw: the index range must lie in the
// index buffer and every index must address a vertex.
func (d *Device) DrawIndexed(_ gputypes.PrimitiveTopology, first, count uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.draw(first, count, true)
	d.record(Call{Op: OpDrawIndexed, Handle: d.vao, Count: count, Err: err != nil})
	return err
}

func (d *Device) draw(first, count uint32, indexed bool) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if !d.shader.IsValid() || !d.vao.IsValid() {
		return backend.ErrNothingBound
	}
	va, err := d.lookup(d.vao, kindVertexArray)
	if err != nil {
		return err
	}
	layout := &va.layout
	vb, err := d.lookup(layout.VertexBuffer, kindBuffer)
	if err != nil {
		return err
	}

	vertices := uint64(0)
	if layout.Stride > 0 {
		vertices = uint64(len(vb.data)) / uint64(layout.Stride)
	}
	end := uint64(first) + uint64(count)

	if !indexed {
		if layout.Stride > 0 && end > vertices {
			return fmt.Errorf("headless: draw [%d:%d] of %d vertices: %w", first, end, vertices, ErrOutOfRange)
		}
	} else {
		size := layout.IndexFormat.Size()
		if size == 0 {
			return fmt.Errorf("headless: indexed draw without index buffer: %w", backend.ErrNothingBound)
		}
		ib, err := d.lookup(layout.IndexBuffer, kindBuffer)
		if err != nil {
			return err
		}
		if end*uint64(size) > uint64(len(ib.data)) {
			return fmt.Errorf("headless: draw indexed [%d:%d] of %d indices: %w",
				first, end, len(ib.data)/int(size), ErrOutOfRange)
		}
		for i := uint64(first); i < end; i++ {
			if idx := readIndex(ib.data, i, size); layout.Stride > 0 && uint64(idx) >= vertices {
				return fmt.Errorf("headless: index %d addresses vertex %d of %d: %w", i, idx, vertices, ErrOutOfRange)
			}
		}
	}

	d.stats.DrawCalls++
	d.stats.Vertices += uint64(count)
	return nil
}

func readIndex(data []byte, i uint64, size uint32) uint32 {
	off := i * uint64(size)
	if size == 2 {
		return uint32(data[off]) | uint32(data[off+1])<<8
	}
	return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
}

// Present ends the frame and runs the present hook.
func (d *Device) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return backend.ErrNotInitialized
	}
	d.stats.Frames++
	if d.opts.onPresent != nil {
		d.opts.onPresent(d.stats.Frames, d.fb)
	}
	d.record(Call{Op: OpPresent})
	return nil
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// DeviceStats implements backend.Stats.
func (d *Device) DeviceStats() backend.DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Resources = len(d.resources)
	return s
}

// Framebuffer returns a copy of the framebuffer, or nil before Init.
func (d *Device) Framebuffer() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fb == nil {
		return nil
	}
	fb := image.NewRGBA(d.fb.Rect)
	copy(fb.Pix, d.fb.Pix)
	return fb
}

// Retired returns the number of handles destroyed since Init.
func (d *Device) Retired() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.retired == nil {
		return 0
	}
	return d.retired.GetCardinality()
}

// Trace returns the calls recorded since Init when WithTrace is set.
func (d *Device) Trace() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.trace...)
}

// Texture returns a copy of an 8-bit texture as an image.
// R8 textures are returned as *image.Gray, RGBA and BGRA as *image.RGBA.
func (d *Device) Texture(h backend.Handle) (image.Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.lookup(h, kindTexture)
	if err != nil {
		return nil, false
	}
	rect := image.Rect(0, 0, int(r.desc.Width), int(r.desc.Height))
	switch r.desc.Format {
	case backend.TextureFormatR8Unorm:
		img := image.NewGray(rect)
		copy(img.Pix, r.pixels)
		return img, true
	case backend.TextureFormatRGBA8Unorm, backend.TextureFormatRGBA8UnormSRGB:
		img := image.NewRGBA(rect)
		copy(img.Pix, r.pixels)
		return img, true
	case backend.TextureFormatBGRA8Unorm:
		img := image.NewRGBA(rect)
		for i := 0; i+3 < len(r.pixels); i += 4 {
			img.Pix[i+0] = r.pixels[i+2]
			img.Pix[i+1] = r.pixels[i+1]
			img.Pix[i+2] = r.pixels[i+0]
			img.Pix[i+3] = r.pixels[i+3]
		}
		return img, true
	default:
		return nil, false
	}
}

// Uniforms returns a copy of the last uniform block.
func (d *Device) Uniforms() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.uniforms...)
}

// --------------------------------------------------------------------------
// Helpers (d.mu held)
// --------------------------------------------------------------------------

func (d *Device) checkNew(h backend.Handle) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if !h.IsValid() {
		return backend.ErrInvalidHandle
	}
	if d.retired.Contains(uint32(h)) {
		return fmt.Errorf("headless: handle %d: %w: %w", h, ErrDestroyed, backend.ErrInvalidHandle)
	}
	return nil
}

func (d *Device) lookup(h backend.Handle, want kind) (*resource, error) {
	if !d.initialized {
		return nil, backend.ErrNotInitialized
	}
	r, ok := d.resources[h]
	if !ok && d.retired.Contains(uint32(h)) {
		return nil, fmt.Errorf("headless: %s %d: %w: %w", want, h, ErrDestroyed, backend.ErrInvalidHandle)
	}
	if !ok || r.kind != want {
		return nil, fmt.Errorf("headless: %s %d: %w", want, h, backend.ErrInvalidHandle)
	}
	return r, nil
}

func (d *Device) record(c Call) {
	if d.opts.trace {
		d.trace = append(d.trace, c)
	}
}

func toNRGBA(c gputypes.Color) color.NRGBA {
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrInvalidHandle is returned when a handle does not name a live resource
	// of the expected kind.
	ErrInvalidHandle = errors.New("backend: invalid handle")

	// ErrNothingBound is returned when drawing without a bound shader or vertex array.
	ErrNothingBound = errors.New("backend: draw without bound pipeline")
)

// Handle is an opaque resource id. Handles are reserved by the producer
// (see [Handles]) so commands can refer to resources before the render
// goroutine has created them. The zero Handle is invalid.
type Handle uint32

// InvalidHandle is the zero value, representing a null resource.
const InvalidHandle Handle = 0

// IsValid reports whether h is not the null handle.
func (h Handle) IsValid() bool {
	return h != InvalidHandle
}

// Handles reserves resource handles. It is safe for concurrent use.
type Handles struct {
	next atomic.Uint32
}

// Next reserves a fresh handle.
func (hs *Handles) Next() Handle {
	return Handle(hs.next.Add(1))
}

// Viewport is a rectangle of the render target in pixels.
type Viewport struct {
	X, Y          int32
	Width, Height int32
}

// Device is the graphics backend collaborator.
//
// All methods are called from the render goroutine. Resource creation
// methods receive a handle reserved by the producer; creating a resource
// for a live handle replaces it.
type Device interface {
	// Name returns the backend identifier (e.g., "headless", "gl").
	Name() string

	// Init initializes the device. It must be called before any other method.
	Init() error

	// Close releases all device resources.
	Close() error

	// CreateShader compiles WGSL source into a shader program.
	CreateShader(h Handle, wgsl []byte) error

	// CreateBuffer creates a GPU buffer initialized with data.
	CreateBuffer(h Handle, usage BufferUsage, data []byte) error

	// UpdateBuffer overwrites part of an existing buffer.
	UpdateBuffer(h Handle, offset uint32, data []byte) error

	// CreateVertexArray binds vertex/index buffers to a vertex layout.
	CreateVertexArray(h Handle, desc *VertexArrayDesc) error

	// CreateTexture creates a 2D texture from tightly packed pixels.
	CreateTexture(h Handle, desc *TextureDesc, pixels []byte) error

	// Destroy releases the resource named by h. Unknown handles are ignored.
	Destroy(h Handle)

	// SetViewport sets the render target area for subsequent draws.
	SetViewport(v Viewport)

	// Clear fills the current viewport with a color.
	Clear(c gputypes.Color)

	// BindShader makes a shader current.
	BindShader(h Handle) error

	// BindVertexArray makes a vertex array current.
	BindVertexArray(h Handle) error

	// BindTexture binds a texture to a sampler slot.
	BindTexture(slot uint32, h Handle) error

	// SetUniforms uploads the uniform block of the current shader.
	SetUniforms(data []byte) error

	// Draw issues a non-indexed draw of count vertices starting at first.
	Draw(topology gputypes.PrimitiveTopology, first, count uint32) error

	// DrawIndexed issues an indexed draw using the bound vertex array's index buffer.
	DrawIndexed(topology gputypes.PrimitiveTopology, first, count uint32) error

	// Present swaps buffers at the end of a frame.
	Present() error
}

// ThreadBinder is implemented by devices whose context is bound to an OS
// thread. BindThread is called once on the render goroutine, after it has
// been locked to its thread and before any other device call.
type ThreadBinder interface {
	BindThread() error
}

// Stats is implemented by devices that count their work.
type Stats interface {
	// DeviceStats returns counters accumulated since Init.
	DeviceStats() DeviceStats
}

// DeviceStats holds device work counters.
type DeviceStats struct {
	Frames    uint64 // Present calls
	DrawCalls uint64 // Draw and DrawIndexed calls
	Vertices  uint64 // Vertices or indices submitted
	Resources int    // Live resources
}

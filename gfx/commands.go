// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"

	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/gputypes"
)

// --------------------------------------------------------------------------
// Setup Commands
// --------------------------------------------------------------------------

// Clear fills the current viewport with Color.
type Clear struct {
	Color gputypes.Color
}

// Execute implements cmdbuf.Command.
func (c *Clear) Execute(ctx *cmdbuf.Context) {
	ctx.Device.Clear(c.Color)
}

// SetViewport selects the render target area.
type SetViewport struct {
	Viewport backend.Viewport
}

// Execute implements cmdbuf.Command.
func (c *SetViewport) Execute(ctx *cmdbuf.Context) {
	ctx.Device.SetViewport(c.Viewport)
}

// CreateShader compiles the WGSL source held in the extra bytes.
type CreateShader struct {
	Handle backend.Handle
}

// Execute implements cmdbuf.Command.
func (c *CreateShader) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.CreateShader(c.Handle, ctx.Extra()); err != nil {
		ctx.Fail(fmt.Errorf("gfx: create shader %d: %w", c.Handle, err))
	}
}

// CreateBuffer creates a buffer initialized with the extra bytes.
type CreateBuffer struct {
	Handle backend.Handle
	Usage  backend.BufferUsage
}

// Execute implements cmdbuf.Command.
func (c *CreateBuffer) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.CreateBuffer(c.Handle, c.Usage, ctx.Extra()); err != nil {
		ctx.Fail(fmt.Errorf("gfx: create buffer %d: %w", c.Handle, err))
	}
}

// UpdateBuffer overwrites part of a buffer with the extra bytes.
type UpdateBuffer struct {
	Handle backend.Handle
	Offset uint32
}

// Execute implements cmdbuf.Command.
func (c *UpdateBuffer) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.UpdateBuffer(c.Handle, c.Offset, ctx.Extra()); err != nil {
		ctx.Fail(fmt.Errorf("gfx: update buffer %d: %w", c.Handle, err))
	}
}

// CreateVertexArray binds buffers to a vertex layout.
type CreateVertexArray struct {
	Handle backend.Handle
	Desc   backend.VertexArrayDesc
}

// Execute implements cmdbuf.Command.
func (c *CreateVertexArray) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.CreateVertexArray(c.Handle, &c.Desc); err != nil {
		ctx.Fail(fmt.Errorf("gfx: create vertex array %d: %w", c.Handle, err))
	}
}

// CreateTexture creates a texture from the pixels held in the extra bytes.
type CreateTexture struct {
	Handle backend.Handle
	Desc   backend.TextureDesc
}

// Execute implements cmdbuf.Command.
func (c *CreateTexture) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.CreateTexture(c.Handle, &c.Desc, ctx.Extra()); err != nil {
		ctx.Fail(fmt.Errorf("gfx: create texture %d: %w", c.Handle, err))
	}
}

// Destroy releases a resource.
type Destroy struct {
	Handle backend.Handle
}

// Execute implements cmdbuf.Command.
func (c *Destroy) Execute(ctx *cmdbuf.Context) {
	ctx.Device.Destroy(c.Handle)
}

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// BindShader makes a shader current.
type BindShader struct {
	Handle backend.Handle
}

// Execute implements cmdbuf.Command.
func (c *BindShader) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.BindShader(c.Handle); err != nil {
		ctx.Fail(fmt.Errorf("gfx: bind shader %d: %w", c.Handle, err))
	}
}

// BindVertexArray makes a vertex array current.
type BindVertexArray struct {
	Handle backend.Handle
}

// Execute implements cmdbuf.Command.
func (c *BindVertexArray) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.BindVertexArray(c.Handle); err != nil {
		ctx.Fail(fmt.Errorf("gfx: bind vertex array %d: %w", c.Handle, err))
	}
}

// BindTexture binds a texture to a sampler slot.
type BindTexture struct {
	Slot   uint32
	Handle backend.Handle
}

// Execute implements cmdbuf.Command.
func (c *BindTexture) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.BindTexture(c.Slot, c.Handle); err != nil {
		ctx.Fail(fmt.Errorf("gfx: bind texture %d: %w", c.Handle, err))
	}
}

// SetUniforms uploads the extra bytes as the uniform block.
type SetUniforms struct{}

// Execute implements cmdbuf.Command.
func (c *SetUniforms) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.SetUniforms(ctx.Extra()); err != nil {
		ctx.Fail(fmt.Errorf("gfx: set uniforms: %w", err))
	}
}

// --------------------------------------------------------------------------
// Drawing Commands
// --------------------------------------------------------------------------

// Draw issues a non-indexed draw with the current state.
type Draw struct {
	Topology gputypes.PrimitiveTopology
	First    uint32
	Count    uint32
}

// Execute implements cmdbuf.Command.
func (c *Draw) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.Draw(c.Topology, c.First, c.Count); err != nil {
		ctx.Fail(fmt.Errorf("gfx: draw: %w", err))
	}
}

// DrawIndexed issues an indexed draw with the current state.
type DrawIndexed struct {
	Topology gputypes.PrimitiveTopology
	First    uint32
	Count    uint32
}

// Execute implements cmdbuf.Command.
func (c *DrawIndexed) Execute(ctx *cmdbuf.Context) {
	if err := ctx.Device.DrawIndexed(c.Topology, c.First, c.Count); err != nil {
		ctx.Fail(fmt.Errorf("gfx: draw indexed: %w", err))
	}
}

// DrawMesh binds a shader, vertex array and optional texture, uploads the
// uniform block held in the extra bytes (if any) and draws, all in one
// packet. Follow-up state changes can be chained with cmdbuf.Append.
type DrawMesh struct {
	Shader      backend.Handle
	VertexArray backend.Handle
	Texture     backend.Handle
	Topology    gputypes.PrimitiveTopology
	First       uint32
	Count       uint32
	Indexed     bool
}

// Execute implements cmdbuf.Command.
func (c *DrawMesh) Execute(ctx *cmdbuf.Context) {
	dev := ctx.Device
	if err := dev.BindShader(c.Shader); err != nil {
		ctx.Fail(fmt.Errorf("gfx: draw mesh: %w", err))
		return
	}
	if err := dev.BindVertexArray(c.VertexArray); err != nil {
		ctx.Fail(fmt.Errorf("gfx: draw mesh: %w", err))
		return
	}
	if c.Texture.IsValid() {
		if err := dev.BindTexture(0, c.Texture); err != nil {
			ctx.Fail(fmt.Errorf("gfx: draw mesh: %w", err))
			return
		}
	}
	if u := ctx.Extra(); len(u) > 0 {
		if err := dev.SetUniforms(u); err != nil {
			ctx.Fail(fmt.Errorf("gfx: draw mesh: %w", err))
			return
		}
	}

	var err error
	if c.Indexed {
		err = dev.DrawIndexed(c.Topology, c.First, c.Count)
	} else {
		err = dev.Draw(c.Topology, c.First, c.Count)
	}
	if err != nil {
		ctx.Fail(fmt.Errorf("gfx: draw mesh: %w", err))
	}
}

// Package gfx defines the render commands dispatched to a backend.Device.
//
// Every command is a small pointer-free struct; variable-size data (shader
// source, vertex data, pixels, uniforms) travels in the packet's extra
// bytes. Commands are encoded with cmdbuf.Add/Append or through the upload
// helpers in this package, and executed on the render goroutine.
//
// # Keys
//
// Resource uploads and clears use command keys on [LayerSetup] so they
// dispatch before any geometry of the frame:
//
//	gfx.Upload(buf, h, backend.BufferUsageVertex, vertices)
//	clear, _ := cmdbuf.Add[gfx.Clear](buf, gfx.SetupKey(gfx.StepClear))
//	draw, _ := cmdbuf.Add[gfx.DrawMesh](buf, gfx.OpaqueKey(0, material, depth))
package gfx

import (
	_ "embed"
)

// MeshShaderWGSL is the built-in shader for lit-less textured meshes. It
// expects the vertex layout produced by mesh.Layout and a uniform block of
// a column-major 4x4 matrix followed by an RGBA tint.
//
//go:embed shaders/mesh.wgsl
var MeshShaderWGSL string

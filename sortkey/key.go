// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sortkey implements the 64-bit keys used to order draw and
// command packets before dispatch.
//
// Fields are packed from the most significant bit down, so comparing two
// keys as plain integers sorts by fullscreen layer first, then viewport,
// viewport layer, blending type, the command flag and finally the
// material/depth tail:
//
//	63 62 | 61 60 59 | 58 57 56 | 55 54 | 53  | 52 ................... 0
//	 fsl  | viewport |  vp-layer| blend | cmd | tail (53 bits)
//
// The tail layout depends on the blending type:
//
//	opaque:      material (21 bits, 52..32) | depth (32 bits, 31..0)
//	translucent: depth    (32 bits, 52..21) | material (21 bits, 20..0)
//	command:     command info (53 bits, 52..0)
//
// Opaque geometry is thus grouped by material to minimize state changes,
// while translucent geometry is ordered by depth first.
package sortkey

import (
	"fmt"
	"sync/atomic"
)

// Key is a bit-packed 64-bit sort key. The zero value is a valid key with
// every field zero and opaque blending.
type Key uint64

// Blending selects how a draw is composited and therefore the tail layout.
type Blending uint8

// Blending types.
const (
	Opaque      Blending = iota // Material before depth
	Translucent                 // Depth before material
	Additive                    // Depth before material
	Subtractive                 // Depth before material
)

// String returns the blending type name.
func (b Blending) String() string {
	switch b {
	case Opaque:
		return "Opaque"
	case Translucent:
		return "Translucent"
	case Additive:
		return "Additive"
	case Subtractive:
		return "Subtractive"
	default:
		return fmt.Sprintf("Blending(%d)", uint8(b))
	}
}

// Field widths in bits.
const (
	FullscreenLayerBits = 2
	ViewportBits        = 3
	ViewportLayerBits   = 3
	BlendingBits        = 2
	CommandBits         = 1
	MaterialBits        = 21
	DepthBits           = 32
	CommandInfoBits     = 53
)

// Field offsets.
const (
	fullscreenLayerShift = 62
	viewportShift        = 59
	viewportLayerShift   = 56
	blendingShift        = 54
	commandShift         = 53

	opaqueMaterialShift      = 32
	opaqueDepthShift         = 0
	translucentDepthShift    = 21
	translucentMaterialShift = 0
	commandInfoShift         = 0
)

// Maximum field values.
const (
	MaxFullscreenLayer = 1<<FullscreenLayerBits - 1
	MaxViewport        = 1<<ViewportBits - 1
	MaxViewportLayer   = 1<<ViewportLayerBits - 1
	MaxMaterial        = 1<<MaterialBits - 1
	MaxDepth           = 1<<DepthBits - 1
	MaxCommandInfo     = 1<<CommandInfoBits - 1
)

// Field identifies a key field in a FieldError.
type Field uint8

// Key fields.
const (
	FieldFullscreenLayer Field = iota
	FieldViewport
	FieldViewportLayer
	FieldBlending
	FieldMaterial
	FieldDepth
	FieldCommandInfo
	FieldCommand
)

var fieldNames = [...]string{
	FieldFullscreenLayer: "fullscreen layer",
	FieldViewport:        "viewport",
	FieldViewportLayer:   "viewport layer",
	FieldBlending:        "blending",
	FieldMaterial:        "material",
	FieldDepth:           "depth",
	FieldCommandInfo:     "command info",
	FieldCommand:         "command",
}

// String returns the field name.
func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "unknown"
}

// FieldError describes a value that does not fit its field.
// It always indicates a logic bug in the code building the key.
type FieldError struct {
	Field Field
	Value uint64
	Max   uint64
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("sortkey: %s value %d out of range [0, %d]", e.Field, e.Value, e.Max)
}

// ErrorHandler is called when a setter receives an out-of-range value.
// If it returns, the key is left unchanged.
type ErrorHandler func(err *FieldError)

var handler atomic.Pointer[ErrorHandler]

// SetErrorHandler installs h as the out-of-range handler and returns the
// previous one. Pass nil to restore the default, which panics: continuing
// would silently corrupt neighboring fields.
//
// SetErrorHandler is safe for concurrent use.
func SetErrorHandler(h ErrorHandler) ErrorHandler {
	var prev *ErrorHandler
	if h == nil {
		prev = handler.Swap(nil)
	} else {
		prev = handler.Swap(&h)
	}
	if prev == nil {
		return nil
	}
	return *prev
}

func report(f Field, v, maxValue uint64) {
	err := &FieldError{Field: f, Value: v, Max: maxValue}
	if h := handler.Load(); h != nil {
		(*h)(err)
		return
	}
	panic(err)
}

func (k Key) get(shift, bits uint) uint64 {
	return uint64(k) >> shift & (1<<bits - 1)
}

// set writes v into the field if it fits, reporting otherwise.
func (k *Key) set(f Field, shift, bits uint, v uint64) {
	maxValue := uint64(1)<<bits - 1
	if v > maxValue {
		report(f, v, maxValue)
		return
	}
	mask := maxValue << shift
	*k = Key(uint64(*k)&^mask | v<<shift)
}

// FullscreenLayer returns the fullscreen layer (game, effects, HUD, ...).
func (k Key) FullscreenLayer() uint8 {
	return uint8(k.get(fullscreenLayerShift, FullscreenLayerBits))
}

// SetFullscreenLayer sets the fullscreen layer.
func (k *Key) SetFullscreenLayer(v uint8) {
	k.set(FieldFullscreenLayer, fullscreenLayerShift, FullscreenLayerBits, uint64(v))
}

// Viewport returns the viewport index.
func (k Key) Viewport() uint8 {
	return uint8(k.get(viewportShift, ViewportBits))
}

// SetViewport sets the viewport index.
func (k *Key) SetViewport(v uint8) {
	k.set(FieldViewport, viewportShift, ViewportBits, uint64(v))
}

// ViewportLayer returns the layer within the viewport (world, skybox, ...).
func (k Key) ViewportLayer() uint8 {
	return uint8(k.get(viewportLayerShift, ViewportLayerBits))
}

// SetViewportLayer sets the layer within the viewport.
func (k *Key) SetViewportLayer(v uint8) {
	k.set(FieldViewportLayer, viewportLayerShift, ViewportLayerBits, uint64(v))
}

// Blending returns the blending type.
func (k Key) Blending() Blending {
	return Blending(k.get(blendingShift, BlendingBits))
}

// SetBlending sets the blending type. It must be set before depth and
// material, whose position depends on it.
func (k *Key) SetBlending(b Blending) {
	k.set(FieldBlending, blendingShift, BlendingBits, uint64(b))
}

// IsCommand reports whether the command flag is set.
func (k Key) IsCommand() bool {
	return k.get(commandShift, CommandBits) != 0
}

// SetCommand sets or clears the command flag. With the flag set the tail
// holds command info instead of material and depth.
func (k *Key) SetCommand(on bool) {
	var v uint64
	if on {
		v = 1
	}
	k.set(FieldCommand, commandShift, CommandBits, v)
}

func (k Key) materialShift() uint {
	if k.Blending() == Opaque {
		return opaqueMaterialShift
	}
	return translucentMaterialShift
}

func (k Key) depthShift() uint {
	if k.Blending() == Opaque {
		return opaqueDepthShift
	}
	return translucentDepthShift
}

// Material returns the material id, interpreted according to the blending type.
func (k Key) Material() uint32 {
	return uint32(k.get(k.materialShift(), MaterialBits))
}

// SetMaterial sets the material id at the position the blending type dictates.
func (k *Key) SetMaterial(v uint32) {
	k.set(FieldMaterial, k.materialShift(), MaterialBits, uint64(v))
}

// Depth returns the depth, interpreted according to the blending type.
func (k Key) Depth() uint32 {
	return uint32(k.get(k.depthShift(), DepthBits))
}

// SetDepth sets the depth at the position the blending type dictates.
func (k *Key) SetDepth(v uint32) {
	k.set(FieldDepth, k.depthShift(), DepthBits, uint64(v))
}

// CommandInfo returns the 53-bit command info of a command key.
func (k Key) CommandInfo() uint64 {
	return k.get(commandInfoShift, CommandInfoBits)
}

// SetCommandInfo sets the 53-bit command info, overwriting material and depth.
func (k *Key) SetCommandInfo(v uint64) {
	k.set(FieldCommandInfo, commandInfoShift, CommandInfoBits, v)
}

// String returns a readable decomposition of the key.
func (k Key) String() string {
	head := fmt.Sprintf("fsl=%d vp=%d vpl=%d", k.FullscreenLayer(), k.Viewport(), k.ViewportLayer())
	if k.IsCommand() {
		return fmt.Sprintf("Key{%s %s cmd=%d}", head, k.Blending(), k.CommandInfo())
	}
	return fmt.Sprintf("Key{%s %s mat=%d depth=%d}", head, k.Blending(), k.Material(), k.Depth())
}

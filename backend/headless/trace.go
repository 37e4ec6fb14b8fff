package headless

import (
	"fmt"

	"github.com/gogpu/engine/backend"
)

// Op identifies a device call in a trace.
type Op uint8

// Traced operations.
const (
	OpCreateShader Op = iota + 1
	OpCreateBuffer
	OpUpdateBuffer
	OpCreateVertexArray
	OpCreateTexture
	OpDestroy
	OpSetViewport
	OpClear
	OpBindShader
	OpBindVertexArray
	OpBindTexture
	OpSetUniforms
	OpDraw
	OpDrawIndexed
	OpPresent
)

var opNames = [...]string{
	OpCreateShader:      "create_shader",
	OpCreateBuffer:      "create_buffer",
	OpUpdateBuffer:      "update_buffer",
	OpCreateVertexArray: "create_vertex_array",
	OpCreateTexture:     "create_texture",
	OpDestroy:           "destroy",
	OpSetViewport:       "set_viewport",
	OpClear:             "clear",
	OpBindShader:        "bind_shader",
	OpBindVertexArray:   "bind_vertex_array",
	OpBindTexture:       "bind_texture",
	OpSetUniforms:       "set_uniforms",
	OpDraw:              "draw",
	OpDrawIndexed:       "draw_indexed",
	OpPresent:           "present",
}

// String returns the snake_case name of the operation.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Call is one traced device call.
type Call struct {
	Op     Op
	Handle backend.Handle // Resource involved, if any
	Count  uint32         // Vertices or indices for draws
	Err    bool           // The call returned an error
}

func (c Call) String() string {
	s := c.Op.String()
	if c.Handle.IsValid() {
		s += fmt.Sprintf(" %d", c.Handle)
	}
	if c.Count > 0 {
		s += fmt.Sprintf(" n=%d", c.Count)
	}
	if c.Err {
		s += " !"
	}
	return s
}

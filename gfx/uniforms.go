package gfx

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/engine/mathx"
)

// UniformsSize is the byte size of the MeshShaderWGSL uniform block.
const UniformsSize = mathx.Mat4Size + 16

// Uniforms encodes the MeshShaderWGSL uniform block: the model-view-projection
// matrix followed by the tint.
func Uniforms(mvp mathx.Mat4, tint mathx.Vec4) []byte {
	b := make([]byte, 0, UniformsSize)
	b = mvp.AppendBytes(b)
	for _, f := range [4]float32{tint.X, tint.Y, tint.Z, tint.W} {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

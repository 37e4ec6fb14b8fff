package mathx

import (
	"encoding/binary"
	"math"
)

// Mat4 is a 4x4 matrix stored column-major: element (row r, column c) is
// at index c*4+r.
type Mat4 [16]float32

// Mat4Size is the byte size of a Mat4 in a uniform block.
const Mat4Size = 64

// Identity returns the identity transformation matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Mat4 {
	return Mat4{
		v.X, 0, 0, 0,
		0, v.Y, 0, 0,
		0, 0, v.Z, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 {
	return m[c*4+r]
}

// Mul multiplies two matrices (m * other). Applied to a vector, other
// acts first.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[k*4+r] * other[c*4+k]
			}
			out[c*4+r] = s
		}
	}
	return out
}

// MulVec4 transforms a homogeneous vector.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		W: m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// TransformPoint applies the transformation to a point, including the
// perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return m.MulVec4(p.Vec4(1)).Project()
}

// TransformVector applies the transformation to a direction (no translation).
func (m Mat4) TransformVector(v Vec3) Vec3 {
	return m.MulVec4(v.Vec4(0)).Vec3()
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// IsIdentity returns true if the matrix is the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// Perspective creates a right-handed perspective projection mapping depth
// to [0, 1] as WebGPU expects. fovy is in radians.
func Perspective(fovy, aspect, near, far float32) Mat4 {
	f := float32(1 / math.Tan(float64(fovy)/2))
	nf := 1 / (near - far)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far * nf, -1,
		0, 0, near * far * nf, 0,
	}
}

// Orthographic creates a right-handed orthographic projection with depth
// in [0, 1].
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	rl := 1 / (right - left)
	tb := 1 / (top - bottom)
	nf := 1 / (near - far)
	return Mat4{
		2 * rl, 0, 0, 0,
		0, 2 * tb, 0, 0,
		0, 0, nf, 0,
		-(right + left) * rl, -(top + bottom) * tb, near * nf, 1,
	}
}

// LookAt creates a right-handed view matrix looking from eye towards
// center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// TRS composes translation, rotation and scale, applied scale first.
func TRS(t Vec3, r Quat, s Vec3) Mat4 {
	m := r.Mat4()
	for i := 0; i < 4; i++ {
		m[i] *= s.X
		m[4+i] *= s.Y
		m[8+i] *= s.Z
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// AppendBytes appends the little-endian column-major encoding of m.
func (m Mat4) AppendBytes(b []byte) []byte {
	for _, f := range m {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// Approx returns true if two matrices are approximately equal within epsilon.
func (m Mat4) Approx(other Mat4, epsilon float32) bool {
	for i := range m {
		if abs(m[i]-other[i]) >= epsilon {
			return false
		}
	}
	return true
}

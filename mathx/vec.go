// Package mathx provides the float32 vector, matrix and quaternion types
// used by render commands and scene code.
//
// Matrices are column-major, matching WGSL mat4x4<f32> memory layout, so a
// Mat4 can be copied into a uniform block as is.
package mathx

import "math"

// Vec3 represents a 3D vector or position.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is a convenience function to create a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Mul returns the vector scaled by a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Neg returns the negation of the vector.
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(w Vec3) float32 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the length (magnitude) of the vector.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSq())))
}

// LengthSq returns the squared length of the vector.
func (v Vec3) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns a unit vector in the same direction.
// Returns zero vector if the original vector has zero length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// Lerp performs linear interpolation between two vectors.
func (v Vec3) Lerp(w Vec3, t float32) Vec3 {
	return Vec3{
		X: v.X + (w.X-v.X)*t,
		Y: v.Y + (w.Y-v.Y)*t,
		Z: v.Z + (w.Z-v.Z)*t,
	}
}

// Min returns the component-wise minimum.
func (v Vec3) Min(w Vec3) Vec3 {
	return Vec3{X: min(v.X, w.X), Y: min(v.Y, w.Y), Z: min(v.Z, w.Z)}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(w Vec3) Vec3 {
	return Vec3{X: max(v.X, w.X), Y: max(v.Y, w.Y), Z: max(v.Z, w.Z)}
}

// Vec4 extends the vector with a w component.
func (v Vec3) Vec4(w float32) Vec4 {
	return Vec4{X: v.X, Y: v.Y, Z: v.Z, W: w}
}

// Approx returns true if two vectors are approximately equal within epsilon.
func (v Vec3) Approx(w Vec3, epsilon float32) bool {
	return abs(v.X-w.X) < epsilon && abs(v.Y-w.Y) < epsilon && abs(v.Z-w.Z) < epsilon
}

// Vec4 represents a homogeneous coordinate or an RGBA tint.
type Vec4 struct {
	X, Y, Z, W float32
}

// V4 is a convenience function to create a Vec4.
func V4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// Vec3 drops the w component.
func (v Vec4) Vec3() Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Project divides by w. A zero w returns the xyz part unchanged.
func (v Vec4) Project() Vec3 {
	if v.W == 0 {
		return v.Vec3()
	}
	return Vec3{X: v.X / v.W, Y: v.Y / v.W, Z: v.Z / v.W}
}

// Approx returns true if two vectors are approximately equal within epsilon.
func (v Vec4) Approx(w Vec4, epsilon float32) bool {
	return v.Vec3().Approx(w.Vec3(), epsilon) && abs(v.W-w.W) < epsilon
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

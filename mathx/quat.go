package mathx

import "math"

// Quat is a rotation quaternion with vector part (X, Y, Z) and scalar W.
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat returns the rotation that does nothing.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// AxisAngle returns the rotation of angle radians around axis.
func AxisAngle(axis Vec3, angle float32) Quat {
	a := axis.Normalize()
	s, c := math.Sincos(float64(angle) / 2)
	return Quat{X: a.X * float32(s), Y: a.Y * float32(s), Z: a.Z * float32(s), W: float32(c)}
}

// Mul composes rotations: q.Mul(r) applies r first.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Normalize returns q scaled to unit length, or the identity for a zero
// quaternion.
func (q Quat) Normalize() Quat {
	l := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if l == 0 {
		return IdentityQuat()
	}
	return Quat{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
}

// Rotate applies the rotation to a vector.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.W)).Add(u.Cross(t))
}

// Slerp interpolates between two rotations along the shortest arc.
func (q Quat) Slerp(r Quat, t float32) Quat {
	d := q.X*r.X + q.Y*r.Y + q.Z*r.Z + q.W*r.W
	if d < 0 {
		r = Quat{X: -r.X, Y: -r.Y, Z: -r.Z, W: -r.W}
		d = -d
	}
	if d > 0.9995 {
		return Quat{
			X: q.X + (r.X-q.X)*t,
			Y: q.Y + (r.Y-q.Y)*t,
			Z: q.Z + (r.Z-q.Z)*t,
			W: q.W + (r.W-q.W)*t,
		}.Normalize()
	}
	theta := math.Acos(float64(d))
	sin := math.Sin(theta)
	a := float32(math.Sin((1-float64(t))*theta) / sin)
	b := float32(math.Sin(float64(t)*theta) / sin)
	return Quat{
		X: q.X*a + r.X*b,
		Y: q.Y*a + r.Y*b,
		Z: q.Z*a + r.Z*b,
		W: q.W*a + r.W*b,
	}
}

// Mat4 returns the rotation matrix of a unit quaternion.
func (q Quat) Mat4() Mat4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

package mathx

import (
	"encoding/binary"
	"math"
	"testing"
)

const eps = 1e-5

func TestVec3(t *testing.T) {
	a, b := V3(1, 2, 3), V3(4, 5, 6)
	if got := a.Add(b); got != V3(5, 7, 9) {
		t.Errorf("Add = %v", got)
	}
	if got := b.Sub(a); got != V3(3, 3, 3) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot = %v", got)
	}
	if got := V3(1, 0, 0).Cross(V3(0, 1, 0)); got != V3(0, 0, 1) {
		t.Errorf("Cross = %v", got)
	}
	if got := V3(3, 4, 0).Length(); got != 5 {
		t.Errorf("Length = %v", got)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero Normalize = %v", got)
	}
	if got := V3(0, 0, 2).Normalize(); got != V3(0, 0, 1) {
		t.Errorf("Normalize = %v", got)
	}
	if got := a.Lerp(b, 0.5); !got.Approx(V3(2.5, 3.5, 4.5), eps) {
		t.Errorf("Lerp = %v", got)
	}
	if got := V3(1, 5, 3).Min(V3(2, 4, 3)); got != V3(1, 4, 3) {
		t.Errorf("Min = %v", got)
	}
	if got := V3(1, 5, 3).Max(V3(2, 4, 3)); got != V3(2, 5, 3) {
		t.Errorf("Max = %v", got)
	}
}

func TestVec4Project(t *testing.T) {
	if got := V4(2, 4, 6, 2).Project(); got != V3(1, 2, 3) {
		t.Errorf("Project = %v", got)
	}
	if got := V4(2, 4, 6, 0).Project(); got != V3(2, 4, 6) {
		t.Errorf("Project w=0 = %v", got)
	}
}

func TestMat4Basics(t *testing.T) {
	id := Identity()
	if !id.IsIdentity() {
		t.Fatal("Identity is not identity")
	}
	m := Translate(V3(1, 2, 3)).Mul(Scale(V3(2, 2, 2)))
	if got := m.TransformPoint(V3(1, 1, 1)); got != V3(3, 4, 5) {
		t.Errorf("TransformPoint = %v", got)
	}
	if got := m.TransformVector(V3(1, 0, 0)); got != V3(2, 0, 0) {
		t.Errorf("TransformVector = %v", got)
	}
	if got := m.Mul(id); got != m {
		t.Error("m * I != m")
	}
	if got := m.At(0, 3); got != 1 {
		t.Errorf("At(0,3) = %v", got)
	}
	if got := m.Transpose().At(3, 0); got != 1 {
		t.Errorf("Transpose At(3,0) = %v", got)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(math.Pi/2, 1, 1, 100)
	near := p.TransformPoint(V3(0, 0, -1))
	far := p.TransformPoint(V3(0, 0, -100))
	if math.Abs(float64(near.Z)) > eps {
		t.Errorf("near depth = %v, want 0", near.Z)
	}
	if math.Abs(float64(far.Z-1)) > eps {
		t.Errorf("far depth = %v, want 1", far.Z)
	}
	edge := p.TransformPoint(V3(1, 0, -1))
	if math.Abs(float64(edge.X-1)) > eps {
		t.Errorf("90° fov edge x = %v, want 1", edge.X)
	}
}

func TestOrthographic(t *testing.T) {
	o := Orthographic(0, 640, 480, 0, 0, 1)
	if got := o.TransformPoint(V3(0, 0, 0)); !got.Approx(V3(-1, 1, 0), eps) {
		t.Errorf("top-left = %v", got)
	}
	if got := o.TransformPoint(V3(640, 480, -1)); !got.Approx(V3(1, -1, 1), eps) {
		t.Errorf("bottom-right = %v", got)
	}
}

func TestLookAt(t *testing.T) {
	v := LookAt(V3(0, 0, 5), V3(0, 0, 0), V3(0, 1, 0))
	if got := v.TransformPoint(V3(0, 0, 0)); !got.Approx(V3(0, 0, -5), eps) {
		t.Errorf("origin in view space = %v", got)
	}
	if got := v.TransformPoint(V3(1, 0, 5)); !got.Approx(V3(1, 0, 0), eps) {
		t.Errorf("right of eye = %v", got)
	}
}

func TestQuat(t *testing.T) {
	q := AxisAngle(V3(0, 0, 1), math.Pi/2)
	if got := q.Rotate(V3(1, 0, 0)); !got.Approx(V3(0, 1, 0), eps) {
		t.Errorf("Rotate = %v", got)
	}
	if got := q.Mat4().TransformVector(V3(1, 0, 0)); !got.Approx(V3(0, 1, 0), eps) {
		t.Errorf("Mat4 rotate = %v", got)
	}
	if got := q.Mul(q).Rotate(V3(1, 0, 0)); !got.Approx(V3(-1, 0, 0), eps) {
		t.Errorf("q*q rotate = %v", got)
	}
	if got := q.Mul(q.Conjugate()); !(Vec4{got.X, got.Y, got.Z, got.W}).Approx(V4(0, 0, 0, 1), eps) {
		t.Errorf("q * conj = %v", got)
	}
	half := IdentityQuat().Slerp(q, 0.5)
	if got := half.Rotate(V3(1, 0, 0)); !got.Approx(V3(float32(math.Sqrt2/2), float32(math.Sqrt2/2), 0), 1e-4) {
		t.Errorf("Slerp half = %v", got)
	}
	if got := (Quat{}).Normalize(); got != IdentityQuat() {
		t.Errorf("zero Normalize = %v", got)
	}
}

func TestTRS(t *testing.T) {
	m := TRS(V3(10, 0, 0), AxisAngle(V3(0, 0, 1), math.Pi/2), V3(2, 2, 2))
	if got := m.TransformPoint(V3(1, 0, 0)); !got.Approx(V3(10, 2, 0), eps) {
		t.Errorf("TRS point = %v", got)
	}
	want := Translate(V3(10, 0, 0)).Mul(AxisAngle(V3(0, 0, 1), math.Pi/2).Mat4()).Mul(Scale(V3(2, 2, 2)))
	if !m.Approx(want, eps) {
		t.Errorf("TRS = %v, want %v", m, want)
	}
}

func TestAppendBytes(t *testing.T) {
	b := Translate(V3(1, 2, 3)).AppendBytes(nil)
	if len(b) != Mat4Size {
		t.Fatalf("len = %d, want %d", len(b), Mat4Size)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[13*4:])); got != 2 {
		t.Errorf("element 13 = %v, want 2", got)
	}
}

func BenchmarkMat4Mul(b *testing.B) {
	m := Perspective(1, 1.5, 0.1, 100)
	v := LookAt(V3(0, 2, 5), Vec3{}, V3(0, 1, 0))
	for i := 0; i < b.N; i++ {
		m = m.Mul(v)
	}
	_ = m
}

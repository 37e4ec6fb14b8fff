package gfx

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/engine/arena"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/backend/headless"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/mathx"
	"github.com/gogpu/gputypes"
)

const testShader = `
@vertex
fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

func setup(t *testing.T) (*cmdbuf.Buffer, *headless.Device) {
	t.Helper()
	a, err := arena.New(64 << 10)
	if err != nil {
		t.Fatal(err)
	}
	dev := headless.New(headless.WithSize(16, 16), headless.WithShaderValidation(false), headless.WithTrace())
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	return cmdbuf.New(a, 64), dev
}

func run(t *testing.T, b *cmdbuf.Buffer, dev *headless.Device) error {
	t.Helper()
	b.Sort()
	return b.Dispatch(&cmdbuf.Context{Device: dev})
}

func ops(dev *headless.Device) []string {
	var out []string
	for _, c := range dev.Trace() {
		out = append(out, c.Op.String())
	}
	return out
}

func triangleLayout() *backend.VertexArrayDesc {
	desc := &backend.VertexArrayDesc{
		VertexBuffer: 2,
		IndexBuffer:  3,
		IndexFormat:  backend.IndexFormatUint16,
		Stride:       12,
	}
	desc.AddAttribute(backend.VertexAttribute{Format: backend.VertexFormatFloat32x3})
	return desc
}

// TestSetupBeforeWorld submits the draw first; uploads still dispatch
// before it because setup keys sort lower.
func TestSetupBeforeWorld(t *testing.T) {
	b, dev := setup(t)

	draw, err := cmdbuf.Add[DrawMesh](b, OpaqueKey(0, 1, 100))
	if err != nil {
		t.Fatal(err)
	}
	*draw = DrawMesh{Shader: 1, VertexArray: 4, Topology: gputypes.PrimitiveTopologyTriangleList, Count: 3, Indexed: true}

	clear, err := cmdbuf.Add[Clear](b, SetupKey(StepClear))
	if err != nil {
		t.Fatal(err)
	}
	clear.Color = gputypes.ColorBlue

	indices := make([]byte, 6)
	binary.LittleEndian.PutUint16(indices[2:], 1)
	binary.LittleEndian.PutUint16(indices[4:], 2)

	for _, err := range []error{
		Shader(b, 1, testShader),
		Upload(b, 2, backend.BufferUsageVertex, make([]byte, 36)),
		Upload(b, 3, backend.BufferUsageIndex, indices),
		VertexArray(b, 4, triangleLayout()),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := run(t, b, dev); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	want := []string{
		"create_shader", "create_buffer", "create_buffer", "create_vertex_array",
		"clear",
		"bind_shader", "bind_vertex_array", "draw_indexed",
	}
	if got := ops(dev); !slices.Equal(got, want) {
		t.Errorf("ops = %v\nwant %v", got, want)
	}
	if s := dev.DeviceStats(); s.DrawCalls != 1 || s.Vertices != 3 {
		t.Errorf("DeviceStats() = %+v", s)
	}
	if px := dev.Framebuffer().RGBAAt(0, 0); px.B != 255 {
		t.Errorf("framebuffer pixel = %v, want blue", px)
	}
}

func TestDrawMeshUniformsAndChain(t *testing.T) {
	b, dev := setup(t)
	if err := Shader(b, 1, testShader); err != nil {
		t.Fatal(err)
	}
	if err := Upload(b, 2, backend.BufferUsageVertex, make([]byte, 36)); err != nil {
		t.Fatal(err)
	}
	desc := triangleLayout()
	desc.IndexFormat = backend.IndexFormatNone
	if err := VertexArray(b, 4, desc); err != nil {
		t.Fatal(err)
	}

	draw, uniforms, err := cmdbuf.AddExtra[DrawMesh](b, OpaqueKey(0, 0, 0), 8)
	if err != nil {
		t.Fatal(err)
	}
	*draw = DrawMesh{Shader: 1, VertexArray: 4, Count: 3}
	copy(uniforms, "tintrgba")

	again, err := cmdbuf.Append[Draw](b, draw)
	if err != nil {
		t.Fatal(err)
	}
	*again = Draw{First: 1, Count: 2}

	if err := run(t, b, dev); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if got := string(dev.Uniforms()); got != "tintrgba" {
		t.Errorf("Uniforms() = %q", got)
	}
	got := ops(dev)
	if n := len(got); n < 2 || got[n-2] != "draw" || got[n-1] != "draw" {
		t.Errorf("ops = %v, want two trailing draws", got)
	}
	if got := dev.DeviceStats().DrawCalls; got != 2 {
		t.Errorf("DrawCalls = %d, want 2", got)
	}
}

func TestCommandFailuresAreCollected(t *testing.T) {
	b, dev := setup(t)

	draw, err := cmdbuf.Add[DrawMesh](b, OpaqueKey(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	*draw = DrawMesh{Shader: 7, VertexArray: 8, Count: 3}

	bind, err := cmdbuf.Add[BindTexture](b, OpaqueKey(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	bind.Handle = 9

	err = run(t, b, dev)
	if !errors.Is(err, backend.ErrInvalidHandle) {
		t.Fatalf("Dispatch() error = %v, want ErrInvalidHandle", err)
	}
	if !strings.Contains(err.Error(), "draw mesh") || !strings.Contains(err.Error(), "bind texture 9") {
		t.Errorf("Dispatch() error = %q, want both failures", err)
	}
	if b.Len() != 0 {
		t.Errorf("Len() after Dispatch = %d", b.Len())
	}
}

func TestTexture(t *testing.T) {
	b, dev := setup(t)
	desc := backend.TextureDesc{Width: 2, Height: 1, Format: backend.TextureFormatRGBA8Unorm}

	if err := Texture(b, 1, desc, make([]byte, 4)); !errors.Is(err, ErrPixelSize) {
		t.Fatalf("Texture(short) error = %v, want ErrPixelSize", err)
	}
	if b.Len() != 0 {
		t.Fatalf("rejected texture was encoded (Len = %d)", b.Len())
	}

	if err := Texture(b, 1, desc, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	if err := run(t, b, dev); err != nil {
		t.Fatal(err)
	}
	if _, ok := dev.Texture(1); !ok {
		t.Error("texture 1 was not created")
	}
}

func TestReleaseAfterSetup(t *testing.T) {
	b, dev := setup(t)

	if err := Release(b, 2, 3); err != nil {
		t.Fatal(err)
	}
	if err := Upload(b, 2, backend.BufferUsageUniform, make([]byte, 4)); err != nil {
		t.Fatal(err)
	}
	if err := Update(b, 2, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := run(t, b, dev); err != nil {
		t.Fatal(err)
	}

	want := []string{"create_buffer", "update_buffer", "destroy", "destroy"}
	if got := ops(dev); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestViewportCommand(t *testing.T) {
	b, dev := setup(t)

	vp, err := cmdbuf.Add[SetViewport](b, SetupKey(StepClear))
	if err != nil {
		t.Fatal(err)
	}
	vp.Viewport = backend.Viewport{X: 8, Width: 8, Height: 16}
	clear, err := cmdbuf.Append[Clear](b, vp)
	if err != nil {
		t.Fatal(err)
	}
	clear.Color = gputypes.ColorWhite

	if err := run(t, b, dev); err != nil {
		t.Fatal(err)
	}
	fb := dev.Framebuffer()
	if fb.RGBAAt(2, 2).A != 0 || fb.RGBAAt(12, 2).R != 255 {
		t.Errorf("clear outside viewport: left=%v right=%v", fb.RGBAAt(2, 2), fb.RGBAAt(12, 2))
	}
}

func TestKeyOrder(t *testing.T) {
	ordered := []struct {
		name string
		key  uint64
	}{
		{"upload", uint64(SetupKey(StepUpload))},
		{"clear", uint64(SetupKey(StepClear))},
		{"destroy", uint64(SetupKey(StepDestroy))},
		{"opaque near", uint64(OpaqueKey(0, 5, 10))},
		{"opaque far", uint64(OpaqueKey(0, 5, 900))},
		{"translucent far", uint64(TranslucentKey(0, 5, 900))},
		{"translucent near", uint64(TranslucentKey(0, 5, 10))},
		{"hud 0", uint64(HUDKey(0))},
		{"hud 1", uint64(HUDKey(1))},
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].key >= ordered[i].key {
			t.Errorf("%s (%#x) should sort before %s (%#x)",
				ordered[i-1].name, ordered[i-1].key, ordered[i].name, ordered[i].key)
		}
	}
}

func TestMeshShaderEmbedded(t *testing.T) {
	for _, entry := range []string{"@vertex", "fn vs_main", "@fragment", "fn fs_main"} {
		if !strings.Contains(MeshShaderWGSL, entry) {
			t.Errorf("MeshShaderWGSL missing %q", entry)
		}
	}
}

func TestUniforms(t *testing.T) {
	u := Uniforms(mathx.Identity(), mathx.V4(1, 0.5, 0, 1))
	if len(u) != UniformsSize {
		t.Fatalf("len = %d, want %d", len(u), UniformsSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(u[mathx.Mat4Size+4:])); got != 0.5 {
		t.Errorf("tint.g = %v", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(u[20:])); got != 1 {
		t.Errorf("mvp[5] = %v", got)
	}
}

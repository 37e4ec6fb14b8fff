package sortkey

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestKeyLayout(t *testing.T) {
	var k Key
	k.SetFullscreenLayer(MaxFullscreenLayer)
	if k != 0xC000_0000_0000_0000 {
		t.Errorf("fullscreen layer bits = %#x", uint64(k))
	}

	k = 0
	k.SetViewport(MaxViewport)
	if k != 0x3800_0000_0000_0000 {
		t.Errorf("viewport bits = %#x", uint64(k))
	}

	k = 0
	k.SetViewportLayer(MaxViewportLayer)
	if k != 0x0700_0000_0000_0000 {
		t.Errorf("viewport layer bits = %#x", uint64(k))
	}

	k = 0
	k.SetBlending(Subtractive)
	if k != 0x00C0_0000_0000_0000 {
		t.Errorf("blending bits = %#x", uint64(k))
	}

	k = Command(0)
	if k != 0x0020_0000_0000_0000 {
		t.Errorf("command bit = %#x", uint64(k))
	}

	k = Draw(0, 0, 0, Opaque, MaxMaterial, 0)
	if k != 0x001F_FFFF_0000_0000 {
		t.Errorf("opaque material bits = %#x", uint64(k))
	}
	k = Draw(0, 0, 0, Opaque, 0, MaxDepth)
	if k != 0x0000_0000_FFFF_FFFF {
		t.Errorf("opaque depth bits = %#x", uint64(k))
	}

	k = Draw(0, 0, 0, Translucent, 0, MaxDepth)
	if k&0x001F_FFFF_FFE0_0000 != 0x001F_FFFF_FFE0_0000 || k&0x1F_FFFF != 0 {
		t.Errorf("translucent depth bits = %#x", uint64(k))
	}
	k = Draw(0, 0, 0, Translucent, MaxMaterial, 0)
	if uint64(k)&^(3<<54) != 0x1F_FFFF {
		t.Errorf("translucent material bits = %#x", uint64(k))
	}
}

func TestKeyRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 1000 {
		fsl := uint8(rng.IntN(MaxFullscreenLayer + 1))
		vp := uint8(rng.IntN(MaxViewport + 1))
		vpl := uint8(rng.IntN(MaxViewportLayer + 1))
		blend := Blending(rng.IntN(4))
		mat := uint32(rng.IntN(MaxMaterial + 1))
		depth := rng.Uint32()

		k := Draw(fsl, vp, vpl, blend, mat, depth)

		if got := k.FullscreenLayer(); got != fsl {
			t.Fatalf("FullscreenLayer() = %d, want %d (%v)", got, fsl, k)
		}
		if got := k.Viewport(); got != vp {
			t.Fatalf("Viewport() = %d, want %d (%v)", got, vp, k)
		}
		if got := k.ViewportLayer(); got != vpl {
			t.Fatalf("ViewportLayer() = %d, want %d (%v)", got, vpl, k)
		}
		if got := k.Blending(); got != blend {
			t.Fatalf("Blending() = %v, want %v (%v)", got, blend, k)
		}
		if got := k.Material(); got != mat {
			t.Fatalf("Material() = %d, want %d (%v)", got, mat, k)
		}
		if got := k.Depth(); got != depth {
			t.Fatalf("Depth() = %d, want %d (%v)", got, depth, k)
		}
		if k.IsCommand() {
			t.Fatalf("draw key has command flag: %v", k)
		}
	}
}

// TestKeySetterIsolation overwrites one field at a time on a key with every
// other field set and checks the others read back unchanged.
func TestKeySetterIsolation(t *testing.T) {
	for _, blend := range []Blending{Opaque, Translucent} {
		base := Draw(2, 5, 3, blend, 0x12345, 0xDEADBEEF)

		tests := []struct {
			name string
			mut  func(k *Key)
		}{
			{"fullscreen layer", func(k *Key) { k.SetFullscreenLayer(1) }},
			{"viewport", func(k *Key) { k.SetViewport(2) }},
			{"viewport layer", func(k *Key) { k.SetViewportLayer(7) }},
			{"material", func(k *Key) { k.SetMaterial(MaxMaterial) }},
			{"depth", func(k *Key) { k.SetDepth(0) }},
		}
		for _, tt := range tests {
			t.Run(blend.String()+"/"+tt.name, func(t *testing.T) {
				k := base
				tt.mut(&k)
				check := func(name string, got, want uint64) {
					t.Helper()
					if tt.name != name && got != want {
						t.Errorf("%s changed: got %d, want %d", name, got, want)
					}
				}
				check("fullscreen layer", uint64(k.FullscreenLayer()), 2)
				check("viewport", uint64(k.Viewport()), 5)
				check("viewport layer", uint64(k.ViewportLayer()), 3)
				check("material", uint64(k.Material()), 0x12345)
				check("depth", uint64(k.Depth()), 0xDEADBEEF)
				if k.Blending() != blend {
					t.Errorf("blending changed to %v", k.Blending())
				}
			})
		}
	}
}

func TestKeyCommand(t *testing.T) {
	k := Command(MaxCommandInfo)
	k.SetViewport(4)
	if !k.IsCommand() {
		t.Fatal("IsCommand() = false")
	}
	if k.CommandInfo() != MaxCommandInfo {
		t.Errorf("CommandInfo() = %#x, want %#x", k.CommandInfo(), uint64(MaxCommandInfo))
	}
	if k.Viewport() != 4 {
		t.Errorf("Viewport() = %d, want 4", k.Viewport())
	}
	k.SetCommand(false)
	if k.IsCommand() {
		t.Error("SetCommand(false) left flag set")
	}
}

func TestFieldNames(t *testing.T) {
	seen := make(map[string]Field)
	for f := FieldFullscreenLayer; f <= FieldCommand; f++ {
		name := f.String()
		if name == "" || name == "unknown" {
			t.Errorf("Field(%d) has no name", f)
		}
		if prev, ok := seen[name]; ok {
			t.Errorf("Field(%d) and Field(%d) share the name %q", prev, f, name)
		}
		seen[name] = f
	}
	if got := FieldCommand.String(); got != "command" {
		t.Errorf("FieldCommand = %q, want command", got)
	}
	if got := (FieldCommand + 1).String(); got != "unknown" {
		t.Errorf("out-of-range field = %q, want unknown", got)
	}
}

func TestKeyOrdering(t *testing.T) {
	t.Run("opaque depth within material", func(t *testing.T) {
		near := Draw(0, 1, 1, Opaque, 7, 100)
		far := Draw(0, 1, 1, Opaque, 7, 200)
		if near >= far {
			t.Errorf("near %v should sort before far %v", near, far)
		}
	})

	t.Run("opaque material dominates depth", func(t *testing.T) {
		a := Draw(0, 1, 1, Opaque, 1, MaxDepth)
		b := Draw(0, 1, 1, Opaque, 2, 0)
		if a >= b {
			t.Errorf("material 1 %v should sort before material 2 %v", a, b)
		}
	})

	t.Run("translucent depth dominates material", func(t *testing.T) {
		a := Draw(0, 1, 1, Translucent, MaxMaterial, 10)
		b := Draw(0, 1, 1, Translucent, 0, 11)
		if a >= b {
			t.Errorf("depth 10 %v should sort before depth 11 %v", a, b)
		}
	})

	t.Run("back to front", func(t *testing.T) {
		far := Draw(0, 0, 0, Translucent, 0, BackToFront(DepthFromFloat(0.9)))
		near := Draw(0, 0, 0, Translucent, 0, BackToFront(DepthFromFloat(0.1)))
		if far >= near {
			t.Errorf("far %v should sort before near %v", far, near)
		}
	})

	t.Run("field priority", func(t *testing.T) {
		keys := []Key{
			Draw(1, 0, 0, Opaque, 0, 0),
			Draw(0, 1, 0, Opaque, 0, 0),
			Draw(0, 0, 1, Opaque, 0, 0),
			Draw(0, 0, 0, Translucent, 0, 0),
			Draw(0, 0, 0, Opaque, 0, 0),
		}
		slices.Sort(keys)
		want := []Key{
			Draw(0, 0, 0, Opaque, 0, 0),
			Draw(0, 0, 0, Translucent, 0, 0),
			Draw(0, 0, 1, Opaque, 0, 0),
			Draw(0, 1, 0, Opaque, 0, 0),
			Draw(1, 0, 0, Opaque, 0, 0),
		}
		if !slices.Equal(keys, want) {
			t.Errorf("sorted = %v, want %v", keys, want)
		}
	})
}

func TestKeyOutOfRange(t *testing.T) {
	var got []*FieldError
	prev := SetErrorHandler(func(err *FieldError) { got = append(got, err) })
	t.Cleanup(func() { SetErrorHandler(prev) })

	k := Draw(1, 2, 3, Opaque, 4, 5)
	before := k
	k.SetViewport(MaxViewport + 1)
	k.SetFullscreenLayer(4)
	k.SetMaterial(MaxMaterial + 1)
	k.SetCommandInfo(MaxCommandInfo + 1)

	if k != before {
		t.Errorf("rejected values modified key: %v -> %v", before, k)
	}
	if len(got) != 4 {
		t.Fatalf("handler called %d times, want 4", len(got))
	}
	if got[0].Field != FieldViewport || got[0].Value != MaxViewport+1 || got[0].Max != MaxViewport {
		t.Errorf("first error = %+v", got[0])
	}
	if got[2].Field != FieldMaterial {
		t.Errorf("third error field = %v, want material", got[2].Field)
	}
}

func TestKeyDefaultHandlerPanics(t *testing.T) {
	prev := SetErrorHandler(nil)
	t.Cleanup(func() { SetErrorHandler(prev) })

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recover() = %v, want *FieldError", r)
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != FieldViewportLayer {
			t.Errorf("panic value = %v", err)
		}
	}()
	var k Key
	k.SetViewportLayer(8)
	t.Fatal("SetViewportLayer(8) did not panic")
}

func TestDepthFromFloat(t *testing.T) {
	tests := []struct {
		z    float32
		want uint32
	}{
		{-1, 0},
		{0, 0},
		{1, MaxDepth},
		{2, MaxDepth},
	}
	for _, tt := range tests {
		if got := DepthFromFloat(tt.z); got != tt.want {
			t.Errorf("DepthFromFloat(%v) = %d, want %d", tt.z, got, tt.want)
		}
	}
	if DepthFromFloat(0.25) >= DepthFromFloat(0.5) {
		t.Error("DepthFromFloat not monotonic")
	}
}

func BenchmarkDraw(b *testing.B) {
	var k Key
	for i := 0; i < b.N; i++ {
		k = Draw(1, 2, 3, Opaque, uint32(i)&MaxMaterial, uint32(i))
	}
	_ = k
}

package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/gogpu/engine/arena"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/backend/headless"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/fileio"
)

// checker returns a w×h image whose top row is red and the rest blue.
func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{B: 255, A: 255}
			if y == 0 {
				c = color.NRGBA{R: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	img, format, err := Decode(bytes.NewReader(encodePNG(t, checker(4, 3))))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q", format)
	}
	if img.Width != 4 || img.Height != 3 || img.Format != backend.TextureFormatRGBA8Unorm {
		t.Errorf("image = %dx%d %v", img.Width, img.Height, img.Format)
	}
	if desc := img.Desc(); len(img.Pix) != desc.Size() {
		t.Errorf("pix = %d bytes, desc wants %d", len(img.Pix), desc.Size())
	}
	if got := img.NRGBA().NRGBAAt(0, 0); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("top-left = %v, want red", got)
	}
}

func TestDecodeBMP(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, checker(2, 2)); err != nil {
		t.Fatal(err)
	}
	img, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "bmp" || img.Width != 2 {
		t.Errorf("format = %q width = %d", format, img.Width)
	}
}

func TestDecodeUnknown(t *testing.T) {
	if _, _, err := Decode(strings.NewReader("definitely not an image")); !errors.Is(err, ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestFromImageOptions(t *testing.T) {
	img, err := FromImage(checker(4, 4), WithFlipY(), WithSRGB())
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != backend.TextureFormatRGBA8UnormSRGB {
		t.Errorf("format = %v", img.Format)
	}
	if got := img.NRGBA().NRGBAAt(0, 3); got.R != 255 {
		t.Errorf("flipped bottom row = %v, want red", got)
	}
	if got := img.NRGBA().NRGBAAt(0, 0); got.B != 255 {
		t.Errorf("flipped top row = %v, want blue", got)
	}

	if _, err := FromImage(image.NewNRGBA(image.Rectangle{})); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty: err = %v", err)
	}
}

func TestMaxSize(t *testing.T) {
	img, err := FromImage(checker(64, 16), WithMaxSize(32), WithFilter(draw.ApproxBiLinear))
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 32 || img.Height != 8 {
		t.Errorf("resized to %dx%d, want 32x8", img.Width, img.Height)
	}
	if len(img.Pix) != 32*8*4 {
		t.Errorf("pix = %d", len(img.Pix))
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{100, 50, 0, 100, 50},
		{100, 50, 200, 100, 50},
		{100, 50, 10, 10, 5},
		{50, 100, 10, 5, 10},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fit(%d, %d, %d) = %d, %d; want %d, %d", tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestLoadAndCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bricks.png.lz4")
	if err := fileio.WriteFile(path, encodePNG(t, checker(8, 8))); err != nil {
		t.Fatal(err)
	}

	c := NewCache(4)
	a, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := c.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("second Get decoded again")
	}
	if st := c.Stats(); st.Len != 1 || st.Hits == 0 {
		t.Errorf("stats = %+v", st)
	}
	c.Forget(path)
	if c.Stats().Len != 0 {
		t.Error("Forget left the entry")
	}

	if _, err := c.Get(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestUpload(t *testing.T) {
	img, err := FromImage(checker(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	a, err := arena.New(16 << 10)
	if err != nil {
		t.Fatal(err)
	}
	buf := cmdbuf.New(a, 8)
	dev := headless.New(headless.WithSize(4, 4))
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	var hs backend.Handles
	h, err := img.Upload(buf, &hs)
	if err != nil {
		t.Fatal(err)
	}
	buf.Sort()
	if err := buf.Dispatch(&cmdbuf.Context{Device: dev}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got, ok := dev.Texture(h)
	if !ok {
		t.Fatal("texture not created")
	}
	if r, _, _, _ := got.At(1, 0).RGBA(); r != 0xffff {
		t.Errorf("texel (1,0) red = %#x", r)
	}
}

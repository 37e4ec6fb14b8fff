// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hud draws debug text over the frame.
//
// Lines queued with Printf during a frame are shaped with HarfBuzz
// (go-text/typesetting), rasterized from the font outlines into an RGBA
// image and submitted as a texture drawn on a screen-space quad in the HUD
// layer:
//
//	o, _ := hud.New(hud.WithScreen(1280, 720))
//	o.Printf("frame %d  %.1f ms", n, ms)
//	err := o.Submit(buf, &handles, shader)
package hud

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/gfx"
	"github.com/gogpu/engine/mathx"
	"github.com/gogpu/engine/mesh"
)

// ErrFont is returned when the font data cannot be parsed.
var ErrFont = errors.New("hud: invalid font")

// Overlay accumulates text lines for one frame.
type Overlay struct {
	opts options

	outline *sfnt.Font
	face    *gotext.Face
	shaper  shaping.HarfbuzzShaper
	buf     sfnt.Buffer
	ppem    fixed.Int26_6
	ascent  float32
	advance float32 // baseline to baseline

	mu    sync.Mutex
	lines []string

	quad    mesh.Resources
	texture backend.Handle
}

// New creates an overlay.
func New(opts ...Option) (*Overlay, error) {
	o := &Overlay{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&o.opts)
	}

	outline, err := opentype.Parse(o.opts.ttf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFont, err)
	}
	shaped, err := gotext.ParseTTF(bytes.NewReader(o.opts.ttf))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFont, err)
	}
	o.outline = outline
	o.face = shaped
	o.ppem = fixed.Int26_6(o.opts.fontSize * 64)

	m, err := outline.Metrics(&o.buf, o.ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFont, err)
	}
	o.ascent = toFloat(m.Ascent)
	o.advance = toFloat(m.Height)
	return o, nil
}

// Printf queues a line of text for the next Submit. It is safe to call from
// several goroutines.
func (o *Overlay) Printf(format string, args ...any) {
	o.mu.Lock()
	o.lines = append(o.lines, fmt.Sprintf(format, args...))
	o.mu.Unlock()
}

// SetScreen updates the target size the overlay is placed in. It must not
// be called concurrently with Submit.
func (o *Overlay) SetScreen(width, height int) {
	if width > 0 && height > 0 {
		o.opts.screenW, o.opts.screenH = width, height
	}
}

// Lines returns the lines queued so far.
func (o *Overlay) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

// Render draws the queued lines into a new image without consuming them.
// Lines that do not fit are cut off.
func (o *Overlay) Render() *image.RGBA {
	lines := o.Lines()

	w, h := o.opts.width, o.opts.height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(o.opts.bg), image.Point{}, draw.Src)

	z := vector.NewRasterizer(w, h)
	baseline := o.ascent + 2
	for _, line := range lines {
		if baseline-o.ascent >= float32(h) {
			break
		}
		o.outlineLine(z, line, 4, baseline)
		baseline += o.advance
	}
	z.Draw(img, img.Bounds(), image.NewUniform(o.opts.fg), image.Point{})
	return img
}

// outlineLine shapes one line and adds its glyph outlines to z with the
// pen starting at (x, baseline).
func (o *Overlay) outlineLine(z *vector.Rasterizer, line string, x, baseline float32) {
	runes := []rune(line)
	if len(runes) == 0 {
		return
	}
	dir, script := classify(runes)
	out := o.shaper.Shape(shaping.Input{
		Text:      runes,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      o.face,
		Size:      o.ppem,
		Script:    script,
		Language:  language.NewLanguage("en"),
	})

	pen := x
	for _, g := range out.Glyphs {
		segs, err := o.outline.LoadGlyph(&o.buf, sfnt.GlyphIndex(g.GlyphID), o.ppem, nil)
		if err == nil {
			gx := pen + toFloat(g.XOffset)
			gy := baseline - toFloat(g.YOffset)
			for _, s := range segs {
				addSegment(z, s, gx, gy)
			}
		}
		pen += toFloat(g.Advance)
	}
}

func addSegment(z *vector.Rasterizer, s sfnt.Segment, dx, dy float32) {
	p := func(i int) (float32, float32) {
		return toFloat(s.Args[i].X) + dx, toFloat(s.Args[i].Y) + dy
	}
	switch s.Op {
	case sfnt.SegmentOpMoveTo:
		z.MoveTo(p(0))
	case sfnt.SegmentOpLineTo:
		z.LineTo(p(0))
	case sfnt.SegmentOpQuadTo:
		bx, by := p(0)
		cx, cy := p(1)
		z.QuadTo(bx, by, cx, cy)
	case sfnt.SegmentOpCubeTo:
		bx, by := p(0)
		cx, cy := p(1)
		ex, ey := p(2)
		z.CubeTo(bx, by, cx, cy, ex, ey)
	}
}

// classify returns the direction of the first strong character and the
// script of the first letter.
func classify(runes []rune) (di.Direction, language.Script) {
	dir := di.DirectionLTR
	for _, r := range runes {
		p, _ := bidi.LookupRune(r)
		if c := p.Class(); c == bidi.R || c == bidi.AL {
			dir = di.DirectionRTL
			break
		} else if c == bidi.L {
			break
		}
	}
	script := language.Latin
	for _, r := range runes {
		if s := language.LookupScript(r); s != language.Common && s != language.Inherited {
			script = s
			break
		}
	}
	return dir, script
}

func toFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

// Submit renders the queued lines, queues the texture upload and a draw
// in the HUD layer, and clears the lines. The quad is uploaded on first use
// and the previous frame's texture is released. shader must accept the
// mesh vertex layout and the gfx uniform block.
func (o *Overlay) Submit(b *cmdbuf.Buffer, hs *backend.Handles, shader backend.Handle) error {
	img := o.Render()
	o.mu.Lock()
	o.lines = o.lines[:0]
	o.mu.Unlock()

	if !o.quad.VertexArray.IsValid() {
		q, err := unitQuad().Upload(b, hs)
		if err != nil {
			return fmt.Errorf("hud: %w", err)
		}
		o.quad = q
	}

	tex := hs.Next()
	desc := backend.TextureDesc{
		Width:  uint32(o.opts.width),
		Height: uint32(o.opts.height),
		Format: backend.TextureFormatRGBA8Unorm,
	}
	if err := gfx.Texture(b, tex, desc, img.Pix); err != nil {
		return fmt.Errorf("hud: %w", err)
	}
	if _, err := o.quad.Draw(b, gfx.HUDKey(0), shader, tex, o.uniforms()); err != nil {
		return fmt.Errorf("hud: %w", err)
	}
	if o.texture.IsValid() {
		if err := gfx.Release(b, o.texture); err != nil {
			return fmt.Errorf("hud: %w", err)
		}
	}
	o.texture = tex
	return nil
}

// Close queues the release of the overlay's GPU resources.
func (o *Overlay) Close(b *cmdbuf.Buffer) error {
	var errs []error
	if o.texture.IsValid() {
		errs = append(errs, gfx.Release(b, o.texture))
		o.texture = backend.InvalidHandle
	}
	if o.quad.VertexArray.IsValid() {
		errs = append(errs, o.quad.Release(b))
		o.quad = mesh.Resources{}
	}
	return errors.Join(errs...)
}

// uniforms returns the gfx uniform block placing the unit quad on screen:
// a pixel-space orthographic projection and a white tint.
func (o *Overlay) uniforms() []byte {
	sw, sh := float32(o.opts.screenW), float32(o.opts.screenH)
	mvp := mathx.Orthographic(0, sw, sh, 0, 0, 1).
		Mul(mathx.Translate(mathx.V3(float32(o.opts.x), float32(o.opts.y), 0))).
		Mul(mathx.Scale(mathx.V3(float32(o.opts.width), float32(o.opts.height), 1)))
	return gfx.Uniforms(mvp, mathx.V4(1, 1, 1, 1))
}

func unitQuad() *mesh.Mesh {
	n := mathx.V3(0, 0, 1)
	return &mesh.Mesh{
		Name: "hud-quad",
		Vertices: []mesh.Vertex{
			{Position: mathx.V3(0, 0, 0), Normal: n, UV: [2]float32{0, 0}},
			{Position: mathx.V3(1, 0, 0), Normal: n, UV: [2]float32{1, 0}},
			{Position: mathx.V3(1, 1, 0), Normal: n, UV: [2]float32{1, 1}},
			{Position: mathx.V3(0, 1, 0), Normal: n, UV: [2]float32{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
		Bounds:  mesh.Bounds{Max: mathx.V3(1, 1, 0)},
	}
}

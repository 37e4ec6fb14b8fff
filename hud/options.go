package hud

import (
	"image/color"

	"golang.org/x/image/font/gofont/goregular"
)

// Defaults.
const (
	DefaultWidth    = 320
	DefaultHeight   = 96
	DefaultFontSize = 13
)

// Option configures an Overlay.
type Option func(*options)

type options struct {
	width, height int
	screenW       int
	screenH       int
	x, y          int
	fontSize      float64
	ttf           []byte
	fg, bg        color.Color
}

func defaultOptions() options {
	return options{
		width:    DefaultWidth,
		height:   DefaultHeight,
		screenW:  640,
		screenH:  480,
		x:        8,
		y:        8,
		fontSize: DefaultFontSize,
		ttf:      goregular.TTF,
		fg:       color.White,
		bg:       color.NRGBA{A: 160},
	}
}

// WithSize sets the overlay texture size in pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithScreen sets the render target size used to place the overlay.
func WithScreen(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.screenW, o.screenH = width, height
		}
	}
}

// WithPosition sets the top-left corner of the overlay on screen.
func WithPosition(x, y int) Option {
	return func(o *options) {
		o.x, o.y = x, y
	}
}

// WithFontSize sets the text size in pixels per em.
func WithFontSize(px float64) Option {
	return func(o *options) {
		if px > 0 {
			o.fontSize = px
		}
	}
}

// WithFont replaces the default Go Regular font with TrueType or OpenType
// data.
func WithFont(ttf []byte) Option {
	return func(o *options) {
		o.ttf = ttf
	}
}

// WithColors sets the text and background colors.
func WithColors(fg, bg color.Color) Option {
	return func(o *options) {
		o.fg, o.bg = fg, bg
	}
}

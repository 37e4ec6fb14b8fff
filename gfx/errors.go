package gfx

import "errors"

// ErrPixelSize is returned when texture data does not match its descriptor.
var ErrPixelSize = errors.New("gfx: pixel data size mismatch")

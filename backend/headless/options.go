package headless

import "image"

// Default framebuffer size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Option configures a Device.
type Option func(*options)

type options struct {
	width, height int
	validate      bool
	trace         bool
	onPresent     func(frame uint64, fb *image.RGBA)
}

func defaultOptions() options {
	return options{
		width:    DefaultWidth,
		height:   DefaultHeight,
		validate: true,
	}
}

// WithSize sets the framebuffer size. Non-positive values keep the default.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithShaderValidation enables or disables IR validation when CreateShader
// compiles WGSL. Shaders are always parsed and compiled; validation is
// enabled by default.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithTrace records every device call; see Device.Trace.
func WithTrace() Option {
	return func(o *options) {
		o.trace = true
	}
}

// WithPresentHook calls fn from Present with the frame number and the
// framebuffer. The image is only valid during the call, and fn must not
// call back into the device.
func WithPresentHook(fn func(frame uint64, fb *image.RGBA)) Option {
	return func(o *options) {
		o.onPresent = fn
	}
}

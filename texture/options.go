package texture

import "golang.org/x/image/draw"

// Option configures decoding.
type Option func(*options)

type options struct {
	maxSize int
	filter  draw.Interpolator
	flipY   bool
	srgb    bool
}

func defaultOptions() options {
	return options{filter: draw.CatmullRom}
}

// WithMaxSize downscales images whose width or height exceeds n pixels.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithFilter sets the resampling filter used when downscaling. The default
// is draw.CatmullRom; draw.ApproxBiLinear is faster.
func WithFilter(f draw.Interpolator) Option {
	return func(o *options) {
		if f != nil {
			o.filter = f
		}
	}
}

// WithFlipY stores rows bottom-up.
func WithFlipY() Option {
	return func(o *options) {
		o.flipY = true
	}
}

// WithSRGB tags the texels as sRGB encoded.
func WithSRGB() Option {
	return func(o *options) {
		o.srgb = true
	}
}

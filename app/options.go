package app

import (
	"time"

	"github.com/gogpu/engine/frame"
	"github.com/gogpu/engine/hud"
	"github.com/gogpu/gputypes"
)

// Defaults.
const (
	// DefaultFPS is the frame rate cap.
	DefaultFPS = 60

	// DefaultStatsInterval is how often frame statistics are logged.
	DefaultStatsInterval = 5 * time.Second
)

// Option configures Run.
type Option func(*options)

type options struct {
	fps           float64
	maxFrames     uint64
	clear         *gputypes.Color
	frameOpts     []frame.Option
	hud           bool
	hudOpts       []hud.Option
	statsInterval time.Duration
}

func defaultOptions() options {
	c := gputypes.ColorBlack
	return options{
		fps:           DefaultFPS,
		clear:         &c,
		statsInterval: DefaultStatsInterval,
	}
}

// WithFPS caps the frame rate. Zero or a negative value disables pacing.
func WithFPS(fps float64) Option {
	return func(o *options) {
		o.fps = fps
	}
}

// WithMaxFrames stops the loop after n frames. Zero means no limit.
func WithMaxFrames(n uint64) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}

// WithClearColor sets the color each frame starts from.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clear = &c
	}
}

// WithoutClear leaves the target as the previous frame left it.
func WithoutClear() Option {
	return func(o *options) {
		o.clear = nil
	}
}

// WithFrameOptions passes options to the frame.Renderer.
func WithFrameOptions(opts ...frame.Option) Option {
	return func(o *options) {
		o.frameOpts = append(o.frameOpts, opts...)
	}
}

// WithHUD enables the debug overlay. Frame.HUD is nil without it.
func WithHUD(opts ...hud.Option) Option {
	return func(o *options) {
		o.hud = true
		o.hudOpts = append(o.hudOpts, opts...)
	}
}

// WithStatsInterval sets how often frame statistics are logged at debug
// level. Zero disables the log.
func WithStatsInterval(d time.Duration) Option {
	return func(o *options) {
		o.statsInterval = d
	}
}

package frame

import "time"

// Defaults.
const (
	// DefaultFrameBytes is the packet memory of each slot.
	DefaultFrameBytes = 4 << 20

	// DefaultCapacity is the number of keyed submissions per frame.
	DefaultCapacity = 8192
)

// Event is a slot lifecycle event reported to an Observer.
type Event uint8

// Slot events.
const (
	// EventAcquire: the producer took the slot to record a frame.
	EventAcquire Event = iota + 1
	// EventKick: the producer handed the slot to the render goroutine.
	EventKick
	// EventRelease: the render goroutine finished with the slot.
	EventRelease
)

func (e Event) String() string {
	switch e {
	case EventAcquire:
		return "acquire"
	case EventKick:
		return "kick"
	case EventRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Observer receives slot events. Acquire and kick are reported on the
// producer goroutine, release on the render goroutine before the slot is
// signaled free. Observers must not block.
type Observer func(ev Event, slot int, frame uint64)

// Option configures a Renderer.
type Option func(*options)

type options struct {
	frameBytes int
	capacity   int
	mapped     bool
	timeout    time.Duration
	observer   Observer
	workers    int
}

func defaultOptions() options {
	return options{
		frameBytes: DefaultFrameBytes,
		capacity:   DefaultCapacity,
	}
}

// WithFrameBytes sets the packet memory of each slot.
func WithFrameBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.frameBytes = n
		}
	}
}

// WithCapacity sets the number of keyed submissions per frame.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithMappedMemory places slot arenas in anonymous memory mappings instead
// of the Go heap where the platform supports it.
func WithMappedMemory() Option {
	return func(o *options) {
		o.mapped = true
	}
}

// WithFrameTimeout bounds how long the producer waits for a slot. A wait
// longer than d fails with ErrFrameTimeout and the renderer stops accepting
// frames. Zero, the default, waits forever.
func WithFrameTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithObserver installs a slot event observer.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithWorkers sets the number of goroutines Encode uses. Zero, the
// default, uses GOMAXPROCS. The pool is started on the first Encode.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

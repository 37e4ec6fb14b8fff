package app

import (
	"sync"

	"github.com/gogpu/gpucontext"
)

// Window is the windowing collaborator. Event callbacks registered through
// the embedded EventSource run from PollEvents on the loop goroutine.
type Window interface {
	gpucontext.WindowProvider
	gpucontext.EventSource

	// PollEvents delivers pending events and reports whether the window
	// is still open.
	PollEvents() bool

	// Close destroys the window.
	Close() error
}

// HeadlessWindow is a Window without a display. Events injected with its
// methods are queued and delivered on the next PollEvents, the way a
// platform window delivers them from its event queue.
type HeadlessWindow struct {
	gpucontext.NullEventSource

	mu     sync.Mutex
	w, h   int
	scale  float64
	polls  int // remaining polls, negative for no limit
	closed bool
	redraw int
	queue  []func()

	keyPress, keyRelease     func(gpucontext.Key, gpucontext.Modifiers)
	mousePress, mouseRelease func(gpucontext.MouseButton, float64, float64)
	mouseMove, scroll        func(float64, float64)
	resize                   func(int, int)
	focus                    func(bool)
}

var _ Window = (*HeadlessWindow)(nil)

// NewHeadlessWindow creates a width x height window that closes itself
// after polls calls to PollEvents. A negative polls keeps it open until
// Close or RequestClose.
func NewHeadlessWindow(width, height, polls int) *HeadlessWindow {
	return &HeadlessWindow{w: width, h: height, scale: 1, polls: polls}
}

// Size implements gpucontext.WindowProvider.
func (w *HeadlessWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w, w.h
}

// ScaleFactor implements gpucontext.WindowProvider.
func (w *HeadlessWindow) ScaleFactor() float64 {
	return w.scale
}

// RequestRedraw implements gpucontext.WindowProvider.
func (w *HeadlessWindow) RequestRedraw() {
	w.mu.Lock()
	w.redraw++
	w.mu.Unlock()
}

// Redraws returns the number of RequestRedraw calls.
func (w *HeadlessWindow) Redraws() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.redraw
}

// OnKeyPress implements gpucontext.EventSource.
func (w *HeadlessWindow) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	w.mu.Lock()
	w.keyPress = fn
	w.mu.Unlock()
}

// OnKeyRelease implements gpucontext.EventSource.
func (w *HeadlessWindow) OnKeyRelease(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	w.mu.Lock()
	w.keyRelease = fn
	w.mu.Unlock()
}

// OnMousePress implements gpucontext.EventSource.
func (w *HeadlessWindow) OnMousePress(fn func(gpucontext.MouseButton, float64, float64)) {
	w.mu.Lock()
	w.mousePress = fn
	w.mu.Unlock()
}

// OnMouseRelease implements gpucontext.EventSource.
func (w *HeadlessWindow) OnMouseRelease(fn func(gpucontext.MouseButton, float64, float64)) {
	w.mu.Lock()
	w.mouseRelease = fn
	w.mu.Unlock()
}

// OnMouseMove implements gpucontext.EventSource.
func (w *HeadlessWindow) OnMouseMove(fn func(float64, float64)) {
	w.mu.Lock()
	w.mouseMove = fn
	w.mu.Unlock()
}

// OnScroll implements gpucontext.EventSource.
func (w *HeadlessWindow) OnScroll(fn func(float64, float64)) {
	w.mu.Lock()
	w.scroll = fn
	w.mu.Unlock()
}

// OnResize implements gpucontext.EventSource.
func (w *HeadlessWindow) OnResize(fn func(int, int)) {
	w.mu.Lock()
	w.resize = fn
	w.mu.Unlock()
}

// OnFocus implements gpucontext.EventSource.
func (w *HeadlessWindow) OnFocus(fn func(bool)) {
	w.mu.Lock()
	w.focus = fn
	w.mu.Unlock()
}

// PressKey queues a key press.
func (w *HeadlessWindow) PressKey(key gpucontext.Key, mods gpucontext.Modifiers) {
	w.post(func() {
		if w.keyPress != nil {
			w.keyPress(key, mods)
		}
	})
}

// ReleaseKey queues a key release.
func (w *HeadlessWindow) ReleaseKey(key gpucontext.Key, mods gpucontext.Modifiers) {
	w.post(func() {
		if w.keyRelease != nil {
			w.keyRelease(key, mods)
		}
	})
}

// PressButton queues a mouse button press at x, y.
func (w *HeadlessWindow) PressButton(b gpucontext.MouseButton, x, y float64) {
	w.post(func() {
		if w.mousePress != nil {
			w.mousePress(b, x, y)
		}
	})
}

// ReleaseButton queues a mouse button release at x, y.
func (w *HeadlessWindow) ReleaseButton(b gpucontext.MouseButton, x, y float64) {
	w.post(func() {
		if w.mouseRelease != nil {
			w.mouseRelease(b, x, y)
		}
	})
}

// MoveMouse queues a cursor move.
func (w *HeadlessWindow) MoveMouse(x, y float64) {
	w.post(func() {
		if w.mouseMove != nil {
			w.mouseMove(x, y)
		}
	})
}

// Resize queues a size change. The new size is visible through Size once
// the event is delivered.
func (w *HeadlessWindow) Resize(width, height int) {
	w.post(func() {
		w.mu.Lock()
		w.w, w.h = width, height
		w.mu.Unlock()
		if w.resize != nil {
			w.resize(width, height)
		}
	})
}

// SetFocus queues a focus change.
func (w *HeadlessWindow) SetFocus(focused bool) {
	w.post(func() {
		if w.focus != nil {
			w.focus(focused)
		}
	})
}

// RequestClose makes the next PollEvents report the window closed.
func (w *HeadlessWindow) RequestClose() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// PollEvents implements Window.
func (w *HeadlessWindow) PollEvents() bool {
	w.mu.Lock()
	queue := w.queue
	w.queue = nil
	w.mu.Unlock()

	for _, ev := range queue {
		ev()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	if w.polls == 0 {
		w.closed = true
		return false
	}
	if w.polls > 0 {
		w.polls--
	}
	return true
}

// Close implements Window.
func (w *HeadlessWindow) Close() error {
	w.mu.Lock()
	w.closed = true
	w.queue = nil
	w.mu.Unlock()
	return nil
}

// post queues ev. Callbacks are read when ev runs, on the polling goroutine.
func (w *HeadlessWindow) post(ev func()) {
	w.mu.Lock()
	w.queue = append(w.queue, ev)
	w.mu.Unlock()
}

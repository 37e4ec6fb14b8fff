// Package input turns window key and mouse events into per-frame input
// snapshots.
//
// Keys and mouse buttons are bound to application-defined flag bits. The
// window collaborator delivers events through gpucontext.EventSource on its
// own thread; the frame loop calls Snapshot once per frame and sees which
// flags are held and which changed since the previous frame.
package input

import (
	"math/bits"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Flags is a set of application-defined input actions, one per bit.
type Flags uint64

// Has reports whether every flag in f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Any reports whether at least one flag in f2 is set in f.
func (f Flags) Any(f2 Flags) bool {
	return f&f2 != 0
}

// Snapshot is the input state for one frame.
type Snapshot struct {
	// Down holds the flags whose keys or buttons are held.
	Down Flags
	// Pressed holds the flags that went down since the previous snapshot,
	// including taps released again before it.
	Pressed Flags
	// Released holds the flags that went up since the previous snapshot.
	Released Flags

	Mods             gpucontext.Modifiers
	MouseX, MouseY   float64
	ScrollX, ScrollY float64
	Focused          bool
}

// State collects events between snapshots. It is safe for concurrent use.
type State struct {
	mu sync.Mutex

	keys    map[gpucontext.Key]Flags
	buttons map[gpucontext.MouseButton]Flags

	held     map[any]Flags // flags raised when each held input went down
	count    [64]uint16    // held inputs per flag bit
	pressed  Flags
	released Flags

	mods             gpucontext.Modifiers
	mouseX, mouseY   float64
	scrollX, scrollY float64
	focused          bool
}

// New creates an empty, focused State.
func New() *State {
	return &State{
		keys:    make(map[gpucontext.Key]Flags),
		buttons: make(map[gpucontext.MouseButton]Flags),
		held:    make(map[any]Flags),
		focused: true,
	}
}

// BindKey adds flags to the set raised by key.
func (s *State) BindKey(key gpucontext.Key, flags Flags) {
	s.mu.Lock()
	s.keys[key] |= flags
	s.mu.Unlock()
}

// BindButton adds flags to the set raised by a mouse button.
func (s *State) BindButton(b gpucontext.MouseButton, flags Flags) {
	s.mu.Lock()
	s.buttons[b] |= flags
	s.mu.Unlock()
}

// Attach subscribes the state to a window's events.
func (s *State) Attach(src gpucontext.EventSource) {
	src.OnKeyPress(s.KeyDown)
	src.OnKeyRelease(s.KeyUp)
	src.OnMousePress(func(b gpucontext.MouseButton, x, y float64) {
		s.ButtonDown(b)
		s.MouseMove(x, y)
	})
	src.OnMouseRelease(func(b gpucontext.MouseButton, x, y float64) {
		s.ButtonUp(b)
		s.MouseMove(x, y)
	})
	src.OnMouseMove(s.MouseMove)
	src.OnScroll(s.Scroll)
	src.OnFocus(s.Focus)
}

// KeyDown records a key press. Repeats of a held key are ignored.
func (s *State) KeyDown(key gpucontext.Key, mods gpucontext.Modifiers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods = mods
	s.down(key, s.keys[key])
}

// KeyUp records a key release.
func (s *State) KeyUp(key gpucontext.Key, mods gpucontext.Modifiers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods = mods
	s.up(key)
}

// ButtonDown records a mouse button press.
func (s *State) ButtonDown(b gpucontext.MouseButton) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down(b, s.buttons[b])
}

// ButtonUp records a mouse button release.
func (s *State) ButtonUp(b gpucontext.MouseButton) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.up(b)
}

// MouseMove records the pointer position.
func (s *State) MouseMove(x, y float64) {
	s.mu.Lock()
	s.mouseX, s.mouseY = x, y
	s.mu.Unlock()
}

// Scroll accumulates wheel movement until the next snapshot.
func (s *State) Scroll(dx, dy float64) {
	s.mu.Lock()
	s.scrollX += dx
	s.scrollY += dy
	s.mu.Unlock()
}

// Focus records focus changes. Losing focus releases everything held,
// since the window will not report releases while unfocused.
func (s *State) Focus(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = focused
	if focused {
		return
	}
	for in := range s.held {
		s.up(in)
	}
	s.mods = 0
}

// Snapshot returns the state for this frame and starts collecting edges
// and scroll for the next one.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Down:     s.flags(),
		Pressed:  s.pressed,
		Released: s.released,
		Mods:     s.mods,
		MouseX:   s.mouseX,
		MouseY:   s.mouseY,
		ScrollX:  s.scrollX,
		ScrollY:  s.scrollY,
		Focused:  s.focused,
	}
	s.pressed, s.released = 0, 0
	s.scrollX, s.scrollY = 0, 0
	return snap
}

func (s *State) down(in any, f Flags) {
	if _, ok := s.held[in]; ok {
		return
	}
	s.held[in] = f
	for b := f; b != 0; b &= b - 1 {
		i := bits.TrailingZeros64(uint64(b))
		if s.count[i] == 0 {
			s.pressed |= 1 << i
		}
		s.count[i]++
	}
}

func (s *State) up(in any) {
	f, ok := s.held[in]
	if !ok {
		return
	}
	delete(s.held, in)
	for b := f; b != 0; b &= b - 1 {
		i := bits.TrailingZeros64(uint64(b))
		if s.count[i] == 0 {
			continue
		}
		s.count[i]--
		if s.count[i] == 0 {
			s.released |= 1 << i
		}
	}
}

func (s *State) flags() Flags {
	var f Flags
	for i, n := range s.count {
		if n > 0 {
			f |= 1 << i
		}
	}
	return f
}

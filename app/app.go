// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package app runs the frame loop.
//
// Run ties a window, an input state, a game and a frame.Renderer together.
// Each iteration polls window events, waits for the frame rate limiter,
// acquires a frame slot, snapshots input, calls the game's Update and
// Render with the frame's command buffer and commits the frame to the
// render goroutine:
//
//	win := app.NewHeadlessWindow(640, 480, -1)
//	err := app.Run(ctx, win, headless.New(), game, app.WithFPS(30))
//
// The loop stops when the window closes, ctx is done, the game returns
// ErrQuit or the frame limit is reached. Run then records one last frame
// releasing the resources it created, drains the renderer and closes the
// window.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/frame"
	"github.com/gogpu/engine/gfx"
	"github.com/gogpu/engine/hud"
	"github.com/gogpu/engine/input"
)

// Errors.
var (
	// ErrQuit is returned by a game's Update or Render to stop the loop
	// after the current frame. Run returns nil for it.
	ErrQuit = errors.New("app: quit")

	// ErrNoWindow is returned by Run without a window.
	ErrNoWindow = errors.New("app: no window")
)

// Game is driven by Run once per frame.
type Game interface {
	// Update advances the simulation.
	Update(f *Frame) error

	// Render records the frame's commands into f.Buffer.
	Render(f *Frame) error
}

// Loader is implemented by games that prepare before the first frame,
// typically binding input and preloading assets.
type Loader interface {
	Load(ctx context.Context, a *App) error
}

// Unloader is implemented by games that release resources when the loop
// stops. Unload records into the final frame.
type Unloader interface {
	Unload(f *Frame) error
}

// App is the state shared by the frames of one Run.
type App struct {
	// Assets caches meshes and textures.
	Assets *Assets
	// Input collects window events between frames.
	Input *input.State
	// Handles reserves resource handles.
	Handles backend.Handles

	win    Window
	r      *frame.Renderer
	hud    *hud.Overlay
	shader backend.Handle
	opts   options

	w, h int
}

// Frame is the per-frame view given to the game.
type Frame struct {
	// Number counts frames from 1.
	Number uint64
	// Delta is the time since the previous frame.
	Delta time.Duration
	// Elapsed is the time since the first frame.
	Elapsed time.Duration
	// Input is the input snapshot for this frame.
	Input input.Snapshot
	// Width and Height are the target size in pixels.
	Width, Height int

	// Buffer receives the frame's commands.
	Buffer *cmdbuf.Buffer
	// Renderer is the renderer recording the frame, for frame.Submit and
	// parallel encoding.
	Renderer *frame.Renderer
	// HUD is the debug overlay, or nil without WithHUD.
	HUD *hud.Overlay

	app *App
}

// App returns the application the frame belongs to.
func (f *Frame) App() *App {
	return f.app
}

// MeshShader returns the built-in mesh shader, queuing its creation in
// this frame on first use.
func (f *Frame) MeshShader() (backend.Handle, error) {
	a := f.app
	if !a.shader.IsValid() {
		h := a.Handles.Next()
		if err := gfx.Shader(f.Buffer, h, gfx.MeshShaderWGSL); err != nil {
			return backend.InvalidHandle, fmt.Errorf("app: mesh shader: %w", err)
		}
		a.shader = h
	}
	return a.shader, nil
}

// Run initializes dev, starts a renderer for it and drives game until the
// loop stops. The renderer takes ownership of dev and closes it, and Run
// closes win before returning. A canceled ctx stops the loop without an
// error.
func Run(ctx context.Context, win Window, dev backend.Device, game Game, opts ...Option) (err error) {
	if win == nil {
		return ErrNoWindow
	}
	if dev == nil {
		return fmt.Errorf("app: %w", frame.ErrNoDevice)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := dev.Init(); err != nil {
		return fmt.Errorf("app: init %s: %w", dev.Name(), err)
	}
	r, err := frame.New(dev, o.frameOpts...)
	if err != nil {
		return errors.Join(fmt.Errorf("app: %w", err), dev.Close(), win.Close())
	}

	a := &App{
		Assets: NewAssets(0),
		Input:  input.New(),
		win:    win,
		r:      r,
		opts:   o,
	}
	a.Input.Attach(win)
	defer func() {
		err = errors.Join(err, a.shutdown(game))
	}()

	if o.hud {
		w, h := a.targetSize()
		a.hud, err = hud.New(append([]hud.Option{hud.WithScreen(w, h)}, o.hudOpts...)...)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	if l, ok := game.(Loader); ok {
		if err := l.Load(ctx, a); err != nil {
			return fmt.Errorf("app: load: %w", err)
		}
	}

	engine.Logger().Info("frame loop started", "device", dev.Name(), "fps", o.fps, "max_frames", o.maxFrames)
	return a.loop(ctx, game)
}

func (a *App) loop(ctx context.Context, game Game) error {
	var limiter *rate.Limiter
	if a.opts.fps > 0 {
		limiter = rate.NewLimiter(rate.Limit(a.opts.fps), 1)
	}

	start := time.Now()
	last := start
	stats := statsLog{at: start}
	for n := uint64(0); a.opts.maxFrames == 0 || n < a.opts.maxFrames; n++ {
		if ctx.Err() != nil || !a.win.PollEvents() {
			return nil
		}
		if limiter != nil {
			// Wait fails only for a canceled ctx or one whose deadline
			// comes before the next frame.
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		if err := a.r.BeginFrame(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("app: %w", err)
		}
		buf, err := a.r.Buffer()
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}

		now := time.Now()
		f := &Frame{
			Number:   a.r.Frame(),
			Delta:    now.Sub(last),
			Elapsed:  now.Sub(start),
			Input:    a.Input.Snapshot(),
			Buffer:   buf,
			Renderer: a.r,
			HUD:      a.hud,
			app:      a,
		}
		f.Width, f.Height = a.targetSize()
		last = now

		err = a.begin(f)
		if err == nil {
			err = game.Update(f)
		}
		if err == nil {
			err = game.Render(f)
		}
		if err == nil && a.hud != nil {
			err = a.submitHUD(f)
		}
		if cerr := a.r.Commit(); cerr != nil {
			return errors.Join(err, fmt.Errorf("app: %w", cerr))
		}
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("app: frame %d: %w", f.Number, err)
		}
		stats.tick(a.r, now, a.opts.statsInterval)
	}
	return nil
}

// targetSize returns the window size in pixels.
func (a *App) targetSize() (int, int) {
	w, h := a.win.Size()
	scale := a.win.ScaleFactor()
	return int(float64(w) * scale), int(float64(h) * scale)
}

// begin sets the viewport to the whole target and clears it.
func (a *App) begin(f *Frame) error {
	vp, err := cmdbuf.Add[gfx.SetViewport](f.Buffer, gfx.SetupKey(gfx.StepClear))
	if err != nil {
		return err
	}
	vp.Viewport = backend.Viewport{Width: int32(f.Width), Height: int32(f.Height)}
	if a.opts.clear != nil {
		c, err := cmdbuf.Append[gfx.Clear](f.Buffer, vp)
		if err != nil {
			return err
		}
		c.Color = *a.opts.clear
	}

	if f.Width != a.w || f.Height != a.h {
		if a.w != 0 || a.h != 0 {
			engine.Logger().Debug("target resized", "width", f.Width, "height", f.Height)
		}
		a.w, a.h = f.Width, f.Height
		if a.hud != nil {
			a.hud.SetScreen(f.Width, f.Height)
		}
	}
	return nil
}

func (a *App) submitHUD(f *Frame) error {
	shader, err := f.MeshShader()
	if err != nil {
		return err
	}
	s := a.r.Stats()
	a.hud.Printf("frame %d  %.2f ms  dropped %d", f.Number, float64(f.Delta.Microseconds())/1000, s.Dropped)
	return a.hud.Submit(f.Buffer, &a.Handles, shader)
}

// shutdown records a final frame releasing the game's and the app's
// resources, then stops the renderer and closes the window.
func (a *App) shutdown(game Game) error {
	var errs []error
	u, unload := game.(Unloader)
	if unload || a.hud != nil || a.shader.IsValid() {
		errs = append(errs, a.release(u))
	}
	errs = append(errs, a.r.Shutdown(), a.win.Close())

	s := a.r.Stats()
	engine.Logger().Info("frame loop stopped",
		"committed", s.Committed, "rendered", s.Rendered, "dropped", s.Dropped,
		"dispatch_errors", s.DispatchErrors)
	return errors.Join(errs...)
}

func (a *App) release(u Unloader) error {
	buf, err := a.r.Buffer()
	if err != nil {
		return fmt.Errorf("app: final frame: %w", err)
	}
	f := &Frame{Number: a.r.Frame(), Buffer: buf, Renderer: a.r, HUD: a.hud, app: a}
	f.Width, f.Height = a.targetSize()

	var errs []error
	if u != nil {
		if err := u.Unload(f); err != nil {
			errs = append(errs, fmt.Errorf("app: unload: %w", err))
		}
	}
	if a.hud != nil {
		errs = append(errs, a.hud.Close(buf))
	}
	if a.shader.IsValid() {
		errs = append(errs, gfx.Release(buf, a.shader))
		a.shader = backend.InvalidHandle
	}
	errs = append(errs, a.r.Commit())
	return errors.Join(errs...)
}

// statsLog logs renderer statistics at a fixed interval.
type statsLog struct {
	at     time.Time
	frames uint64
}

func (l *statsLog) tick(r *frame.Renderer, now time.Time, every time.Duration) {
	if every <= 0 || now.Sub(l.at) < every {
		return
	}
	s := r.Stats()
	fps := float64(s.Committed-l.frames) / now.Sub(l.at).Seconds()
	engine.Logger().Debug("frame stats",
		"fps", fps, "committed", s.Committed, "rendered", s.Rendered,
		"dropped", s.Dropped, "dispatch_errors", s.DispatchErrors, "high_water", s.HighWater)
	l.at, l.frames = now, s.Committed
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/arena"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/internal/parallel"
)

// Renderer errors.
var (
	// ErrNoDevice is returned by New without a device.
	ErrNoDevice = errors.New("frame: no device")

	// ErrClosed is returned by producer calls after Shutdown.
	ErrClosed = errors.New("frame: renderer is shut down")

	// ErrFrameTimeout is returned when the render goroutine does not release
	// a slot within the configured frame timeout. The renderer rejects every
	// later frame.
	ErrFrameTimeout = errors.New("frame: timed out waiting for render thread")
)

// slotCount is the depth of the pipeline: one slot recording, one rendering.
const slotCount = 2

type slot struct {
	arena *arena.Arena
	buf   *cmdbuf.Buffer

	// ready holds a token while the render goroutine is done with the slot.
	ready chan struct{}

	// frame is written by the producer before the kick and read by the
	// render goroutine after receiving it.
	frame uint64

	// reported is the buffer's drop count at the last commit.
	reported uint64
}

// Renderer hands command buffers from the producer to a render goroutine.
//
// The renderer owns the device given to New: the render goroutine is the
// only caller of its methods and closes it on Shutdown.
type Renderer struct {
	dev  backend.Device
	opts options

	slots [slotCount]slot
	kick  chan int
	done  chan struct{}

	// Producer state.
	producer int
	acquired bool
	frame    uint64
	err      error
	pool     *parallel.Pool

	closing  atomic.Bool
	shutdown sync.Once
	shutErr  error
	devErr   error // written by the render goroutine before done closes

	committed      atomic.Uint64
	rendered       atomic.Uint64
	dispatchErrors atomic.Uint64
	presentErrors  atomic.Uint64
}

// Stats holds renderer counters.
type Stats struct {
	Committed      uint64 // Frames handed to the render goroutine
	Rendered       uint64 // Frames dispatched and presented
	Dropped        uint64 // Submissions rejected for lack of slots or memory
	DispatchErrors uint64 // Command failures reported during dispatch
	PresentErrors  uint64 // Failed presents
	HighWater      int    // Largest packet memory use of a single frame
}

// New starts the render goroutine for dev. The goroutine locks itself to
// an OS thread and, if dev implements backend.ThreadBinder, binds the
// device to it before New returns.
func New(dev backend.Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		dev:  dev,
		opts: o,
		kick: make(chan int, slotCount+1),
		done: make(chan struct{}),
	}
	for i := range r.slots {
		a, err := newArena(&o)
		if err != nil {
			r.releaseArenas()
			return nil, fmt.Errorf("frame: slot %d: %w", i, err)
		}
		r.slots[i] = slot{
			arena: a,
			buf:   cmdbuf.New(a, o.capacity),
			ready: make(chan struct{}, 1),
		}
		r.slots[i].ready <- struct{}{}
	}

	started := make(chan error, 1)
	go r.run(started)
	if err := <-started; err != nil {
		<-r.done
		r.releaseArenas()
		return nil, fmt.Errorf("frame: bind render thread: %w", err)
	}

	engine.Logger().Info("render thread started",
		"device", dev.Name(), "frame_bytes", o.frameBytes, "capacity", o.capacity, "mapped", o.mapped)
	return r, nil
}

func newArena(o *options) (*arena.Arena, error) {
	if o.mapped {
		return arena.NewMapped(o.frameBytes)
	}
	return arena.New(o.frameBytes)
}

func (r *Renderer) releaseArenas() error {
	var errs []error
	for i := range r.slots {
		if a := r.slots[i].arena; a != nil {
			errs = append(errs, a.Close())
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Producer
// --------------------------------------------------------------------------

// BeginFrame acquires the next slot for recording, waiting until the render
// goroutine has released it or ctx is done. Submitting without BeginFrame
// acquires the slot implicitly with no deadline other than the frame
// timeout. BeginFrame is a no-op while a frame is being recorded.
func (r *Renderer) BeginFrame(ctx context.Context) error {
	if r.closing.Load() {
		return ErrClosed
	}
	return r.acquire(ctx)
}

// Buffer returns the command buffer of the frame being recorded, acquiring
// a slot first if needed. The buffer is valid until the next Commit.
func (r *Renderer) Buffer() (*cmdbuf.Buffer, error) {
	if r.closing.Load() {
		return nil, ErrClosed
	}
	if err := r.acquire(context.Background()); err != nil {
		return nil, err
	}
	return r.slots[r.producer].buf, nil
}

// Frame returns the number of the frame being recorded, or of the last
// committed one between frames. Frames are numbered from 1.
func (r *Renderer) Frame() uint64 {
	return r.frame
}

// Commit hands the recorded frame to the render goroutine and switches the
// producer to the other slot. It does not wait for the render goroutine;
// committing without any submission acquires a slot first so the empty
// frame is still presented.
func (r *Renderer) Commit() error {
	if r.closing.Load() {
		return ErrClosed
	}
	if err := r.acquire(context.Background()); err != nil {
		return err
	}

	idx := r.producer
	s := &r.slots[idx]
	if dropped := s.buf.Dropped(); dropped != s.reported {
		engine.Logger().Warn("commands dropped",
			"frame", s.frame, "dropped", dropped-s.reported, "capacity", s.buf.Cap(),
			"arena_bytes", s.arena.Cap())
		s.reported = dropped
	}

	r.acquired = false
	r.producer = (idx + 1) % slotCount
	r.committed.Add(1)
	r.observe(EventKick, idx, s.frame)
	r.kick <- idx
	return nil
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	if r.acquired {
		return nil
	}

	idx := r.producer
	s := &r.slots[idx]
	select {
	case <-s.ready:
	default:
		if err := r.wait(ctx, idx); err != nil {
			return err
		}
	}

	r.frame++
	s.frame = r.frame
	r.acquired = true
	r.observe(EventAcquire, idx, s.frame)
	return nil
}

// wait blocks until slot idx is released, ctx is done or the frame timeout
// expires.
func (r *Renderer) wait(ctx context.Context, idx int) error {
	var timeout <-chan time.Time
	if r.opts.timeout > 0 {
		t := time.NewTimer(r.opts.timeout)
		defer t.Stop()
		timeout = t.C
	}

	start := time.Now()
	select {
	case <-r.slots[idx].ready:
		engine.Logger().Debug("waited for render thread", "slot", idx, "wait", time.Since(start))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		r.err = fmt.Errorf("%w: slot %d not released after %v", ErrFrameTimeout, idx, r.opts.timeout)
		engine.Logger().Error("render thread stalled", "slot", idx, "timeout", r.opts.timeout)
		return r.err
	}
}

// Shutdown stops the render goroutine after it has rendered every committed
// frame, closes the device and releases slot memory. A frame being recorded
// is discarded. Shutdown must be called from the producer goroutine; later
// calls return the first result.
func (r *Renderer) Shutdown() error {
	r.shutdown.Do(func() {
		r.closing.Store(true)

		if r.acquired {
			s := &r.slots[r.producer]
			s.buf.Reset()
			r.acquired = false
			s.ready <- struct{}{}
		}
		r.kick <- -1

		if !r.join() {
			r.shutErr = fmt.Errorf("%w: shutdown", ErrFrameTimeout)
			return
		}
		if r.pool != nil {
			r.pool.Close()
		}
		r.shutErr = errors.Join(r.devErr, r.releaseArenas())

		engine.Logger().Info("render thread stopped",
			"committed", r.committed.Load(), "rendered", r.rendered.Load())
	})
	return r.shutErr
}

// join waits for the render goroutine, bounded by the frame timeout.
func (r *Renderer) join() bool {
	if r.opts.timeout <= 0 {
		<-r.done
		return true
	}
	t := time.NewTimer(r.opts.timeout)
	defer t.Stop()
	select {
	case <-r.done:
		return true
	case <-t.C:
		return false
	}
}

// Closed reports whether Shutdown has been called. Safe from any goroutine.
func (r *Renderer) Closed() bool {
	return r.closing.Load()
}

// Stats returns the renderer counters. Safe from any goroutine.
func (r *Renderer) Stats() Stats {
	s := Stats{
		Committed:      r.committed.Load(),
		Rendered:       r.rendered.Load(),
		DispatchErrors: r.dispatchErrors.Load(),
		PresentErrors:  r.presentErrors.Load(),
	}
	for i := range r.slots {
		s.Dropped += r.slots[i].buf.Dropped()
		s.HighWater = max(s.HighWater, r.slots[i].arena.Stats().HighWater)
	}
	return s
}

func (r *Renderer) observe(ev Event, idx int, frame uint64) {
	if r.opts.observer != nil {
		r.opts.observer(ev, idx, frame)
	}
}

// --------------------------------------------------------------------------
// Render goroutine
// --------------------------------------------------------------------------

func (r *Renderer) run(started chan<- error) {
	defer close(r.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if tb, ok := r.dev.(backend.ThreadBinder); ok {
		if err := tb.BindThread(); err != nil {
			started <- err
			return
		}
	}
	started <- nil

	ctx := &cmdbuf.Context{Device: r.dev}
	for {
		idx := <-r.kick
		if idx < 0 {
			break
		}
		r.render(idx, ctx)
	}

	r.devErr = r.dev.Close()
}

// render sorts, dispatches and presents one slot, then releases it.
func (r *Renderer) render(idx int, ctx *cmdbuf.Context) {
	s := &r.slots[idx]
	ctx.Frame = s.frame

	s.buf.Sort()
	n := s.buf.Len()
	if err := s.buf.Dispatch(ctx); err != nil {
		r.dispatchErrors.Add(uint64(ctx.Failures()))
		engine.Logger().Warn("command failures",
			"frame", s.frame, "failures", ctx.Failures(), "error", err)
	}
	if err := r.dev.Present(); err != nil {
		r.presentErrors.Add(1)
		engine.Logger().Warn("present failed", "frame", s.frame, "error", err)
	}
	r.rendered.Add(1)

	engine.Logger().Debug("frame rendered",
		"frame", s.frame, "slot", idx, "submissions", n, "executed", ctx.Executed)

	r.observe(EventRelease, idx, s.frame)
	s.ready <- struct{}{}
}

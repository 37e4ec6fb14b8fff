package frame

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/engine/arena"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/sortkey"
)

type entry struct {
	frame uint64
	seq   int32
}

// testDevice records what the render goroutine executes. Its log is only
// read after Shutdown, which orders it after every render.
type testDevice struct {
	backend.Device

	gate     chan struct{} // when set, Present waits for a token or close
	bindErr  error
	log      []entry
	presents atomic.Uint64
	mismatch atomic.Uint64
	bound    atomic.Bool
	closed   atomic.Bool
}

func (d *testDevice) Name() string { return "test" }

func (d *testDevice) BindThread() error {
	d.bound.Store(true)
	return d.bindErr
}

func (d *testDevice) Present() error {
	if d.gate != nil {
		<-d.gate
	}
	d.presents.Add(1)
	return nil
}

func (d *testDevice) Close() error {
	d.closed.Store(true)
	return nil
}

// stampCmd logs its sequence number and checks that it executes in the
// frame it was recorded for.
type stampCmd struct {
	Frame uint64
	Seq   int32
}

func (c *stampCmd) Execute(ctx *cmdbuf.Context) {
	d := ctx.Device.(*testDevice)
	if c.Frame != ctx.Frame {
		d.mismatch.Add(1)
	}
	d.log = append(d.log, entry{frame: ctx.Frame, seq: c.Seq})
}

// blobCmd carries a fixed 64-byte payload.
type blobCmd struct {
	Data [64]byte
}

func (c *blobCmd) Execute(ctx *cmdbuf.Context) {
	d := ctx.Device.(*testDevice)
	d.log = append(d.log, entry{frame: ctx.Frame, seq: int32(c.Data[0])})
}

type failCmd struct{}

func (*failCmd) Execute(ctx *cmdbuf.Context) { ctx.Fail(errors.New("lost")) }

func newRenderer(t *testing.T, dev *testDevice, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(dev, append([]Option{WithFrameBytes(64 << 10), WithCapacity(256)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

func stamp(t *testing.T, r *Renderer, key uint64, seq int32) *stampCmd {
	t.Helper()
	c, err := Submit[stampCmd](r, sortkey.Key(key))
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	c.Frame = r.Frame()
	c.Seq = seq
	return c
}

func commit(t *testing.T, r *Renderer) {
	t.Helper()
	if err := r.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
}

func TestNew_NoDevice(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("New(nil) error = %v, want ErrNoDevice", err)
	}
}

func TestNew_BindThreadError(t *testing.T) {
	errBind := errors.New("no context")
	_, err := New(&testDevice{bindErr: errBind})
	if !errors.Is(err, errBind) {
		t.Errorf("New() error = %v, want %v", err, errBind)
	}
}

func TestRenderer_FramesInOrder(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev)

	const frames = 50
	for range frames {
		stamp(t, r, 0x30, 3)
		stamp(t, r, 0x10, 1)
		stamp(t, r, 0x20, 2)
		commit(t, r)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if len(dev.log) != frames*3 {
		t.Fatalf("executed %d commands, want %d", len(dev.log), frames*3)
	}
	for i, e := range dev.log {
		wantFrame := uint64(i/3 + 1)
		wantSeq := int32(i%3 + 1)
		if e.frame != wantFrame || e.seq != wantSeq {
			t.Fatalf("log[%d] = %+v, want frame %d seq %d", i, e, wantFrame, wantSeq)
		}
	}
	if n := dev.mismatch.Load(); n != 0 {
		t.Errorf("%d commands executed in the wrong frame", n)
	}
	if dev.presents.Load() != frames {
		t.Errorf("presents = %d, want %d", dev.presents.Load(), frames)
	}
	if !dev.bound.Load() || !dev.closed.Load() {
		t.Errorf("bound = %v, closed = %v", dev.bound.Load(), dev.closed.Load())
	}
	s := r.Stats()
	if s.Committed != frames || s.Rendered != frames || s.Dropped != 0 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.HighWater == 0 {
		t.Error("HighWater should record packet memory use")
	}
}

// TestRenderer_NoAliasing checks through the observer that a slot is never
// acquired by the producer while the render goroutine still owns it.
func TestRenderer_NoAliasing(t *testing.T) {
	const (
		idle = iota
		recording
		rendering
	)

	var (
		mu        sync.Mutex
		state     [slotCount]int
		violation []string
		events    int
	)
	observer := func(ev Event, idx int, frame uint64) {
		mu.Lock()
		defer mu.Unlock()
		events++

		want, next := idle, recording
		switch ev {
		case EventKick:
			want, next = recording, rendering
		case EventRelease:
			want, next = rendering, idle
		}
		if state[idx] != want {
			violation = append(violation, ev.String())
		}
		state[idx] = next
	}

	dev := &testDevice{}
	r := newRenderer(t, dev, WithObserver(observer))

	const frames = 200
	for i := range frames {
		if err := r.BeginFrame(context.Background()); err != nil {
			t.Fatal(err)
		}
		for j := range 10 {
			stamp(t, r, uint64(j), int32(j))
		}
		if i%7 == 0 {
			time.Sleep(time.Millisecond)
		}
		commit(t, r)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(violation) > 0 {
		t.Fatalf("slot state violations: %v", violation)
	}
	if events != frames*3 {
		t.Errorf("observed %d events, want %d", events, frames*3)
	}
	if state != [slotCount]int{idle, idle} {
		t.Errorf("final slot states = %v, want idle", state)
	}
	if n := dev.mismatch.Load(); n != 0 {
		t.Errorf("%d commands executed in the wrong frame", n)
	}
}

func TestRenderer_FrameTimeout(t *testing.T) {
	dev := &testDevice{gate: make(chan struct{})}
	r := newRenderer(t, dev, WithFrameTimeout(100*time.Millisecond))

	commit(t, r) // slot 0, render goroutine blocks in Present
	commit(t, r) // slot 1

	err := r.BeginFrame(context.Background())
	if !errors.Is(err, ErrFrameTimeout) {
		t.Fatalf("BeginFrame() error = %v, want ErrFrameTimeout", err)
	}
	if _, err := Submit[stampCmd](r, 0); !errors.Is(err, ErrFrameTimeout) {
		t.Errorf("Submit() after timeout error = %v, want ErrFrameTimeout", err)
	}

	close(dev.gate)
	if err := r.Shutdown(); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
	if got := r.Stats().Rendered; got != 2 {
		t.Errorf("Rendered = %d, want 2", got)
	}
}

func TestRenderer_BeginFrameContext(t *testing.T) {
	dev := &testDevice{gate: make(chan struct{}, 8)}
	r := newRenderer(t, dev)

	commit(t, r)
	commit(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.BeginFrame(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("BeginFrame() error = %v, want DeadlineExceeded", err)
	}

	dev.gate <- struct{}{}
	if err := r.BeginFrame(context.Background()); err != nil {
		t.Fatalf("BeginFrame() after release error: %v", err)
	}
	if r.Frame() != 3 {
		t.Errorf("Frame() = %d, want 3", r.Frame())
	}
	close(dev.gate)
}

func TestRenderer_ShutdownDrainsCommitted(t *testing.T) {
	dev := &testDevice{gate: make(chan struct{})}
	r := newRenderer(t, dev)

	stamp(t, r, 1, 1)
	commit(t, r)
	stamp(t, r, 1, 2)
	commit(t, r)

	done := make(chan error, 1)
	go func() { done <- r.Shutdown() }()

	select {
	case <-done:
		t.Fatal("Shutdown returned before committed frames were rendered")
	case <-time.After(20 * time.Millisecond):
	}

	close(dev.gate)
	if err := <-done; err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if len(dev.log) != 2 || dev.presents.Load() != 2 {
		t.Errorf("log = %v, presents = %d; want both frames", dev.log, dev.presents.Load())
	}
	if !dev.closed.Load() {
		t.Error("device not closed by Shutdown")
	}
}

func TestRenderer_ShutdownDiscardsRecording(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev)

	stamp(t, r, 1, 1)
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if len(dev.log) != 0 || r.Stats().Rendered != 0 {
		t.Errorf("uncommitted frame was rendered: %v", dev.log)
	}
	if !r.Closed() {
		t.Error("Closed() = false after Shutdown")
	}

	if _, err := Submit[stampCmd](r, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Shutdown error = %v, want ErrClosed", err)
	}
	if err := r.Commit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Commit() after Shutdown error = %v, want ErrClosed", err)
	}
	if err := r.BeginFrame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame() after Shutdown error = %v, want ErrClosed", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error: %v", err)
	}
}

func TestRenderer_Dropped(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev, WithCapacity(2))

	stamp(t, r, 1, 1)
	stamp(t, r, 2, 2)
	if _, err := Submit[stampCmd](r, 3); !errors.Is(err, cmdbuf.ErrCapacity) {
		t.Fatalf("third Submit() error = %v, want ErrCapacity", err)
	}
	commit(t, r)
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}

	if s := r.Stats(); s.Dropped != 1 || s.Rendered != 1 {
		t.Errorf("Stats() = %+v, want 1 dropped, 1 rendered", s)
	}
	if len(dev.log) != 2 {
		t.Errorf("executed %d commands, want 2", len(dev.log))
	}
}

func TestRenderer_SubmitChained(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev)

	head := stamp(t, r, 5, 1)
	stamp(t, r, 9, 4)
	second, err := SubmitChained[stampCmd](r, head)
	if err != nil {
		t.Fatal(err)
	}
	*second = stampCmd{Frame: r.Frame(), Seq: 2}
	third, extra, err := SubmitChainedExtra[stampCmd](r, second, 4)
	if err != nil {
		t.Fatal(err)
	}
	*third = stampCmd{Frame: r.Frame(), Seq: 3}
	copy(extra, "abcd")

	commit(t, r)
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}

	var seqs []int32
	for _, e := range dev.log {
		seqs = append(seqs, e.seq)
	}
	if len(seqs) != 4 || seqs[0] != 1 || seqs[1] != 2 || seqs[2] != 3 || seqs[3] != 4 {
		t.Errorf("dispatch order = %v, want [1 2 3 4]", seqs)
	}
}

func TestRenderer_DispatchErrors(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev)

	for range 3 {
		if _, err := Submit[failCmd](r, 0); err != nil {
			t.Fatal(err)
		}
	}
	stamp(t, r, 1, 1)
	commit(t, r)
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}

	if s := r.Stats(); s.DispatchErrors != 3 {
		t.Errorf("DispatchErrors = %d, want 3", s.DispatchErrors)
	}
	if len(dev.log) != 1 {
		t.Error("failures must not stop the dispatch")
	}
}

func TestRenderer_Encode(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev, WithWorkers(4))

	const jobs = 16
	list := make([]Job, jobs)
	for i := range list {
		list[i] = func(e *Encoder) error {
			// Later jobs sort first.
			e.Key = sortkey.Key(jobs - i)
			for j := range 2 {
				c, err := Record[stampCmd](e)
				if err != nil {
					return err
				}
				c.Frame = 1
				c.Seq = int32(i*10 + j)
			}
			return nil
		}
	}
	errJob := errors.New("skip")
	list = append(list, func(e *Encoder) error {
		if _, err := Record[stampCmd](e); err != nil {
			return err
		}
		return errJob
	})

	err := r.Encode(list...)
	if !errors.Is(err, errJob) {
		t.Fatalf("Encode() error = %v, want errJob", err)
	}
	commit(t, r)
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}

	if len(dev.log) != jobs*2 {
		t.Fatalf("executed %d commands, want %d", len(dev.log), jobs*2)
	}
	for k, e := range dev.log {
		job := jobs - 1 - k/2
		if want := int32(job*10 + k%2); e.seq != want {
			t.Fatalf("log[%d].seq = %d, want %d", k, e.seq, want)
		}
	}
	if dev.mismatch.Load() != 0 {
		t.Error("encoded commands executed in the wrong frame")
	}
}

func TestRenderer_EncodeDropped(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev, WithFrameBytes(256), WithWorkers(2))

	const jobs = 8
	list := make([]Job, jobs)
	for i := range list {
		list[i] = func(e *Encoder) error {
			e.Key = sortkey.Key(i)
			c, err := Record[blobCmd](e)
			if err != nil {
				return err
			}
			c.Data[0] = byte(i)
			return nil
		}
	}

	err := r.Encode(list...)
	if !errors.Is(err, arena.ErrExhausted) {
		t.Fatalf("Encode() error = %v, want arena.ErrExhausted", err)
	}
	commit(t, r)
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}

	s := r.Stats()
	if s.Dropped == 0 {
		t.Fatal("Stats().Dropped = 0, want the jobs that ran out of memory")
	}
	if got := s.Dropped + uint64(len(dev.log)); got != jobs {
		t.Errorf("dropped %d + executed %d = %d, want %d", s.Dropped, len(dev.log), got, jobs)
	}
}

func TestRenderer_MappedMemory(t *testing.T) {
	dev := &testDevice{}
	r := newRenderer(t, dev, WithMappedMemory())

	for i := range 4 {
		stamp(t, r, uint64(i), int32(i))
		commit(t, r)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if len(dev.log) != 4 {
		t.Errorf("executed %d commands, want 4", len(dev.log))
	}
}

func TestEvent_String(t *testing.T) {
	for ev, want := range map[Event]string{
		EventAcquire: "acquire",
		EventKick:    "kick",
		EventRelease: "release",
		Event(0):     "unknown",
	} {
		if ev.String() != want {
			t.Errorf("Event(%d).String() = %q, want %q", ev, ev.String(), want)
		}
	}
}

func BenchmarkRenderer_Frame(b *testing.B) {
	r, err := New(&testDevice{}, WithFrameBytes(1<<20), WithCapacity(1024))
	if err != nil {
		b.Fatal(err)
	}
	defer r.Shutdown()

	b.ReportAllocs()
	for b.Loop() {
		for j := range 256 {
			c, err := Submit[stampCmd](r, sortkey.Key(j*7919%256))
			if err != nil {
				b.Fatal(err)
			}
			c.Frame = r.Frame()
		}
		if err := r.Commit(); err != nil {
			b.Fatal(err)
		}
	}
}

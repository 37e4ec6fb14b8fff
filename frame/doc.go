// Package frame runs the double-buffered handoff between the producer (the
// game thread) and a render goroutine locked to its OS thread.
//
// The renderer owns two slots, each an arena plus a command buffer. While
// the producer records frame N into one slot, the render goroutine sorts,
// dispatches and presents frame N-1 from the other. Commit hands the
// recorded slot over without waiting; the producer only blocks when it
// comes back to a slot the render goroutine has not released yet.
//
// Basic usage:
//
//	dev, _ := backend.Open("")
//	r, err := frame.New(dev, frame.WithFrameBytes(8<<20))
//	if err != nil {
//	    return err
//	}
//	defer r.Shutdown()
//
//	for running {
//	    clear, _ := frame.Submit[gfx.Clear](r, gfx.SetupKey(gfx.StepClear))
//	    clear.Color = gputypes.ColorBlack
//	    // ... submit draws ...
//	    if err := r.Commit(); err != nil {
//	        return err
//	    }
//	}
//
// All producer methods must be called from a single goroutine.
package frame

// Package engine is a small real-time application engine for interactive
// 3D programs.
//
// # Overview
//
// The engine is built around a double-buffered command submission pipeline.
// Application code running on the main goroutine encodes render commands into
// a per-frame command buffer whose packets live in a lock-free stack
// allocator. At the end of the frame the buffer is handed to a dedicated
// render goroutine which sorts it by a 64-bit key and dispatches it to the
// graphics backend, while the application already fills the other buffer.
//
// # Architecture
//
// The module is organized into:
//   - arena: lock-free bump allocator with bulk reset
//   - sortkey: bit-packed draw ordering keys
//   - cmdbuf: command packets, chains and the sortable command buffer
//   - frame: producer/consumer frame handoff and the render goroutine
//   - backend, backend/headless, gfx: graphics device contract and commands
//   - fileio, mesh, texture, sound: asset collaborators
//   - input, hud, mathx, app: frame loop and supporting utilities
//
// # Quick Start
//
//	dev := headless.New(800, 600)
//	r, err := frame.New(dev, frame.WithFrameBytes(1<<20))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Shutdown()
//
//	clear, _ := frame.Submit[gfx.Clear](r, sortkey.Command(0))
//	clear.Color = gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}
//	r.Commit()
//
// # Logging
//
// The engine is silent by default. See [SetLogger].
package engine

// Version information
const (
	// Version is the current version of the engine
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)

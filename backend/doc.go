// Package backend defines the graphics device contract consumed by render
// command dispatch.
//
// The engine core never talks to a graphics API directly. Every render
// command carries a payload and, when dispatched on the render goroutine,
// calls into a [Device]: create a resource for a pre-reserved [Handle],
// bind it, draw, present. This boundary is the seam where an OpenGL,
// Vulkan, WebGPU or headless implementation plugs in.
//
// # Backend Registration
//
// Devices are registered via init() functions and selected at runtime,
// following the database/sql driver pattern:
//
//	import _ "github.com/gogpu/engine/backend/headless"
//
// # Backend Selection
//
// Use Default() to get the best available device, or Get() to request a
// specific one by name:
//
//	dev := backend.Default()
//	if err := dev.Init(); err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Threading
//
// Devices are used from the render goroutine only. Devices bound to an OS
// thread (OpenGL contexts) implement [ThreadBinder]; the frame package calls
// BindThread after locking the render goroutine to its thread.
package backend

// Package headless provides a Device that runs without a window or GPU.
//
// The device keeps resource tables, validates every call the way a real
// backend would (WGSL is compiled to SPIR-V with naga, draws are checked
// against the bound buffers) and clears into a CPU framebuffer. It is the
// fallback backend and the one tests and the demo run against.
//
// Destroyed handles are retired for the life of the device. A command that
// refers to one fails with ErrDestroyed.
//
// Importing the package registers it under backend.BackendHeadless:
//
//	import _ "github.com/gogpu/engine/backend/headless"
//
//	dev, err := backend.Open(backend.BackendHeadless)
package headless

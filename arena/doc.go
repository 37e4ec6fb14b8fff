// Package arena provides a lock-free stack allocator for per-frame transient data.
//
// An Arena owns one contiguous block of memory and hands out ranges of it by
// bumping an atomically updated top offset with compare-and-swap. Individual
// allocations are never freed; instead the whole arena, or everything
// allocated after a saved [Offset], is reclaimed at once with [Arena.ResetTo].
//
// # Concurrency Model
//
// Alloc and AllocBytes are safe for concurrent use: no two callers ever
// receive overlapping ranges. Init, ResetTo, Reset and Close are NOT safe
// to call while allocations are in flight; the owner must synchronize them
// externally (the frame package does so through its slot handoff).
//
// # Memory
//
// The backing block may be supplied by the caller ([Arena.Init]), allocated
// on the Go heap ([New]) or mapped off-heap ([NewMapped]). Offsets are
// 32-bit, so a single arena is limited to [MaxSize] bytes.
package arena

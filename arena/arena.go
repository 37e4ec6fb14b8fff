// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package arena

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrExhausted is returned when the arena has no room for an allocation.
	// It is recoverable: the caller decides whether to drop the request.
	ErrExhausted = errors.New("arena: exhausted")

	// ErrInvalidSize is returned for negative allocation or arena sizes.
	ErrInvalidSize = errors.New("arena: invalid size")

	// ErrNotInitialized is returned when allocating from an unbound arena.
	ErrNotInitialized = errors.New("arena: not initialized")
)

const (
	// Alignment is the alignment of every allocation, in bytes.
	Alignment = 8

	// MaxSize is the largest block an arena can manage.
	MaxSize = math.MaxUint32 &^ (Alignment - 1)
)

// Offset is a position inside an arena, relative to its base.
// Offset 0 is the base; Top returns the current allocation frontier.
type Offset uint32

// Stats describes arena usage.
type Stats struct {
	Size      int    // Bytes managed by the arena
	Used      int    // Bytes between base and top
	HighWater int    // Largest top observed since creation
	Allocs    uint64 // Successful allocations
	Failed    uint64 // Allocations rejected with ErrExhausted
	Resets    uint64 // Calls to ResetTo/Reset
}

// Arena is a contiguous memory region with a lock-free bump pointer.
//
// The zero value is an unbound arena; call Init before allocating.
type Arena struct {
	mem   []byte
	base  unsafe.Pointer
	limit uint32

	// top MUST be atomic: Alloc mutates it from any goroutine.
	top atomic.Uint32

	generation atomic.Uint64
	highWater  atomic.Uint32
	allocs     atomic.Uint64
	failed     atomic.Uint64
	resets     atomic.Uint64

	// mapped is the off-heap block owned by the arena, if any.
	mapped []byte
	unmap  func([]byte) error
}

// New creates an arena backed by a Go heap block of the given size.
func New(size int) (*Arena, error) {
	if size < 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	a := &Arena{}
	a.Init(make([]byte, size))
	return a, nil
}

// Init binds the arena to mem. The caller keeps ownership of mem's lifetime;
// the arena only hands out ranges of it. Leading bytes are skipped if mem
// does not start on an Alignment boundary, and the usable length is rounded
// down to a multiple of Alignment.
//
// Init is not safe to call concurrently with Alloc.
func (a *Arena) Init(mem []byte) {
	if pad := int(uintptr(unsafe.Pointer(unsafe.SliceData(mem))) & (Alignment - 1)); pad != 0 {
		if pad = Alignment - pad; pad > len(mem) {
			pad = len(mem)
		}
		mem = mem[pad:]
	}
	n := len(mem)
	if n > MaxSize {
		n = MaxSize
	}
	n &^= Alignment - 1

	a.mem = mem[:n:n]
	a.base = unsafe.Pointer(unsafe.SliceData(a.mem))
	a.limit = uint32(n) //nolint:gosec // n <= MaxSize
	a.top.Store(0)
	a.highWater.Store(0)
	a.generation.Add(1)
}

// Alloc reserves size bytes and returns the offset of the reserved range.
//
// Alloc is lock-free: it reads top, checks the remaining room and attempts a
// compare-and-swap to the new top, retrying when another goroutine raced
// ahead. If the arena cannot fit the request it returns ErrExhausted and top
// is left untouched. The size is rounded up to Alignment.
func (a *Arena) Alloc(size int) (Offset, error) {
	if size < 0 {
		return 0, ErrInvalidSize
	}
	if a.base == nil {
		return 0, ErrNotInitialized
	}
	if size > int(a.limit) {
		a.failed.Add(1)
		return 0, ErrExhausted
	}
	n := uint32(alignUp(size)) //nolint:gosec // size <= limit <= MaxSize

	for {
		top := a.top.Load()
		if a.limit-top < n {
			a.failed.Add(1)
			return 0, ErrExhausted
		}
		newTop := top + n
		if a.top.CompareAndSwap(top, newTop) {
			a.allocs.Add(1)
			a.raiseHighWater(newTop)
			return Offset(top), nil
		}
	}
}

// AllocBytes reserves size bytes and returns them as a slice.
// The contents are not zeroed: memory may hold data from a previous frame.
func (a *Arena) AllocBytes(size int) ([]byte, error) {
	off, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	return a.Bytes(off, size), nil
}

// Bytes returns n bytes starting at off.
func (a *Arena) Bytes(off Offset, n int) []byte {
	return a.mem[off : int(off)+n : int(off)+n]
}

// Pointer returns the address of off.
func (a *Arena) Pointer(off Offset) unsafe.Pointer {
	return unsafe.Add(a.base, off)
}

// OffsetOf converts an address inside the arena back to an offset.
// It reports false for addresses outside [base, limit).
func (a *Arena) OffsetOf(p unsafe.Pointer) (Offset, bool) {
	if a.base == nil || p == nil {
		return 0, false
	}
	d := uintptr(p) - uintptr(a.base)
	if uintptr(p) < uintptr(a.base) || d >= uintptr(a.limit) {
		return 0, false
	}
	return Offset(d), true
}

// Top returns the current allocation frontier. It is the offset to pass to
// ResetTo to roll back everything allocated afterwards.
func (a *Arena) Top() Offset {
	return Offset(a.top.Load())
}

// ResetTo moves top back to off, releasing everything allocated after it.
// Offsets beyond the current top are clamped to it.
//
// ResetTo is NOT thread-safe: no Alloc may be in flight.
func (a *Arena) ResetTo(off Offset) {
	if uint32(off) > a.top.Load() {
		off = Offset(a.top.Load())
	}
	a.top.Store(uint32(off))
	a.generation.Add(1)
	a.resets.Add(1)
}

// Reset releases every allocation. Equivalent to ResetTo(0).
func (a *Arena) Reset() {
	a.ResetTo(0)
}

// Cap returns the number of bytes the arena manages.
func (a *Arena) Cap() int {
	return int(a.limit)
}

// Available returns the number of bytes left before exhaustion.
func (a *Arena) Available() int {
	return int(a.limit - a.top.Load())
}

// Generation returns a counter incremented on every Init and reset.
// Holders of offsets can compare generations to detect stale data.
func (a *Arena) Generation() uint64 {
	return a.generation.Load()
}

// Stats returns a snapshot of the arena usage counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Size:      int(a.limit),
		Used:      int(a.top.Load()),
		HighWater: int(a.highWater.Load()),
		Allocs:    a.allocs.Load(),
		Failed:    a.failed.Load(),
		Resets:    a.resets.Load(),
	}
}

// Close releases an off-heap block obtained from NewMapped. For heap-backed
// and caller-supplied blocks it only unbinds the arena.
// Close is not safe to call concurrently with Alloc.
func (a *Arena) Close() error {
	var err error
	if a.unmap != nil && a.mapped != nil {
		err = a.unmap(a.mapped)
		a.mapped, a.unmap = nil, nil
	}
	a.mem = nil
	a.base = nil
	a.limit = 0
	a.top.Store(0)
	return err
}

func (a *Arena) raiseHighWater(top uint32) {
	for {
		hw := a.highWater.Load()
		if top <= hw || a.highWater.CompareAndSwap(hw, top) {
			return
		}
	}
}

func alignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

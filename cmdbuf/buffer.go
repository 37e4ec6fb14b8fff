// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdbuf

import (
	"sync/atomic"

	"github.com/gogpu/engine/arena"
	"github.com/gogpu/engine/sortkey"
)

// Buffer collects keyed packet chains for one frame.
//
// keys[i] and packets[i] always describe the same submission. The buffer is
// reused across frames: Dispatch empties it and resets its arena.
type Buffer struct {
	arena   *arena.Arena
	keys    []sortkey.Key
	packets []Packet
	count   int

	// Merge sort scratch, same capacity as keys/packets.
	keyScratch    []sortkey.Key
	packetScratch []Packet

	// dropped is read by diagnostics from other goroutines.
	dropped atomic.Uint64
}

// New creates a buffer with capacity slots whose packets live in a.
// The buffer owns a's lifecycle from then on: Dispatch and Reset reset it.
func New(a *arena.Arena, capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		arena:         a,
		keys:          make([]sortkey.Key, capacity),
		packets:       make([]Packet, capacity),
		keyScratch:    make([]sortkey.Key, capacity),
		packetScratch: make([]Packet, capacity),
	}
}

// Arena returns the arena backing the buffer's packets.
func (b *Buffer) Arena() *arena.Arena {
	return b.arena
}

// Len returns the number of populated slots.
func (b *Buffer) Len() int {
	return b.count
}

// Cap returns the number of slots.
func (b *Buffer) Cap() int {
	return len(b.keys)
}

// Key returns the key of slot i.
func (b *Buffer) Key(i int) sortkey.Key {
	return b.keys[i]
}

// Head returns the first packet of slot i.
func (b *Buffer) Head(i int) Packet {
	return b.packets[i]
}

// Dropped returns the number of submissions rejected since the buffer was
// created, for lack of slots or packet memory.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}

// Drop counts a submission rejected before it reached the buffer, such as
// a chain whose encoding ran out of packet memory.
func (b *Buffer) Drop() {
	b.dropped.Add(1)
}

// Submit registers an encoded packet chain under key.
// It returns ErrCapacity when every slot is taken.
func (b *Buffer) Submit(key sortkey.Key, p Packet) error {
	if b.count == len(b.keys) {
		b.dropped.Add(1)
		return ErrCapacity
	}
	b.keys[b.count] = key
	b.packets[b.count] = p
	b.count++
	return nil
}

// Add encodes a command of type C into a new slot tagged with key and
// returns its zeroed payload. It fails with ErrCapacity when the buffer is
// full and with ErrOutOfMemory when the arena is; in both cases the command
// is counted as dropped and nothing is written.
func Add[C any, P CommandPtr[C]](b *Buffer, key sortkey.Key) (*C, error) {
	c, _, err := AddExtra[C, P](b, key, 0)
	return c, err
}

// AddExtra is Add with extra trailing bytes for variable-size data such as
// vertex uploads. The returned slice aliases the packet.
func AddExtra[C any, P CommandPtr[C]](b *Buffer, key sortkey.Key, extra int) (*C, []byte, error) {
	if b.count == len(b.keys) {
		b.dropped.Add(1)
		return nil, nil, ErrCapacity
	}
	p, c, tail, err := Encode[C, P](b.arena, extra)
	if err != nil {
		b.dropped.Add(1)
		return nil, nil, err
	}
	b.keys[b.count] = key
	b.packets[b.count] = p
	b.count++
	return c, tail, nil
}

// Append encodes a command of type C and chains it right after onto, a
// payload previously returned by Add or Append on this buffer. The chain
// dispatches as one unit under the head's key; no slot is consumed.
func Append[C any, P CommandPtr[C], O any](b *Buffer, onto *O) (*C, error) {
	c, _, err := AppendExtra[C, P](b, onto, 0)
	return c, err
}

// AppendExtra is Append with extra trailing bytes.
func AppendExtra[C any, P CommandPtr[C], O any](b *Buffer, onto *O, extra int) (*C, []byte, error) {
	prev, ok := PacketOf(b.arena, onto)
	if !ok {
		return nil, nil, ErrForeignCommand
	}
	p, c, tail, err := Encode[C, P](b.arena, extra)
	if err != nil {
		b.dropped.Add(1)
		return nil, nil, err
	}
	Chain(b.arena, prev, p)
	return c, tail, nil
}

// Dispatch executes every slot in its current order, each chain in link
// order, then empties the buffer and resets its arena. Command failures
// recorded through ctx.Fail do not stop the dispatch; they are returned
// joined once all packets ran.
//
// Call Sort first to dispatch in key order.
func (b *Buffer) Dispatch(ctx *Context) error {
	ctx.reset()
	table := *kinds.Load()

	for i := range b.count {
		for p := b.packets[i]; p != NoPacket; p = Next(b.arena, p) {
			execute(b.arena, table, p, ctx)
		}
	}

	b.Reset()
	return ctx.Err()
}

// Reset discards every slot without executing it and resets the arena.
// Like arena.ResetTo it must not race with Encode on the same arena.
func (b *Buffer) Reset() {
	b.count = 0
	b.arena.Reset()
}

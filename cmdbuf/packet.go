// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdbuf

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/engine/arena"
)

// Command is implemented by pointers to command payload types.
// Execute runs on the render goroutine with the payload the producer wrote.
type Command interface {
	Execute(ctx *Context)
}

// CommandPtr ties a payload type to its Command implementation. It is the
// constraint of every generic encoding function; callers name only C and
// let P be inferred.
type CommandPtr[C any] interface {
	*C
	Command
}

// Packet is the arena offset of a packet header.
type Packet uint32

// NoPacket terminates a chain.
const NoPacket = Packet(^uint32(0))

// headerVersion is stored in every header and checked when a packet is
// recovered from a payload address.
const headerVersion = 1

// header precedes every payload.
type header struct {
	next    uint32 // Packet of the next chain member, NoPacket terminates
	kind    uint16 // Index into the kind table
	version uint16 // headerVersion
	payload uint32 // Payload size, aligned
	extra   uint32 // Trailing extra bytes
}

const headerSize = int(unsafe.Sizeof(header{}))

// kind describes a registered payload type.
type kind struct {
	name    string
	size    int
	execute func(payload unsafe.Pointer, ctx *Context)
}

var (
	kindsMu sync.Mutex
	kindIDs sync.Map // reflect.Type -> uint16
	// kinds is replaced copy-on-write so dispatch reads it without locking.
	kinds atomic.Pointer[[]kind]
)

func init() {
	kinds.Store(&[]kind{})
}

// kindOf returns the id of payload type C, registering it on first use.
// Registration panics if C cannot be stored in untyped arena memory.
func kindOf[C any, P CommandPtr[C]]() uint16 {
	t := reflect.TypeFor[C]()
	if id, ok := kindIDs.Load(t); ok {
		return id.(uint16)
	}

	kindsMu.Lock()
	defer kindsMu.Unlock()
	if id, ok := kindIDs.Load(t); ok {
		return id.(uint16)
	}

	if !pointerFree(t) {
		panic(fmt.Sprintf("cmdbuf: command payload %v must not contain pointers", t))
	}
	if t.Align() > arena.Alignment {
		panic(fmt.Sprintf("cmdbuf: command payload %v alignment %d exceeds %d", t, t.Align(), arena.Alignment))
	}

	old := *kinds.Load()
	if len(old) > int(^uint16(0)) {
		panic("cmdbuf: too many command types")
	}
	table := make([]kind, len(old), len(old)+1)
	copy(table, old)
	table = append(table, kind{
		name: t.String(),
		size: alignUp(int(t.Size())),
		execute: func(payload unsafe.Pointer, ctx *Context) {
			P((*C)(payload)).Execute(ctx)
		},
	})
	id := uint16(len(old)) //nolint:gosec // bounded above
	kinds.Store(&table)
	kindIDs.Store(t, id)
	return id
}

// pointerFree reports whether values of t hold no Go pointers, so they may
// live in memory the garbage collector does not scan.
func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func alignUp(n int) int {
	return (n + arena.Alignment - 1) &^ (arena.Alignment - 1)
}

func headerAt(a *arena.Arena, p Packet) *header {
	return (*header)(a.Pointer(arena.Offset(p)))
}

// Encode allocates a packet for command type C with extra trailing bytes.
// The header is initialized (no successor, kind C), the payload is zeroed
// and returned for the caller to fill in place, together with the extra
// bytes (also zeroed).
//
// Encode only touches the arena and is safe for concurrent use.
func Encode[C any, P CommandPtr[C]](a *arena.Arena, extra int) (Packet, *C, []byte, error) {
	if extra < 0 {
		return NoPacket, nil, nil, ErrInvalidExtra
	}
	id := kindOf[C, P]()
	payload := (*kinds.Load())[id].size

	off, err := a.Alloc(headerSize + payload + extra)
	if err != nil {
		return NoPacket, nil, nil, errOutOfMemory
	}

	h := (*header)(a.Pointer(off))
	*h = header{
		next:    uint32(NoPacket),
		kind:    id,
		version: headerVersion,
		payload: uint32(payload), //nolint:gosec // bounded by arena size
		extra:   uint32(extra),   //nolint:gosec // bounded by arena size
	}

	c := (*C)(a.Pointer(off + arena.Offset(headerSize)))
	*c = *new(C)

	var tail []byte
	if extra > 0 {
		tail = a.Bytes(off+arena.Offset(headerSize+payload), extra)
		clear(tail)
	}
	return Packet(off), c, tail, nil
}

// Chain links p into the chain right after after. Whatever followed after
// now follows p, so repeated Chain calls on the latest packet build a chain
// in call order.
func Chain(a *arena.Arena, after, p Packet) {
	ph := headerAt(a, p)
	ah := headerAt(a, after)
	ph.next = ah.next
	ah.next = uint32(p)
}

// Next returns the successor of p, or NoPacket.
func Next(a *arena.Arena, p Packet) Packet {
	return Packet(headerAt(a, p).next)
}

// Extra returns the extra bytes of p.
func Extra(a *arena.Arena, p Packet) []byte {
	h := headerAt(a, p)
	if h.extra == 0 {
		return nil
	}
	return a.Bytes(arena.Offset(p)+arena.Offset(headerSize)+arena.Offset(h.payload), int(h.extra))
}

// KindName returns the payload type name of p, for diagnostics.
func KindName(a *arena.Arena, p Packet) string {
	return (*kinds.Load())[headerAt(a, p).kind].name
}

// PacketOf recovers the packet holding the payload cmd, which must have been
// returned by Encode, Add or Append on the same arena.
func PacketOf[C any](a *arena.Arena, cmd *C) (Packet, bool) {
	off, ok := a.OffsetOf(unsafe.Pointer(cmd))
	if !ok || int(off) < headerSize {
		return NoPacket, false
	}
	p := Packet(int(off) - headerSize)
	if headerAt(a, p).version != headerVersion {
		return NoPacket, false
	}
	return p, true
}

// execute dispatches a single packet.
func execute(a *arena.Arena, table []kind, p Packet, ctx *Context) {
	h := headerAt(a, p)
	ctx.packet = p
	ctx.extra = nil
	if h.extra > 0 {
		ctx.extra = a.Bytes(arena.Offset(p)+arena.Offset(headerSize)+arena.Offset(h.payload), int(h.extra))
	}
	table[h.kind].execute(a.Pointer(arena.Offset(p)+arena.Offset(headerSize)), ctx)
	ctx.Executed++
}

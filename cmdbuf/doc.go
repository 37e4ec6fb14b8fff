// Package cmdbuf provides command packets and the sortable per-frame command
// buffer.
//
// # Packets
//
// A packet is a record inside an [arena.Arena]:
//
//	+--------+------------------+-------------+
//	| header | payload (C)      | extra bytes |
//	+--------+------------------+-------------+
//
// The header links the packet into a chain and names the command type that
// wrote the payload. A command type C is any pointer-free struct whose
// pointer implements [Command]; the association between the payload type and
// its Execute method is fixed at compile time by the type parameters of
// [Add], [Append] and [Encode], so a payload is always interpreted with the
// type that wrote it.
//
// # Buffer
//
// A [Buffer] holds a fixed number of slots, each a sort key plus the head of
// a packet chain. Sort orders slots by key (stable); Dispatch executes each
// chain in link order and then resets the backing arena.
//
//	buf := cmdbuf.New(a, 1024)
//	draw, err := cmdbuf.Add[gfx.Draw](buf, key)
//	if err != nil {
//	    // buffer full: the command is dropped and counted
//	}
//	draw.Count = 36
//	restore, _ := cmdbuf.Append[gfx.BindTexture](buf, draw)
//
//	buf.Sort()
//	err = buf.Dispatch(&cmdbuf.Context{Device: dev})
//
// # Concurrency
//
// Encode and Chain only touch the arena and may be called from several
// goroutines at once. Buffer slot bookkeeping (Add, Submit, Sort, Dispatch)
// is single-threaded: concurrent producers must serialize their Submit calls.
package cmdbuf

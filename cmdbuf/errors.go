package cmdbuf

import (
	"errors"
	"fmt"

	"github.com/gogpu/engine/arena"
)

var (
	// ErrOutOfMemory is returned when the backing arena cannot hold a packet.
	// The returned error also matches arena.ErrExhausted.
	ErrOutOfMemory = errors.New("cmdbuf: out of packet memory")

	// ErrCapacity is returned when every slot of a buffer is taken.
	ErrCapacity = errors.New("cmdbuf: buffer capacity exceeded")

	// ErrForeignCommand is returned by Append when the command it extends
	// was not allocated from the buffer's arena.
	ErrForeignCommand = errors.New("cmdbuf: command does not belong to this buffer")

	// ErrInvalidExtra is returned for a negative extra byte count.
	ErrInvalidExtra = errors.New("cmdbuf: invalid extra size")
)

// errOutOfMemory is built once so the failure path does not allocate.
var errOutOfMemory = fmt.Errorf("%w: %w", ErrOutOfMemory, arena.ErrExhausted)

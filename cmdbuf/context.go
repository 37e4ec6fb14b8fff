package cmdbuf

import (
	"errors"

	"github.com/gogpu/engine/backend"
)

// Context is passed to every Execute call during a dispatch.
type Context struct {
	// Device is the graphics backend commands call into.
	Device backend.Device

	// Frame is the number of the frame being dispatched.
	Frame uint64

	// Executed counts the packets executed so far.
	Executed int

	packet Packet
	extra  []byte
	errs   []error
}

// Extra returns the trailing bytes of the packet being executed.
// The slice is only valid for the duration of Execute.
func (c *Context) Extra() []byte {
	return c.extra
}

// Packet returns the packet being executed.
func (c *Context) Packet() Packet {
	return c.packet
}

// Fail records a command failure. Dispatch continues with the next packet
// and returns every recorded failure once the buffer is drained.
func (c *Context) Fail(err error) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

// Err returns the failures recorded so far, joined.
func (c *Context) Err() error {
	return errors.Join(c.errs...)
}

// Failures returns the number of failures recorded so far.
func (c *Context) Failures() int {
	return len(c.errs)
}

func (c *Context) reset() {
	c.Executed = 0
	c.packet = NoPacket
	c.extra = nil
	c.errs = c.errs[:0]
}

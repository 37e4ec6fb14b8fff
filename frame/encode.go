package frame

import (
	"errors"
	"fmt"

	"github.com/gogpu/engine/arena"
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/internal/parallel"
	"github.com/gogpu/engine/sortkey"
)

// Job records one keyed packet chain. Jobs passed to Encode run
// concurrently and must only touch their own Encoder.
type Job func(e *Encoder) error

// Encoder records a packet chain for one Job.
type Encoder struct {
	// Key is the sort key the chain is submitted under.
	Key sortkey.Key

	arena      *arena.Arena
	head, tail cmdbuf.Packet
	failed     bool
}

// Record appends a command of type C to the encoder's chain.
func Record[C any, P cmdbuf.CommandPtr[C]](e *Encoder) (*C, error) {
	c, _, err := RecordExtra[C, P](e, 0)
	return c, err
}

// RecordExtra is Record with extra trailing bytes.
func RecordExtra[C any, P cmdbuf.CommandPtr[C]](e *Encoder, extra int) (*C, []byte, error) {
	p, c, tail, err := cmdbuf.Encode[C, P](e.arena, extra)
	if err != nil {
		return nil, nil, err
	}
	if e.head == cmdbuf.NoPacket {
		e.head = p
	} else {
		cmdbuf.Chain(e.arena, e.tail, p)
	}
	e.tail = p
	return c, tail, nil
}

// Encode runs jobs on the renderer's worker pool. Packets are encoded
// straight into the frame's arena, which is safe across goroutines; the
// chains are then submitted from the calling goroutine in job order.
// A job that records nothing submits nothing; a job that fails submits
// nothing and is counted as a dropped submission. All errors are returned
// joined.
func (r *Renderer) Encode(jobs ...Job) error {
	b, err := r.Buffer()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	if r.pool == nil {
		r.pool = parallel.New(r.opts.workers)
	}

	encs := make([]Encoder, len(jobs))
	runErr := r.pool.Run(len(jobs), func(i int) error {
		e := &encs[i]
		e.arena = b.Arena()
		e.head, e.tail = cmdbuf.NoPacket, cmdbuf.NoPacket
		if err := jobs[i](e); err != nil {
			e.failed = true
			return fmt.Errorf("frame: encode job %d: %w", i, err)
		}
		return nil
	})

	var submitErr error
	for i := range encs {
		e := &encs[i]
		if e.failed {
			b.Drop()
			continue
		}
		if e.head == cmdbuf.NoPacket {
			continue
		}
		if err := b.Submit(e.Key, e.head); err != nil && submitErr == nil {
			submitErr = fmt.Errorf("frame: encode job %d: %w", i, err)
		}
	}
	return errors.Join(runErr, submitErr)
}

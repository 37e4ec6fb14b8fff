package frame

import (
	"github.com/gogpu/engine/cmdbuf"
	"github.com/gogpu/engine/sortkey"
)

// Submit encodes a command of type C into the frame being recorded and
// returns its zeroed payload. See cmdbuf.Add for the failure modes; a
// failed submission is dropped and counted.
func Submit[C any, P cmdbuf.CommandPtr[C]](r *Renderer, key sortkey.Key) (*C, error) {
	b, err := r.Buffer()
	if err != nil {
		return nil, err
	}
	return cmdbuf.Add[C, P](b, key)
}

// SubmitExtra is Submit with extra trailing bytes.
func SubmitExtra[C any, P cmdbuf.CommandPtr[C]](r *Renderer, key sortkey.Key, extra int) (*C, []byte, error) {
	b, err := r.Buffer()
	if err != nil {
		return nil, nil, err
	}
	return cmdbuf.AddExtra[C, P](b, key, extra)
}

// SubmitChained encodes a command of type C that dispatches right after
// after, a payload submitted earlier in the same frame.
func SubmitChained[C any, P cmdbuf.CommandPtr[C], O any](r *Renderer, after *O) (*C, error) {
	b, err := r.Buffer()
	if err != nil {
		return nil, err
	}
	return cmdbuf.Append[C, P](b, after)
}

// SubmitChainedExtra is SubmitChained with extra trailing bytes.
func SubmitChainedExtra[C any, P cmdbuf.CommandPtr[C], O any](r *Renderer, after *O, extra int) (*C, []byte, error) {
	b, err := r.Buffer()
	if err != nil {
		return nil, nil, err
	}
	return cmdbuf.AppendExtra[C, P](b, after, extra)
}

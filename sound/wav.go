// Package sound reads PCM audio from RIFF/WAVE streams.
//
// A Stream yields whole frames (one sample per channel) so callers can feed
// an audio device in fixed-size chunks:
//
//	s, err := sound.Open(f)
//	buf := make([]byte, 512*s.Format().FrameSize())
//	n, err := s.ReadFrames(buf)
package sound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotWAVE is returned for streams without a RIFF/WAVE header.
	ErrNotWAVE = errors.New("sound: not a RIFF/WAVE stream")

	// ErrUnsupported is returned for encodings other than integer PCM and
	// IEEE float.
	ErrUnsupported = errors.New("sound: unsupported encoding")

	// ErrNoData is returned when the stream has no data chunk.
	ErrNoData = errors.New("sound: missing data chunk")
)

// Encoding is the sample encoding of a stream.
type Encoding uint16

// WAVE format tags.
const (
	EncodingPCM        Encoding = 1
	EncodingFloat      Encoding = 3
	encodingExtensible Encoding = 0xfffe
)

func (e Encoding) String() string {
	switch e {
	case EncodingPCM:
		return "pcm"
	case EncodingFloat:
		return "float"
	default:
		return fmt.Sprintf("Encoding(%#x)", uint16(e))
	}
}

// Format describes the samples of a stream.
type Format struct {
	Encoding      Encoding
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// FrameSize returns the byte size of one frame.
func (f Format) FrameSize() int {
	return f.Channels * f.BitsPerSample / 8
}

// Duration returns the play time of n frames.
func (f Format) Duration(frames int64) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) validate() error {
	switch {
	case f.Channels < 1 || f.Channels > 8:
		return fmt.Errorf("%w: %d channels", ErrUnsupported, f.Channels)
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrUnsupported, f.SampleRate)
	}
	switch f.Encoding {
	case EncodingPCM:
		switch f.BitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case EncodingFloat:
		if f.BitsPerSample == 32 || f.BitsPerSample == 64 {
			return nil
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, f.Encoding)
	}
	return fmt.Errorf("%w: %v with %d bits", ErrUnsupported, f.Encoding, f.BitsPerSample)
}

// Stream reads frames from the data chunk of a WAVE stream.
type Stream struct {
	r      io.Reader
	format Format
	frames int64 // total frames in the data chunk
	left   int64 // data bytes not yet read
}

// Open parses the RIFF/WAVE header of r and positions it at the first
// frame. Chunks other than "fmt " and "data" are skipped.
func Open(r io.Reader) (*Stream, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWAVE, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAVE
	}

	var (
		format  Format
		haveFmt bool
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("sound: read chunk: %w", err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			f, err := readFormat(r, size)
			if err != nil {
				return nil, err
			}
			format, haveFmt = f, true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrNotWAVE)
			}
			fs := int64(format.FrameSize())
			return &Stream{r: r, format: format, frames: size / fs, left: size - size%fs}, nil
		default:
			if err := skip(r, size+size&1); err != nil {
				return nil, fmt.Errorf("sound: skip %q chunk: %w", id, err)
			}
		}
	}
}

func readFormat(r io.Reader, size int64) (Format, error) {
	if size < 16 {
		return Format{}, fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAVE, size)
	}
	buf := make([]byte, size+size&1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Format{}, fmt.Errorf("sound: read fmt: %w", err)
	}
	le := binary.LittleEndian
	f := Format{
		Encoding:      Encoding(le.Uint16(buf[0:2])),
		Channels:      int(le.Uint16(buf[2:4])),
		SampleRate:    int(le.Uint32(buf[4:8])),
		BitsPerSample: int(le.Uint16(buf[14:16])),
	}
	// WAVE_FORMAT_EXTENSIBLE carries the real tag in its sub-format GUID.
	if f.Encoding == encodingExtensible && size >= 40 {
		f.Encoding = Encoding(le.Uint16(buf[24:26]))
	}
	if err := f.validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

func skip(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// Format returns the sample format.
func (s *Stream) Format() Format {
	return s.format
}

// Frames returns the number of frames in the stream.
func (s *Stream) Frames() int64 {
	return s.frames
}

// Duration returns the play time of the whole stream.
func (s *Stream) Duration() time.Duration {
	return s.format.Duration(s.frames)
}

// Remaining returns the number of frames not yet read.
func (s *Stream) Remaining() int64 {
	return s.left / int64(s.format.FrameSize())
}

// ReadFrames reads up to len(dst)/FrameSize whole frames into dst and
// returns the number of frames read. It returns io.EOF once the data chunk
// is exhausted.
func (s *Stream) ReadFrames(dst []byte) (int, error) {
	fs := s.format.FrameSize()
	if s.left == 0 {
		return 0, io.EOF
	}
	want := min(int64(len(dst)/fs*fs), s.left)
	if want == 0 {
		return 0, nil
	}
	n, err := io.ReadFull(s.r, dst[:want])
	s.left -= int64(n)
	frames := n / fs
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		// Truncated file: keep the whole frames, drop the rest.
		s.left = 0
		return frames, fmt.Errorf("sound: truncated data chunk: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return frames, fmt.Errorf("sound: read: %w", err)
	}
	return frames, nil
}

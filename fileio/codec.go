package fileio

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is a compression format.
type Codec uint8

// Supported codecs.
const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// Suffix returns the file suffix of the codec, or "" for CodecNone.
func (c Codec) Suffix() string {
	switch c {
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// CodecOf returns the codec implied by a file name suffix.
func CodecOf(name string) Codec {
	switch strings.ToLower(path.Ext(name)) {
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	default:
		return CodecNone
	}
}

// Detect returns the codec of a file from its name, falling back to the
// magic number at the start of its content.
func Detect(name string, head []byte) Codec {
	if c := CodecOf(name); c != CodecNone {
		return c
	}
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(head, lz4Magic):
		return CodecLZ4
	default:
		return CodecNone
	}
}

// Ext returns the extension of name once compression suffixes are removed:
// "mesh.obj.zst" has extension ".obj".
func Ext(name string) string {
	for CodecOf(name) != CodecNone {
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	return strings.ToLower(path.Ext(name))
}

// zstd decoders are pooled for DecodeAll.
var zstdDecoders sync.Pool

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoders.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(MaxFileSize))
}

// Decompress decodes a whole in-memory file.
func Decompress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("fileio: zstd decoder: %w", err)
		}
		defer zstdDecoders.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("fileio: zstd: %w", err)
		}
		return out, nil
	case CodecLZ4:
		out, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(data)), MaxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("fileio: lz4: %w", err)
		}
		if len(out) > MaxFileSize {
			return nil, ErrTooLarge
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

// NewReader wraps r with a streaming decoder for codec. Closing the
// returned reader releases the decoder, not r.
func NewReader(r io.Reader, codec Codec) (io.ReadCloser, error) {
	switch codec {
	case CodecNone:
		return io.NopCloser(r), nil
	case CodecZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("fileio: zstd: %w", err)
		}
		return dec.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

// NewWriter wraps w with a streaming encoder for codec. The returned writer
// must be closed to flush the stream; it does not close w.
func NewWriter(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case CodecNone:
		return nopWriteCloser{w}, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("fileio: zstd: %w", err)
		}
		return enc, nil
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

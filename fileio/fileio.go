package fileio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/gogpu/engine"
)

// MaxFileSize bounds the decoded size of a file read with ReadWholeFile.
const MaxFileSize = 256 << 20

var (
	// ErrTooLarge is returned when a file decodes to more than MaxFileSize bytes.
	ErrTooLarge = errors.New("fileio: file too large")

	// ErrUnknownCodec is returned for an unsupported Codec value.
	ErrUnknownCodec = errors.New("fileio: unknown codec")
)

// ReadWholeFile returns the decoded content of the file at path.
func ReadWholeFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fileio: %w", err)
	}
	defer f.Close()
	return readAll(f, path)
}

// ReadFS is ReadWholeFile for a file system, such as an embed.FS.
func ReadFS(fsys fs.FS, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fileio: %w", err)
	}
	defer f.Close()
	return readAll(f, name)
}

func readAll(r io.Reader, name string) ([]byte, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)
	codec := Detect(name, head)

	dec, err := NewReader(br, codec)
	if err != nil {
		return nil, fmt.Errorf("fileio: %s: %w", name, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(io.LimitReader(dec, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("fileio: read %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("fileio: %s: %w", name, ErrTooLarge)
	}

	engine.Logger().Debug("asset read", "name", name, "codec", codec, "bytes", len(data))
	return data, nil
}

// Open opens the file at path for streaming reads, decoding it on the fly.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fileio: %w", err)
	}
	br := bufio.NewReader(f)
	head, _ := br.Peek(4)
	dec, err := NewReader(br, Detect(path, head))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fileio: %s: %w", path, err)
	}
	return &fileReader{ReadCloser: dec, file: f}, nil
}

type fileReader struct {
	io.ReadCloser
	file *os.File
}

func (r *fileReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.file.Close())
}

// WriteFile writes data to path, compressed according to its suffix.
func WriteFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fileio: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("fileio: %w", cerr)
		}
	}()

	w, err := NewWriter(f, CodecOf(path))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("fileio: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("fileio: write %s: %w", path, err)
	}
	return nil
}

package sound

import (
	"errors"
	"io"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/fileio"
)

// File is a Stream backed by an open file.
type File struct {
	*Stream
	c io.Closer
}

// OpenFile opens a WAVE file, compressed or not, for streaming.
func OpenFile(path string) (*File, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := Open(rc)
	if err != nil {
		return nil, errors.Join(err, rc.Close())
	}
	f := s.Format()
	engine.Logger().Debug("sound opened", "path", path, "encoding", f.Encoding,
		"channels", f.Channels, "rate", f.SampleRate, "duration", s.Duration())
	return &File{Stream: s, c: rc}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.c.Close()
}

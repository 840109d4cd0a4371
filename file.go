package bgzf

import (
	"bytes"
	"io"
	"os"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"
)

type fileReader struct {
	Reader
	f *os.File
}

func (r *fileReader) Close() error {
	return multierr.Append(r.Reader.Close(), r.f.Close())
}

// OpenFile opens the named BGZF file for reading.  Closing the Reader closes the file.
func OpenFile(name string, opts ...ROption) (Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	r, err := NewReader(f, opts...)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return &fileReader{Reader: r, f: f}, nil
}

type fileWriter struct {
	Writer
	f *os.File
}

func (w *fileWriter) Close() error {
	return multierr.Append(w.Writer.Close(), w.f.Close())
}

// CreateFile creates or truncates the named file and returns a Writer into it.
// Closing the Writer finishes the stream and closes the file.
func CreateFile(name string, level Level, opts ...WOption) (Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create")
	}
	w, err := NewWriter(f, level, opts...)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return &fileWriter{Writer: w, f: f}, nil
}

// HasEndMarker reports whether the size bytes long r ends with the BGZF end marker.
// A missing marker usually means the stream was truncated.
func HasEndMarker(r io.ReaderAt, size int64) (bool, error) {
	if size < int64(len(endMarker)) {
		return false, nil
	}

	buf := make([]byte, len(endMarker))
	if _, err := r.ReadAt(buf, size-int64(len(endMarker))); err != nil && err != io.EOF {
		return false, errors.Wrap(err, "read tail")
	}
	return bytes.Equal(buf, endMarker), nil
}

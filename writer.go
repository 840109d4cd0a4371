package bgzf

import (
	"io"
	"runtime"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SaveTheRbtz/bgzf-go/env"
)

// writerEnvImpl is the environment implementation for the underlying io.Writer.
type writerEnvImpl struct {
	w io.Writer
}

func (w *writerEnvImpl) WriteBlock(p []byte) (n int, err error) {
	return w.w.Write(p)
}

func (w *writerEnvImpl) WriteEndMarker(p []byte) (n int, err error) {
	return w.w.Write(p)
}

func (w *writerEnvImpl) Flush() error {
	if f, ok := w.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

var (
	_ io.Writer = (*writerImpl)(nil)
	_ io.Closer = (*writerImpl)(nil)
)

type writerImpl struct {
	w   io.Writer
	env env.WEnvironment

	comp       *Compressor
	pending    []byte
	compressed []byte
	entry      env.BlockEntry
	err        error

	o writerOptions
}

type Writer interface {
	// Write buffers src and emits a block every time block size bytes are accumulated.
	// It never writes partially: either all of src is accepted or an error is returned.
	Write(src []byte) (int, error)

	// Flush emits buffered data as blocks, without the end marker, and flushes
	// the underlying writer if it has a Flush method.
	Flush() error

	// Finish flushes buffered data, writes the end marker and releases the underlying writer,
	// returning it to the caller.  Any later call fails with ErrClosed.
	Finish() (io.Writer, error)

	// Close implements io.Closer interface.  It is Finish without the returned writer.
	//
	// Caller is still responsible to Close the underlying writer.
	Close() error
}

// NewWriter wraps the passed io.Writer into a BGZF stream compressed with the given level.
//
// Streams that are never finished get their end marker written when the Writer is garbage
// collected.  Errors on that path are only logged, so callers should always Close explicitly.
func NewWriter(w io.Writer, level Level, opts ...WOption) (Writer, error) {
	sw := writerImpl{
		w: w,
		entry: env.BlockEntry{
			ID: -1,
		},
	}

	sw.o.setDefault()
	for _, o := range opts {
		err := o(&sw.o)
		if err != nil {
			return nil, err
		}
	}

	var err error
	sw.comp, err = NewCompressor(level)
	if err != nil {
		return nil, err
	}

	sw.env = sw.o.env
	if sw.env == nil {
		sw.env = &writerEnvImpl{
			w: w,
		}
	}
	sw.pending = make([]byte, 0, 2*sw.o.blockSize)
	sw.compressed = make([]byte, 0, MaxBlockSize)

	runtime.SetFinalizer(&sw, (*writerImpl).teardown)
	return &sw, nil
}

func (s *writerImpl) Write(src []byte) (int, error) {
	if s.env == nil {
		return 0, ErrClosed
	}
	if s.err != nil {
		return 0, s.err
	}

	s.pending = append(s.pending, src...)
	off := 0
	for len(s.pending)-off >= s.o.blockSize {
		if err := s.writeBlock(s.pending[off : off+s.o.blockSize]); err != nil {
			s.err = err
			return 0, err
		}
		off += s.o.blockSize
	}
	n := copy(s.pending, s.pending[off:])
	s.pending = s.pending[:n]

	return len(src), nil
}

func (s *writerImpl) Flush() error {
	if s.env == nil {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	if err := s.flushBlocks(); err != nil {
		s.err = err
		return err
	}
	return s.flushEnv()
}

func (s *writerImpl) Finish() (w io.Writer, err error) {
	if s.env == nil {
		return nil, ErrClosed
	}
	runtime.SetFinalizer(s, nil)
	defer s.release()

	if s.err != nil {
		return s.w, s.err
	}
	if err = s.flushBlocks(); err != nil {
		return s.w, err
	}

	err = multierr.Append(err, s.writeEndMarker())
	err = multierr.Append(err, s.flushEnv())

	s.o.logger.Debug("finished stream",
		zap.Int64("blocks", s.entry.ID+1),
		zap.Uint64("decompressed", s.entry.DecompOffset+uint64(s.entry.DecompSize)),
		zap.Error(err))
	return s.w, err
}

func (s *writerImpl) Close() error {
	_, err := s.Finish()
	return err
}

// flushBlocks emits everything that is pending, in chunks of at most BlockSize.
func (s *writerImpl) flushBlocks() error {
	off := 0
	for off < len(s.pending) {
		end := off + BlockSize
		if end > len(s.pending) {
			end = len(s.pending)
		}
		if err := s.writeBlock(s.pending[off:end]); err != nil {
			return err
		}
		off = end
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *writerImpl) writeBlock(src []byte) (err error) {
	s.compressed, err = s.comp.Compress(src, s.compressed[:0])
	if err != nil {
		return errors.Wrap(err, "compress block")
	}

	footer := footerValues(s.compressed)
	entry := s.entry.Advance(uint32(len(s.compressed)), footer.Size, footer.Checksum)

	n, err := s.env.WriteBlock(s.compressed)
	if err != nil {
		return errors.Wrap(err, "write block")
	}
	if n != len(s.compressed) {
		return errors.Errorf("partial write: %d out of %d", n, len(s.compressed))
	}

	s.entry = entry
	s.o.logger.Debug("appending block", zap.Object("block", &s.entry))
	return nil
}

func (s *writerImpl) writeEndMarker() error {
	n, err := s.env.WriteEndMarker(endMarker)
	if err != nil {
		return errors.Wrap(err, "write end marker")
	}
	if n != len(endMarker) {
		return errors.Errorf("partial write: %d out of %d", n, len(endMarker))
	}
	return nil
}

func (s *writerImpl) flushEnv() error {
	if err := s.env.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return nil
}

// release drops the sink; from here on the writer only returns ErrClosed.
func (s *writerImpl) release() {
	s.env = nil
	s.w = nil
	s.pending = nil
	s.compressed = nil
}

// teardown finishes a stream whose owner forgot to.  There is no caller to report to, so errors are logged.
func (s *writerImpl) teardown() {
	if s.env == nil {
		return
	}
	if _, err := s.Finish(); err != nil {
		s.o.logger.Warn("failed to finish abandoned writer", zap.Error(err))
	}
}

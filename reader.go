package bgzf

import (
	"io"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/SaveTheRbtz/bgzf-go/env"
)

// Reader decompresses a BGZF stream block by block.
type Reader interface {
	// Read fills p with decompressed data.  It only returns less than len(p)
	// when the underlying reader is exhausted or fails.
	Read(p []byte) (int, error)

	// Close implements io.Closer interface.  It releases the decompressor and buffers.
	//
	// Caller is still responsible to Close the underlying reader.
	Close() error
}

var _ io.ReadCloser = (*readerImpl)(nil)

type readerImpl struct {
	r   io.Reader
	dec *Decompressor

	// decompressed holds the current block's data, off is the first byte not yet returned.
	decompressed []byte
	off          int
	compressed   []byte
	header       [headerSize]byte

	entry  env.BlockEntry
	err    error
	closed bool

	o readerOptions
}

// NewReader wraps the passed io.Reader that produces a BGZF stream.
// Concatenated streams are read as one; end markers in between are skipped over.
func NewReader(r io.Reader, opts ...ROption) (Reader, error) {
	sr := readerImpl{
		r:   r,
		dec: NewDecompressor(),
		entry: env.BlockEntry{
			ID: -1,
		},
	}

	sr.o.setDefault()
	for _, o := range opts {
		err := o(&sr.o)
		if err != nil {
			return nil, err
		}
	}

	sr.decompressed = make([]byte, 0, MaxBlockSize)
	sr.compressed = make([]byte, 0, MaxBlockSize)
	return &sr, nil
}

func (s *readerImpl) Read(dst []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	var copied int
	for {
		n := copy(dst[copied:], s.decompressed[s.off:])
		s.off += n
		copied += n
		if copied == len(dst) {
			return copied, nil
		}

		if s.err != nil {
			// Errors are sticky, so they are reported by the next call.
			if copied > 0 {
				return copied, nil
			}
			return 0, s.err
		}
		s.err = s.readBlock()
	}
}

// readBlock replaces the decompressed buffer with the contents of the next block.
// A source ending before a full header is the end of the stream.
func (s *readerImpl) readBlock() error {
	s.off = 0
	s.decompressed = s.decompressed[:0]

	if _, err := io.ReadFull(s.r, s.header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			s.o.logger.Debug("end of stream", zap.Int64("blocks", s.entry.ID+1))
			return io.EOF
		}
		return errors.Wrap(err, "read header")
	}

	var header blockHeader
	if err := header.UnmarshalBinary(s.header[:]); err != nil {
		return err
	}

	s.compressed = resize(s.compressed, header.BlockSize()-headerSize)
	if _, err := io.ReadFull(s.r, s.compressed); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrapf(ErrTruncatedBlock, "expected %d bytes after header", len(s.compressed))
		}
		return errors.Wrap(err, "read block")
	}

	footer := footerValues(s.compressed)
	if err := footer.validate(); err != nil {
		return err
	}
	s.entry = s.entry.Advance(uint32(header.BlockSize()), footer.Size, footer.Checksum)

	decompressed := resize(s.decompressed, int(footer.Size))
	if err := s.dec.decompress(stripFooter(s.compressed), decompressed, footer); err != nil {
		return errors.Wrapf(err, "block %d at %d", s.entry.ID, s.entry.CompOffset)
	}
	s.decompressed = decompressed

	s.o.logger.Debug("read block", zap.Object("block", &s.entry))
	return nil
}

func (s *readerImpl) Close() (err error) {
	if s.closed {
		return nil
	}
	s.closed = true
	err = s.dec.Close()

	s.decompressed = nil
	s.compressed = nil
	return
}

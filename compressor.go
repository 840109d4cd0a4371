package bgzf

import (
	"hash/crc32"

	"github.com/go-faster/errors"
	"github.com/klauspost/compress/flate"
)

// appendWriter lets the deflate engine write straight into a caller owned slice.
type appendWriter struct {
	buf []byte
}

func (w *appendWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Compressor turns one chunk of data into one self-contained framed block.
// The deflate engine is reused between calls.
type Compressor struct {
	level Level
	fw    *flate.Writer
	out   appendWriter
}

// NewCompressor creates a Compressor for the given level.
func NewCompressor(level Level) (*Compressor, error) {
	if _, err := NewLevel(int(level)); err != nil {
		return nil, err
	}
	fw, err := flate.NewWriter(nil, int(level))
	if err != nil {
		return nil, errors.Wrap(err, "create deflate writer")
	}
	return &Compressor{level: level, fw: fw}, nil
}

// Level returns the compression level of the compressor.
func (c *Compressor) Level() Level {
	return c.level
}

// Compress frames src as a single block into dst, reusing dst's storage, and returns it.
//
// src should not exceed BlockSize bytes; larger inputs only fail if the result
// does not fit into MaxBlockSize.
func (c *Compressor) Compress(src, dst []byte) ([]byte, error) {
	need := headerSize + len(src) + extraAmount(len(src)) + footerSize
	if cap(dst) < need {
		dst = make([]byte, 0, need)
	}

	// The header depends on the compressed size, so it is filled in after deflate.
	c.out.buf = dst[:headerSize]
	c.fw.Reset(&c.out)
	_, err := c.fw.Write(src)
	if err == nil {
		err = c.fw.Close()
	}
	dst, c.out.buf = c.out.buf, nil
	if err != nil {
		return dst[:0], errors.Wrap(err, "deflate")
	}

	compressed := len(dst) - headerSize
	if total := headerSize + compressed + footerSize; total > MaxBlockSize {
		return dst[:0], &BlockSizeExceededError{Size: total, Limit: MaxBlockSize}
	}

	header := newBlockHeader(c.level, compressed)
	header.marshalBinaryInline(dst[:headerSize])

	footer := blockFooter{
		Checksum: crc32.ChecksumIEEE(src),
		Size:     uint32(len(src)),
	}
	var tail [footerSize]byte
	footer.marshalBinaryInline(tail[:])
	return append(dst, tail[:]...), nil
}

// AppendEndMarker appends the empty end-of-stream block to dst.
func AppendEndMarker(dst []byte) []byte {
	return append(dst, endMarker...)
}

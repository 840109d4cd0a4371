package bgzf

import (
	"bytes"
	"hash/crc32"
	"io"

	"github.com/go-faster/errors"
	"github.com/klauspost/compress/flate"
)

// Decompressor inflates the payload of a single block and verifies it against the footer.
type Decompressor struct {
	src bytes.Reader
	fr  io.ReadCloser
}

// NewDecompressor creates a Decompressor.  The inflate engine is allocated on first use.
func NewDecompressor() *Decompressor {
	return &Decompressor{}
}

// decompress inflates payload (the block without header and footer) into out,
// which must be exactly expected.Size bytes long.
func (d *Decompressor) decompress(payload, out []byte, expected blockFooter) error {
	if expected.Size != 0 {
		if err := d.inflate(payload, out); err != nil {
			return err
		}
	}

	if found := crc32.ChecksumIEEE(out); found != expected.Checksum {
		return &ChecksumError{Found: found, Expected: expected.Checksum}
	}
	return nil
}

func (d *Decompressor) inflate(payload, out []byte) error {
	d.src.Reset(payload)
	if d.fr == nil {
		d.fr = flate.NewReader(&d.src)
	} else if err := d.fr.(flate.Resetter).Reset(&d.src, nil); err != nil {
		return errors.Wrap(err, "reset inflate")
	}

	if _, err := io.ReadFull(d.fr, out); err != nil {
		return errors.Errorf("inflate %d bytes (%v): %w", len(out), err, ErrCorruptBlock)
	}
	return nil
}

// Decompress decodes one complete framed block into dst, reusing dst's storage, and returns it.
func (d *Decompressor) Decompress(block, dst []byte) ([]byte, error) {
	if len(block) < headerSize {
		return dst[:0], errors.Wrapf(ErrTruncatedBlock, "%d bytes", len(block))
	}

	var header blockHeader
	if err := header.UnmarshalBinary(block[:headerSize]); err != nil {
		return dst[:0], err
	}
	if len(block) < header.BlockSize() {
		return dst[:0], errors.Wrapf(ErrTruncatedBlock, "%d out of %d bytes", len(block), header.BlockSize())
	}

	body := block[headerSize:header.BlockSize()]
	footer := footerValues(body)
	if err := footer.validate(); err != nil {
		return dst[:0], err
	}
	dst = resize(dst, int(footer.Size))
	if err := d.decompress(stripFooter(body), dst, footer); err != nil {
		return dst[:0], err
	}
	return dst, nil
}

// Close releases the inflate engine.
func (d *Decompressor) Close() error {
	d.src.Reset(nil)
	if d.fr == nil {
		return nil
	}
	err := d.fr.Close()
	d.fr = nil
	return err
}

func resize(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

package bgzf

import (
	"encoding/binary"

	"github.com/go-faster/errors"
	"go.uber.org/zap/zapcore"
)

const (
	/*
		The format consists of a number of gzip members ("blocks"), each of which carries its own total size
		in a `BC` extra subfield, followed by a fixed empty block that marks the end of the stream.

		Block Format

			|`Header`|`Compressed_Data`|`Footer`|
			|--------|-----------------|--------|
			| 18 B   | n bytes         | 8 B    |

		The total size of the block (header, data and footer) can't exceed 65536 bytes
		since it is stored minus one in a 16 bit field.

		https://samtools.github.io/hts-specs/SAMv1.pdf section 4.1
	*/

	// BlockSize is the nominal amount of uncompressed data stored in one block.
	BlockSize = 65280
	// MaxBlockSize is the hard ceiling of a framed block, header and footer included.
	MaxBlockSize = 64 << 10

	headerSize = 18
	footerSize = 8

	magicByteA        = 0x1f
	magicByteB        = 0x8b
	compressionMethod = 0x08
	flagExtra         = 0x04
	osUnknown         = 0xff
	extraLen          = 6
	subfieldID1       = 'B'
	subfieldID2       = 'C'
	subfieldLen       = 2

	blockSizeOffset = 16

	hintBest    = 2
	hintFastest = 4
	hintDefault = 0

	// Some inputs grow under deflate; the compressor reserves this fraction of the input on top.
	slackRatio = 10
	minSlack   = 128
)

// endMarker is the empty block terminating every well formed stream.
var endMarker = []byte{
	0x1f, 0x8b,             // ID1, ID2
	0x08,                   // CM = DEFLATE
	0x04,                   // FLG = FEXTRA
	0x00, 0x00, 0x00, 0x00, // MTIME = 0
	0x00,                   // XFL = 0
	0xff,                   // OS = 255 (unknown)
	0x06, 0x00,             // XLEN = 6
	0x42, 0x43,             // SI1, SI2
	0x02, 0x00,             // SLEN = 2
	0x1b, 0x00,             // BSIZE = 27
	0x03, 0x00,             // CDATA
	0x00, 0x00, 0x00, 0x00, // CRC32 = 0x00000000
	0x00, 0x00, 0x00, 0x00, // ISIZE = 0
}

/*
blockHeader is the gzip member header with the BGZF extra subfield.

	|`ID1`|`ID2`|`CM`|`FLG`|`MTIME`|`XFL`|`OS`|`XLEN`|`SI1`|`SI2`|`SLEN`|`BSIZE`|
	|-----|-----|----|-----|-------|-----|----|------|-----|-----|------|-------|
	| 1 B | 1 B |1 B | 1 B | 4 B   | 1 B |1 B | 2 B  | 1 B | 1 B | 2 B  | 2 B   |

MTIME is always zero and OS is always 255 (unknown).
*/
type blockHeader struct {
	// XFL, derived from the compression level.
	CompressionHint uint8
	// Total block size minus one.
	BSize uint16
}

func newBlockHeader(level Level, compressedLen int) blockHeader {
	total := headerSize + compressedLen + footerSize
	if total > MaxBlockSize {
		panic(errors.Errorf("block of %d bytes does not fit into BSIZE", total))
	}
	return blockHeader{
		CompressionHint: level.hint(),
		BSize:           uint16(total - 1),
	}
}

func (h *blockHeader) marshalBinaryInline(dst []byte) {
	_ = dst[:headerSize]
	dst[0] = magicByteA
	dst[1] = magicByteB
	dst[2] = compressionMethod
	dst[3] = flagExtra
	binary.LittleEndian.PutUint32(dst[4:], 0)
	dst[8] = h.CompressionHint
	dst[9] = osUnknown
	binary.LittleEndian.PutUint16(dst[10:], extraLen)
	dst[12] = subfieldID1
	dst[13] = subfieldID2
	binary.LittleEndian.PutUint16(dst[14:], subfieldLen)
	binary.LittleEndian.PutUint16(dst[blockSizeOffset:], h.BSize)
}

func (h *blockHeader) MarshalBinary() ([]byte, error) {
	dst := make([]byte, headerSize)
	h.marshalBinaryInline(dst)
	return dst, nil
}

func (h *blockHeader) UnmarshalBinary(p []byte) error {
	if len(p) != headerSize {
		return errors.Wrapf(ErrInvalidHeader, "header length mismatch %d vs %d", len(p), headerSize)
	}
	if p[0] != magicByteA || p[1] != magicByteB {
		return errors.Wrapf(ErrInvalidHeader, "bad magic %#02x %#02x", p[0], p[1])
	}
	if p[2] != compressionMethod {
		return errors.Wrapf(ErrInvalidHeader, "unsupported compression method %d", p[2])
	}
	if p[3]&flagExtra == 0 {
		return errors.Wrap(ErrInvalidHeader, "extra field flag not set")
	}
	if p[12] != subfieldID1 || p[13] != subfieldID2 {
		return errors.Wrapf(ErrInvalidHeader, "bad subfield id %q", p[12:14])
	}
	h.CompressionHint = p[8]
	h.BSize = binary.LittleEndian.Uint16(p[blockSizeOffset:])
	if h.BlockSize() < headerSize+footerSize {
		return errors.Wrapf(ErrInvalidHeader, "block size %d is smaller than header and footer", h.BlockSize())
	}
	return nil
}

// BlockSize returns the total size of the framed block including header and footer.
func (h *blockHeader) BlockSize() int {
	return int(h.BSize) + 1
}

func (h *blockHeader) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("CompressionHint", h.CompressionHint)
	enc.AddInt("BlockSize", h.BlockSize())
	return nil
}

/*
blockFooter is the gzip member trailer, doubling as the checksum descriptor of the block.

	|`CRC32`|`ISIZE`|
	|-------|-------|
	| 4 B   | 4 B   |

Both values describe the uncompressed data.
*/
type blockFooter struct {
	// CRC-32 (IEEE) of the uncompressed data.
	Checksum uint32
	// Length of the uncompressed data.
	Size uint32
}

func (f *blockFooter) marshalBinaryInline(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], f.Checksum)
	binary.LittleEndian.PutUint32(dst[4:], f.Size)
}

func (f *blockFooter) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("Checksum", f.Checksum)
	enc.AddUint32("Size", f.Size)
	return nil
}

// footerValues reads the footer from the last 8 bytes of p.
func footerValues(p []byte) blockFooter {
	tail := p[len(p)-footerSize:]
	return blockFooter{
		Checksum: binary.LittleEndian.Uint32(tail[0:]),
		Size:     binary.LittleEndian.Uint32(tail[4:]),
	}
}

func stripFooter(p []byte) []byte {
	return p[:len(p)-footerSize]
}

func extraAmount(n int) int {
	if extra := n / slackRatio; extra > minSlack {
		return extra
	}
	return minSlack
}

// validate rejects footers that promise more data than a block can hold.
func (f *blockFooter) validate() error {
	if f.Size > MaxBlockSize {
		return errors.Errorf("uncompressed size %d exceeds %d: %w", f.Size, MaxBlockSize, ErrCorruptBlock)
	}
	return nil
}

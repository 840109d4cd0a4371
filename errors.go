package bgzf

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrBlockSizeExceeded is returned when a compressed block does not fit into BSIZE.
	ErrBlockSizeExceeded = errors.New("bgzf: block size exceeded")
	// ErrInvalidCompressionLevel is returned for levels outside of [MinLevel, MaxLevel].
	ErrInvalidCompressionLevel = errors.New("bgzf: invalid compression level")
	// ErrInvalidHeader is returned for corrupt or non-BGZF block headers.
	ErrInvalidHeader = errors.New("bgzf: invalid block header")
	// ErrInvalidChecksum is returned when the decompressed data does not match the footer.
	ErrInvalidChecksum = errors.New("bgzf: invalid checksum")
	// ErrTruncatedBlock is returned when the source ends in the middle of a block.
	ErrTruncatedBlock = errors.New("bgzf: truncated block")
	// ErrCorruptBlock is returned when the deflate payload can't be inflated.
	ErrCorruptBlock = errors.New("bgzf: corrupt block")
	// ErrClosed is returned by operations on a finished writer or a closed reader.
	ErrClosed = errors.New("bgzf: already closed")
)

// BlockSizeExceededError carries the compressed size that did not fit.
type BlockSizeExceededError struct {
	Size  int
	Limit int
}

func (e *BlockSizeExceededError) Error() string {
	return fmt.Sprintf("compressed block size (%d) exceeds max allowed (%d)", e.Size, e.Limit)
}

func (e *BlockSizeExceededError) Is(target error) bool {
	return target == ErrBlockSizeExceeded
}

// ChecksumError reports a CRC-32 mismatch between a block footer and its data.
type ChecksumError struct {
	Found    uint32
	Expected uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("invalid checksum, found %#08x, expected %#08x", e.Found, e.Expected)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrInvalidChecksum
}

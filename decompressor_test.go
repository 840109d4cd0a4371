package bgzf

import (
	"errors"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressTestBlock(t *testing.T, input []byte) []byte {
	c, err := NewCompressor(DefaultLevel)
	require.NoError(t, err)
	block, err := c.Compress(input, nil)
	require.NoError(t, err)
	return block
}

func TestDecompressEndMarker(t *testing.T) {
	t.Parallel()

	d := NewDecompressor()
	out, err := d.Decompress(endMarker, make([]byte, 10))
	require.NoError(t, err)
	assert.Empty(t, out)

	// An empty block never reaches inflate, so the payload is irrelevant.
	assert.NoError(t, d.decompress([]byte{0xff, 0xff}, nil, blockFooter{}))
	assert.ErrorIs(t, d.decompress(nil, nil, blockFooter{Checksum: 1}), ErrInvalidChecksum)
	assert.NoError(t, d.Close())
}

func TestDecompressChecksumMismatch(t *testing.T) {
	t.Parallel()

	input := []byte("This is a longer test than normal to come up with a bunch of text.")
	block := compressTestBlock(t, input)
	block[len(block)-footerSize] ^= 0x01

	_, err := NewDecompressor().Decompress(block, nil)
	require.ErrorIs(t, err, ErrInvalidChecksum)

	var sumErr *ChecksumError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, crc32.ChecksumIEEE(input), sumErr.Found)
	assert.Equal(t, crc32.ChecksumIEEE(input)^0x01, sumErr.Expected)
}

func TestDecompressBitFlips(t *testing.T) {
	t.Parallel()

	input := makeTestData(4096)
	block := compressTestBlock(t, input)
	d := NewDecompressor()

	var out []byte
	var detected, flips int
	for i := headerSize; i < len(block)-footerSize; i++ {
		for bit := 0; bit < 8; bit++ {
			block[i] ^= 1 << bit
			decoded, err := d.Decompress(block, out)
			block[i] ^= 1 << bit
			flips++

			if err == nil {
				// Flips in padding bits change nothing, but wrong data must never come back.
				assert.Equal(t, input, decoded, "byte %d bit %d", i, bit)
				continue
			}
			detected++
			assert.True(t, errors.Is(err, ErrInvalidChecksum) || errors.Is(err, ErrCorruptBlock),
				"byte %d bit %d: %v", i, bit, err)
		}
	}

	assert.Greater(t, detected, flips*9/10)

	// The engine recovers after failures.
	decoded, err := d.Decompress(block, out)
	require.NoError(t, err)
	assert.Equal(t, input, decoded)
}

func TestDecompressTruncated(t *testing.T) {
	t.Parallel()

	block := compressTestBlock(t, []byte("test"))
	d := NewDecompressor()

	_, err := d.Decompress(block[:len(block)-1], nil)
	assert.ErrorIs(t, err, ErrTruncatedBlock)

	_, err = d.Decompress(block[:headerSize-1], nil)
	assert.ErrorIs(t, err, ErrTruncatedBlock)
}

func TestDecompressOversizedFooter(t *testing.T) {
	t.Parallel()

	block := compressTestBlock(t, []byte("test"))
	block[len(block)-1] = 0x01

	_, err := NewDecompressor().Decompress(block, nil)
	assert.ErrorIs(t, err, ErrCorruptBlock)
}

package bgzf

import (
	"bytes"
	"compress/gzip"
	"io"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// splitBlocks walks a stream by its BSIZE fields.
func splitBlocks(t testing.TB, p []byte) [][]byte {
	var blocks [][]byte
	for len(p) > 0 {
		require.GreaterOrEqual(t, len(p), headerSize)
		var h blockHeader
		require.NoError(t, h.UnmarshalBinary(p[:headerSize]))
		require.LessOrEqual(t, h.BlockSize(), len(p))
		blocks = append(blocks, p[:h.BlockSize()])
		p = p[h.BlockSize():]
	}
	return blocks
}

func makeTestData(n int) []byte {
	rng := rand.New(rand.NewSource(int64(n)))
	words := []string{"chr1", "ACGT", "TTAGGG", "\t", "\n", "read_", "42", "NNNN"}
	var b bytes.Buffer
	for b.Len() < n {
		if rng.Intn(8) == 0 {
			noise := make([]byte, 8)
			rng.Read(noise)
			b.Write(noise)
			continue
		}
		b.WriteString(words[rng.Intn(len(words))])
	}
	return b.Bytes()[:n]
}

func makeRandomData(n int) []byte {
	p := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(p)
	return p
}

func TestEndMarker(t *testing.T) {
	t.Parallel()

	var h blockHeader
	require.NoError(t, h.UnmarshalBinary(endMarker[:headerSize]))
	assert.Equal(t, len(endMarker), h.BlockSize())
	assert.Equal(t, blockFooter{}, footerValues(endMarker))
	assert.Len(t, stripFooter(endMarker[headerSize:]), 2)

	// The marker is what the codec itself would produce for an empty payload.
	expected := newBlockHeader(DefaultLevel, 2)
	encoded, err := expected.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, endMarker[:headerSize], encoded)

	// Any gzip reader sees an empty member.
	gz, err := gzip.NewReader(bytes.NewReader(endMarker))
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Empty(t, decoded)
	assert.Equal(t, []byte{'B', 'C', 0x02, 0x00, 0x1b, 0x00}, gz.Extra)
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	for _, compressed := range []int{0, 1, 1000, MaxBlockSize - headerSize - footerSize} {
		h := newBlockHeader(MaxLevel, compressed)
		p, err := h.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x1f, 0x8b, 0x08, 0x04, 0, 0, 0, 0, hintBest, 0xff, 6, 0, 'B', 'C', 2, 0}, p[:blockSizeOffset])

		var decoded blockHeader
		require.NoError(t, decoded.UnmarshalBinary(p))
		assert.Equal(t, h, decoded)
		assert.Equal(t, headerSize+compressed+footerSize, decoded.BlockSize())
	}
}

func TestBlockHeaderOverflow(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		newBlockHeader(DefaultLevel, MaxBlockSize-headerSize-footerSize+1)
	})
}

func TestBlockHeaderInvalid(t *testing.T) {
	t.Parallel()

	valid := append([]byte{}, endMarker[:headerSize]...)
	for name, tc := range map[string]struct {
		mutate func(p []byte) []byte
	}{
		"short":     {func(p []byte) []byte { return p[:headerSize-1] }},
		"magic":     {func(p []byte) []byte { p[0] = 0x1e; return p }},
		"method":    {func(p []byte) []byte { p[2] = 0x07; return p }},
		"no extra":  {func(p []byte) []byte { p[3] = 0x00; return p }},
		"subfield":  {func(p []byte) []byte { p[13] = 'D'; return p }},
		"too small": {func(p []byte) []byte { p[16], p[17] = 24, 0; return p }},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := tc.mutate(append([]byte{}, valid...))
			var h blockHeader
			assert.ErrorIs(t, h.UnmarshalBinary(p), ErrInvalidHeader)
		})
	}
}

func TestFooterValidate(t *testing.T) {
	t.Parallel()

	ok := blockFooter{Size: MaxBlockSize}
	assert.NoError(t, ok.validate())

	huge := blockFooter{Size: MaxBlockSize + 1}
	assert.ErrorIs(t, huge.validate(), ErrCorruptBlock)
}

func TestLevel(t *testing.T) {
	t.Parallel()

	for l := -2; l <= 11; l++ {
		t.Run(strconv.Itoa(l), func(t *testing.T) {
			level, err := NewLevel(l)
			if l < 0 || l > 9 {
				assert.ErrorIs(t, err, ErrInvalidCompressionLevel)
				return
			}
			require.NoError(t, err)

			switch {
			case l == 9:
				assert.Equal(t, uint8(hintBest), level.hint())
			case l <= 1:
				assert.Equal(t, uint8(hintFastest), level.hint())
			default:
				assert.Equal(t, uint8(hintDefault), level.hint())
			}
		})
	}
}

func TestExtraAmount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 128, extraAmount(0))
	assert.Equal(t, 128, extraAmount(1280))
	assert.Equal(t, 6528, extraAmount(BlockSize))
}

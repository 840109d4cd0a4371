package env

import (
	"go.uber.org/zap/zapcore"
)

// BlockEntry describes one block as it passes through a reader or a writer.
type BlockEntry struct {
	// ID is the sequence number of the block in the stream.
	ID int64

	// CompOffset is the offset of the block within the compressed stream.
	CompOffset uint64
	// DecompOffset is the offset of the block's data within the decompressed stream.
	DecompOffset uint64
	// CompSize is the size of the framed block, header and footer included.
	CompSize uint32
	// DecompSize is the size of the original data.
	DecompSize uint32

	// Checksum is the CRC-32 of the uncompressed data.
	Checksum uint32
}

func (o *BlockEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("ID", o.ID)
	enc.AddUint64("CompOffset", o.CompOffset)
	enc.AddUint64("DecompOffset", o.DecompOffset)
	enc.AddUint32("CompSize", o.CompSize)
	enc.AddUint32("DecompSize", o.DecompSize)
	enc.AddUint32("Checksum", o.Checksum)

	return nil
}

// Advance returns the entry that follows o in the stream for a block of the given sizes.
func (o BlockEntry) Advance(compSize, decompSize, checksum uint32) BlockEntry {
	return BlockEntry{
		ID:           o.ID + 1,
		CompOffset:   o.CompOffset + uint64(o.CompSize),
		DecompOffset: o.DecompOffset + uint64(o.DecompSize),
		CompSize:     compSize,
		DecompSize:   decompSize,
		Checksum:     checksum,
	}
}

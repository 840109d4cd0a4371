package bgzf

import (
	"github.com/go-faster/errors"
	"github.com/klauspost/compress/flate"
)

// Level is a validated deflate compression level.
type Level int

const (
	MinLevel     Level = flate.NoCompression
	FastestLevel Level = flate.BestSpeed
	DefaultLevel Level = 6
	MaxLevel     Level = flate.BestCompression
)

// NewLevel validates l and returns it as a Level.
func NewLevel(l int) (Level, error) {
	if l < int(MinLevel) || l > int(MaxLevel) {
		return 0, errors.Wrapf(ErrInvalidCompressionLevel, "%d not in [%d, %d]", l, MinLevel, MaxLevel)
	}
	return Level(l), nil
}

// hint maps the level to the gzip XFL byte.
func (l Level) hint() uint8 {
	switch {
	case l >= MaxLevel:
		return hintBest
	case l <= FastestLevel:
		return hintFastest
	default:
		return hintDefault
	}
}

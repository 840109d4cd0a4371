package bgzf

import (
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/SaveTheRbtz/bgzf-go/env"
)

type WOption func(*writerOptions) error

type writerOptions struct {
	logger    *zap.Logger
	env       env.WEnvironment
	blockSize int
}

func (o *writerOptions) setDefault() {
	*o = writerOptions{
		logger:    zap.NewNop(),
		blockSize: BlockSize,
	}
}

func WithWLogger(l *zap.Logger) WOption {
	return func(o *writerOptions) error { o.logger = l; return nil }
}

func WithWEnvironment(env env.WEnvironment) WOption {
	return func(o *writerOptions) error { o.env = env; return nil }
}

// WithBlockSize sets the amount of uncompressed data accumulated before a block is emitted.
func WithBlockSize(n int) WOption {
	return func(o *writerOptions) error {
		if n <= 0 || n > BlockSize {
			return errors.Errorf("block size %d not in (0, %d]", n, BlockSize)
		}
		o.blockSize = n
		return nil
	}
}

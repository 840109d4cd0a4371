package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/SaveTheRbtz/fastcdc-go"
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-faster/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bgzf "github.com/SaveTheRbtz/bgzf-go"
)

type config struct {
	input, output, chunking string
	level, blockSize        int
	decompress, verify      bool
	verbose                 bool
}

// countingWriter tracks how many bytes went to the output.
type countingWriter struct {
	w io.Writer
	n atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}

func main() {
	var cfg config

	flag.StringVar(&cfg.input, "f", "", "input filename")
	flag.StringVar(&cfg.output, "o", "", "output filename")
	flag.StringVar(&cfg.chunking, "c", "", "min:avg:max content defined block boundaries (in kb), off by default")
	flag.IntVar(&cfg.level, "l", int(bgzf.DefaultLevel), "compression level (0-9)")
	flag.IntVar(&cfg.blockSize, "b", bgzf.BlockSize, "uncompressed block size")
	flag.BoolVar(&cfg.decompress, "d", false, "decompress")
	flag.BoolVar(&cfg.verify, "t", false, "test reading after the write")
	flag.BoolVar(&cfg.verbose, "v", false, "be verbose")

	flag.Parse()

	var err error
	var logger *zap.Logger
	if cfg.verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal("failed to initialize logger", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.input == "" || cfg.output == "" {
		logger.Fatal("both input and output files need to be defined")
	}
	if cfg.verify && (cfg.output == "-" || cfg.decompress) {
		logger.Fatal("verify can only be used when compressing into a file")
	}

	if err := run(logger, cfg); err != nil {
		logger.Fatal("failed", zap.Error(err))
	}
}

func run(logger *zap.Logger, cfg config) (re error) {
	var input io.Reader
	var inputSize int64 = -1
	if cfg.input == "-" {
		input = os.Stdin
	} else {
		f, err := os.Open(cfg.input)
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer f.Close()
		if fi, err := f.Stat(); err == nil {
			inputSize = fi.Size()
		}
		input = f
	}

	var bar *progressbar.ProgressBar
	if cfg.verbose && inputSize >= 0 {
		description := "compressing"
		if cfg.decompress {
			description = "decompressing"
		}
		bar = progressbar.DefaultBytes(inputSize, description)
		input = io.TeeReader(input, bar)
	}

	var sink io.Writer
	if cfg.output == "-" {
		sink = os.Stdout
	} else {
		f, err := os.OpenFile(cfg.output, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return errors.Wrap(err, "open output")
		}
		defer func() {
			if err := f.Close(); err != nil {
				re = multierr.Append(re, err)
			}
		}()
		sink = f
	}
	output := &countingWriter{w: sink}

	var err error
	if cfg.decompress {
		err = decompress(logger, input, output)
	} else {
		err = compress(logger, cfg, input, output)
	}
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	logger.Info("done",
		zap.String("output", humanize.Bytes(uint64(output.n.Load()))),
		zap.Bool("decompress", cfg.decompress))
	return nil
}

func decompress(logger *zap.Logger, input io.Reader, output io.Writer) error {
	r, err := bgzf.NewReader(input, bgzf.WithRLogger(logger))
	if err != nil {
		return errors.Wrap(err, "create reader")
	}
	defer r.Close()

	if _, err := io.CopyBuffer(output, r, make([]byte, 128<<10)); err != nil {
		return errors.Wrap(err, "decompress")
	}
	return nil
}

func compress(logger *zap.Logger, cfg config, input io.Reader, output io.Writer) error {
	level, err := bgzf.NewLevel(cfg.level)
	if err != nil {
		return err
	}

	var (
		g        errgroup.Group
		hashed   atomic.Int64
		expected = xxhash.New()
		pw       *io.PipeWriter
	)
	if cfg.verify {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		input = io.TeeReader(input, pw)

		g.Go(func() error {
			n, err := io.CopyBuffer(expected, pr, make([]byte, 128<<10))
			hashed.Add(n)
			if err != nil {
				return errors.Wrap(err, "hash input")
			}
			return nil
		})
	}

	err = writeStream(logger, cfg, level, input, output)
	if pw != nil {
		// Unblocks the hashing goroutine on both success and failure.
		_ = pw.CloseWithError(err)
	}
	if err := multierr.Append(err, g.Wait()); err != nil {
		return err
	}

	if cfg.verify {
		return verify(logger, cfg.output, expected.Sum64(), hashed.Load())
	}
	return nil
}

func writeStream(logger *zap.Logger, cfg config, level bgzf.Level, input io.Reader, output io.Writer) error {
	w, err := bgzf.NewWriter(output, level, bgzf.WithWLogger(logger), bgzf.WithBlockSize(cfg.blockSize))
	if err != nil {
		return errors.Wrap(err, "create writer")
	}

	if cfg.chunking == "" {
		if _, err := io.CopyBuffer(w, input, make([]byte, 128<<10)); err != nil {
			return multierr.Append(errors.Wrap(err, "compress"), w.Close())
		}
		return w.Close()
	}

	opts, err := parseChunking(cfg.chunking)
	if err != nil {
		return multierr.Append(err, w.Close())
	}
	logger.Info("setting chunker params",
		zap.Int("min", opts.MinSize), zap.Int("avg", opts.AverageSize), zap.Int("max", opts.MaxSize))

	chunker, err := fastcdc.NewChunker(input, opts)
	if err != nil {
		return multierr.Append(errors.Wrap(err, "create chunker"), w.Close())
	}
	for {
		chunk, err := chunker.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return multierr.Append(errors.Wrap(err, "read"), w.Close())
		}
		// Every chunk boundary is a block boundary, so equal content yields equal blocks.
		if _, err := w.Write(chunk.Data); err != nil {
			return multierr.Append(errors.Wrap(err, "write"), w.Close())
		}
		if err := w.Flush(); err != nil {
			return multierr.Append(errors.Wrap(err, "flush"), w.Close())
		}
	}
	return w.Close()
}

func parseChunking(s string) (fastcdc.Options, error) {
	params := strings.SplitN(s, ":", 3)
	if len(params) != 3 {
		return fastcdc.Options{}, errors.Errorf("failed to parse chunker params %q: need min:avg:max", s)
	}

	var sizes [3]int
	for i, p := range params {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fastcdc.Options{}, errors.Wrapf(err, "parse %q", p)
		}
		sizes[i] = n * 1024
	}
	if sizes[2] > bgzf.BlockSize {
		sizes[2] = bgzf.BlockSize
	}

	return fastcdc.Options{
		MinSize:     sizes[0],
		AverageSize: sizes[1],
		MaxSize:     sizes[2],
	}, nil
}

func verify(logger *zap.Logger, name string, expected uint64, size int64) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "open file for verification")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat")
	}
	ok, err := bgzf.HasEndMarker(f, fi.Size())
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("end marker is missing")
	}

	r, err := bgzf.NewReader(f, bgzf.WithRLogger(logger))
	if err != nil {
		return errors.Wrap(err, "create reader")
	}
	defer r.Close()

	actual := xxhash.New()
	m, err := io.CopyBuffer(actual, r, make([]byte, 128<<10))
	if err != nil {
		return errors.Wrapf(err, "read back after %d bytes", m)
	}

	if m != size || actual.Sum64() != expected {
		logger.Error("checksum verification failed",
			zap.Uint64("actual", actual.Sum64()), zap.Uint64("expected", expected),
			zap.Int64("actualSize", m), zap.Int64("expectedSize", size))
		return errors.New("checksum verification failed")
	}
	logger.Info("checksum verification succeeded",
		zap.Uint64("xxhash", actual.Sum64()),
		zap.String("size", humanize.Bytes(uint64(m))),
		zap.String("compressed", humanize.Bytes(uint64(fi.Size()))))
	return nil
}

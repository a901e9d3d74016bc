// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/archivus/internal/config"
)

// compressor wraps artifact writers with the configured compression
// algorithm. The zero-cost "none" algorithm passes data through.
type compressor struct {
	algorithm string
	level     int
}

func newCompressor(cfg config.CompressionConfig) (*compressor, error) {
	switch cfg.Algorithm {
	case "gzip", "zstd", "none":
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", cfg.Algorithm)
	}
	return &compressor{algorithm: cfg.Algorithm, level: cfg.Level}, nil
}

// extension returns the file name suffix the algorithm adds.
func (c *compressor) extension() string {
	switch c.algorithm {
	case "gzip":
		return ".gz"
	case "zstd":
		return ".zst"
	default:
		return ""
	}
}

// wrap returns w wrapped with the compression writer. The caller must
// Close the returned writer to flush the stream trailer; closing it does
// not close w.
func (c *compressor) wrap(w io.Writer) (io.WriteCloser, error) {
	switch c.algorithm {
	case "gzip":
		gz, err := gzip.NewWriterLevel(w, c.level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return gz, nil
	case "zstd":
		// The 1-9 config scale maps onto zstd's native levels.
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

// unwrap returns a reader that reverses the compression applied by wrap.
func (c *compressor) unwrap(r io.Reader) (io.ReadCloser, error) {
	switch c.algorithm {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return io.NopCloser(dec.IOReadCloser()), nil
	default:
		return io.NopCloser(r), nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

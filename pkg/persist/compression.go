package persist

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownCompression is returned for an unsupported compression name or id.
var ErrUnknownCompression = errors.New("unknown compression")

// Compression selects the stream compression applied after encoding.
type Compression string

// Supported compressions.
const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// Compression identifiers stored in the file header.
const (
	compressionIDNone byte = 0
	compressionIDLZ4  byte = 1
	compressionIDZstd byte = 2
)

// ParseCompression converts a configuration string into a Compression.
// The empty string selects lz4.
func ParseCompression(name string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(name))) {
	case "", CompressionLZ4:
		return CompressionLZ4, nil
	case CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

func (c Compression) id() (byte, error) {
	switch c {
	case CompressionNone:
		return compressionIDNone, nil
	case CompressionLZ4, "":
		return compressionIDLZ4, nil
	case CompressionZstd:
		return compressionIDZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newCompressWriter(id byte, w io.Writer) (io.WriteCloser, error) {
	switch id {
	case compressionIDNone:
		return nopWriteCloser{w}, nil
	case compressionIDLZ4:
		return lz4.NewWriter(w), nil
	case compressionIDZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}

		return enc, nil
	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCompression, id)
	}
}

func newDecompressReader(id byte, r io.Reader) (io.ReadCloser, error) {
	switch id {
	case compressionIDNone:
		return io.NopCloser(r), nil
	case compressionIDLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case compressionIDZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}

		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCompression, id)
	}
}

package persist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Header layout constants.
const (
	// FormatVersion is the current state file format version.
	FormatVersion byte = 1

	headerSize = 7
)

var magic = [4]byte{'L', 'Z', 'X', 'S'}

// Sentinel errors for state loading.
var (
	// ErrNoState means the state file is missing or empty.
	ErrNoState = errors.New("no persisted state")
	// ErrCorrupt means the state file exists but cannot be decoded.
	ErrCorrupt = errors.New("corrupt state file")
)

// SaveState atomically writes state to path using the given codec and compression.
func SaveState(path string, codec Codec, compression Compression, state any) error {
	compID, err := compression.id()
	if err != nil {
		return err
	}

	return WriteFileAtomic(path, func(w io.Writer) error {
		header := [headerSize]byte{magic[0], magic[1], magic[2], magic[3], FormatVersion, codec.ID(), compID}

		_, writeErr := w.Write(header[:])
		if writeErr != nil {
			return fmt.Errorf("write header: %w", writeErr)
		}

		cw, wrapErr := newCompressWriter(compID, w)
		if wrapErr != nil {
			return wrapErr
		}

		encodeErr := codec.Encode(cw, state)
		if encodeErr != nil {
			_ = cw.Close()

			return fmt.Errorf("encode state: %w", encodeErr)
		}

		closeErr := cw.Close()
		if closeErr != nil {
			return fmt.Errorf("finish compression: %w", closeErr)
		}

		return nil
	})
}

// LoadState reads state from path into the value pointed to by state. The
// codec and compression are taken from the file header. A missing or empty
// file yields ErrNoState; any other decoding failure wraps ErrCorrupt.
func LoadState(path string, state any) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoState
	}

	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	var header [headerSize]byte

	n, err := io.ReadFull(reader, header[:])
	if n == 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
		return ErrNoState
	}

	if err != nil {
		return fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}

	if !bytes.Equal(header[:4], magic[:]) {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	if header[4] != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, header[4])
	}

	codec, err := codecByID(header[5])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	body, err := newDecompressReader(header[6], reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer body.Close()

	err = codec.Decode(body, state)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return nil
}

// Persister handles I/O for a specific state type at a fixed path.
type Persister[T any] struct {
	path        string
	codec       Codec
	compression Compression
}

// NewPersister creates a persister for the file at path.
func NewPersister[T any](path string, codec Codec, compression Compression) *Persister[T] {
	return &Persister[T]{
		path:        path,
		codec:       codec,
		compression: compression,
	}
}

// Path returns the state file location.
func (p *Persister[T]) Path() string {
	return p.path
}

// Save writes the state produced by buildState.
func (p *Persister[T]) Save(buildState func() *T) error {
	return SaveState(p.path, p.codec, p.compression, buildState())
}

// Load restores state through restoreState. Returns ErrNoState on first run.
func (p *Persister[T]) Load(restoreState func(*T)) error {
	var state T

	err := LoadState(p.path, &state)
	if err != nil {
		return err
	}

	restoreState(&state)

	return nil
}

// Remove deletes the state file. A missing file is not an error.
func (p *Persister[T]) Remove() error {
	err := os.Remove(p.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}

	return nil
}

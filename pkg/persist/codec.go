// Package persist provides crash-safe, codec-based file persistence for
// arbitrary state types.
//
// A state file is a small fixed header (magic, format version, codec id,
// compression id) followed by the encoded state, optionally compressed.
// Files are always replaced atomically, so a reader sees either the previous
// complete file or the new complete file.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownCodec is returned when a header references an unregistered codec.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec identifiers stored in the file header.
const (
	codecIDJSON byte = 1
	codecIDGob  byte = 2
)

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// ID returns the identifier written into the file header.
	ID() byte
}

// JSONCodec implements Codec using compact JSON encoding.
type JSONCodec struct{}

// NewJSONCodec creates a JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	err := json.NewEncoder(w).Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	err := json.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// ID implements Codec.ID.
func (c *JSONCodec) ID() byte {
	return codecIDJSON
}

// GobCodec implements Codec using gob encoding.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.Encode using gob encoding.
func (c *GobCodec) Encode(w io.Writer, state any) error {
	err := gob.NewEncoder(w).Encode(state)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, state any) error {
	err := gob.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// ID implements Codec.ID.
func (c *GobCodec) ID() byte {
	return codecIDGob
}

func codecByID(id byte) (Codec, error) {
	switch id {
	case codecIDJSON:
		return NewJSONCodec(), nil
	case codecIDGob:
		return NewGobCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, id)
	}
}

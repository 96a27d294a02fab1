package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// persisterState is a struct for persister round-trip testing.
type persisterState struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

func TestPersister_SaveLoad_AllCompressions(t *testing.T) {
	t.Parallel()

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		for _, codec := range []Codec{NewJSONCodec(), NewGobCodec()} {
			path := filepath.Join(t.TempDir(), "state.db")

			p := NewPersister[persisterState](path, codec, comp)

			original := persisterState{Label: strings.Repeat("hello ", 50), Value: 42}

			require.NoError(t, p.Save(func() *persisterState { return &original }))

			var restored persisterState

			require.NoError(t, p.Load(func(s *persisterState) { restored = *s }))

			assert.Equal(t, original, restored, "compression %s codec %d", comp, codec.ID())
		}
	}
}

func TestPersister_LoadMissingFile(t *testing.T) {
	t.Parallel()

	p := NewPersister[persisterState](filepath.Join(t.TempDir(), "missing.db"), NewGobCodec(), CompressionLZ4)

	err := p.Load(func(_ *persisterState) {})

	require.ErrorIs(t, err, ErrNoState)
}

func TestPersister_LoadEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	p := NewPersister[persisterState](path, NewGobCodec(), CompressionLZ4)

	require.ErrorIs(t, p.Load(func(_ *persisterState) {}), ErrNoState)
}

func TestPersister_LoadGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a state file"), 0o600))

	p := NewPersister[persisterState](path, NewGobCodec(), CompressionLZ4)

	require.ErrorIs(t, p.Load(func(_ *persisterState) {}), ErrCorrupt)
}

func TestPersister_LoadTruncatedBody(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trunc.db")

	p := NewPersister[persisterState](path, NewGobCodec(), CompressionNone)
	require.NoError(t, p.Save(func() *persisterState { return &persisterState{Label: "x", Value: 1} }))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:headerSize+2], 0o600))

	require.ErrorIs(t, p.Load(func(_ *persisterState) {}), ErrCorrupt)
}

func TestPersister_LeftoverTempFileIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	p := NewPersister[persisterState](path, NewGobCodec(), CompressionLZ4)
	require.NoError(t, p.Save(func() *persisterState { return &persisterState{Label: "old", Value: 1} }))

	// Simulate a crash mid-write: a half-written temp sibling.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.db.123.tmp"), []byte("LZXS\x01"), 0o600))

	var restored persisterState

	require.NoError(t, p.Load(func(s *persisterState) { restored = *s }))
	assert.Equal(t, "old", restored.Label)
}

func TestPersister_SaveReplacesAndCleansTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	p := NewPersister[persisterState](path, NewJSONCodec(), CompressionZstd)

	for i := range 3 {
		value := i
		require.NoError(t, p.Save(func() *persisterState { return &persisterState{Value: value} }))
	}

	var restored persisterState

	require.NoError(t, p.Load(func(s *persisterState) { restored = *s }))
	assert.Equal(t, 2, restored.Value)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPersister_Remove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")

	p := NewPersister[persisterState](path, NewGobCodec(), CompressionNone)
	require.NoError(t, p.Save(func() *persisterState { return &persisterState{} }))

	require.NoError(t, p.Remove())
	require.NoError(t, p.Remove())
	require.ErrorIs(t, p.Load(func(_ *persisterState) {}), ErrNoState)
}

func TestSaveState_UnknownCompression(t *testing.T) {
	t.Parallel()

	err := SaveState(filepath.Join(t.TempDir(), "x.db"), NewGobCodec(), Compression("lzma"), persisterState{})

	require.ErrorIs(t, err, ErrUnknownCompression)
}

func TestWriteFileAtomic_CreatesParentDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.db")

	p := NewPersister[persisterState](path, NewGobCodec(), CompressionLZ4)
	require.NoError(t, p.Save(func() *persisterState { return &persisterState{Label: "deep"} }))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

package filecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/SephirothFFKH/LZXAuto/pkg/persist"
)

// snapshotVersion is bumped when the snapshot layout changes incompatibly.
const snapshotVersion = 1

// snapshot is the on-disk layout of the file store.
type snapshot struct {
	Version int
	Records []Record
}

// FileStore keeps the whole cache in a single compressed snapshot file that
// is replaced atomically on every save.
type FileStore struct {
	persister *persist.Persister[snapshot]
}

// NewFileStore creates a file store at path with the given compression.
func NewFileStore(path string, compression persist.Compression) *FileStore {
	return &FileStore{
		persister: persist.NewPersister[snapshot](path, persist.NewGobCodec(), compression),
	}
}

// Load implements Store.
func (fs *FileStore) Load(_ context.Context) ([]Record, error) {
	var (
		records []Record
		version int
	)

	err := fs.persister.Load(func(s *snapshot) {
		records = s.Records
		version = s.Version
	})
	if errors.Is(err, persist.ErrNoState) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, want %d", ErrCorrupt, version, snapshotVersion)
	}

	return records, nil
}

// Save implements Store.
func (fs *FileStore) Save(_ context.Context, records []Record) error {
	err := fs.persister.Save(func() *snapshot {
		return &snapshot{Version: snapshotVersion, Records: records}
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Reset implements Store.
func (fs *FileStore) Reset(_ context.Context) error {
	return fs.persister.Remove()
}

// Location implements Store.
func (fs *FileStore) Location() string {
	return fs.persister.Path()
}

// Close implements Store.
func (fs *FileStore) Close() error {
	return nil
}

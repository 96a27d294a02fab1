package filecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SephirothFFKH/LZXAuto/pkg/persist"
)

// ErrUnknownBackend is returned for an unsupported store backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Backend names a Store implementation.
type Backend string

// Supported backends.
const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Default store file names, one per backend.
const (
	defaultFileName   = "filecache.lzxs"
	defaultSQLiteName = "filecache.sqlite"
)

// StoreOptions selects and configures a Store.
type StoreOptions struct {
	Backend     Backend
	Path        string
	Compression persist.Compression
}

// DefaultDir returns the default cache directory (<user cache dir>/lzxauto).
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			home = "."
		}

		base = filepath.Join(home, ".cache")
	}

	return filepath.Join(base, "lzxauto")
}

// DefaultPath returns the default store path for a backend.
func DefaultPath(backend Backend) string {
	if backend == BackendSQLite {
		return filepath.Join(DefaultDir(), defaultSQLiteName)
	}

	return filepath.Join(DefaultDir(), defaultFileName)
}

// ParseBackend converts a configuration string into a Backend. The empty
// string selects the file backend.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendFile:
		return BackendFile, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// OpenStore constructs the Store described by opts.
func OpenStore(ctx context.Context, opts StoreOptions) (Store, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath(opts.Backend)
	}

	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(path, opts.Compression), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(opts.Backend))
	}
}

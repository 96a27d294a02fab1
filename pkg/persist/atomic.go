package persist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Permissions for state files and their parent directories.
const (
	filePerm = 0o600
	dirPerm  = 0o750
)

// tempPattern names in-progress writes; leftovers from a crash are ignored by readers.
const tempPattern = ".*.tmp"

// WriteFileAtomic writes a file by streaming into a temporary sibling, syncing
// it, and renaming it over path. A crash at any point leaves either the old
// file or the new file in place.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	committed := false

	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriter(tmp)

	err = write(buf)
	if err != nil {
		return err
	}

	err = buf.Flush()
	if err != nil {
		return fmt.Errorf("flush temp file: %w", err)
	}

	err = tmp.Chmod(filePerm)
	if err != nil && !errors.Is(err, errors.ErrUnsupported) {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	err = tmp.Sync()
	if err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	committed = true

	syncDir(dir)

	return nil
}

// syncDir flushes the directory entry for the rename. Not every platform
// supports fsync on directories; failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	_ = d.Sync()
	_ = d.Close()
}

// Package walker streams a directory tree depth-first, reporting each
// directory (with its legacy compression state and regular-file count) before
// the files it contains.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/SephirothFFKH/LZXAuto/pkg/attr"
)

// ErrNotDir is returned when the walk root is not a directory.
var ErrNotDir = errors.New("walk root is not a directory")

// Directory is the per-directory observation emitted once per visited directory.
type Directory struct {
	Path string
	// LegacyCompressed reports the legacy compression attribute at visit time.
	LegacyCompressed bool
	// Files is the number of File events that follow for this directory.
	Files int
	// ProbeErr is set when the legacy attribute could not be read; the
	// directory is then reported as not flagged.
	ProbeErr error
}

// File is a regular file found under the root.
type File struct {
	Path string
	Dir  string
	Size int64
}

// Visitor receives walk events. Returning an error from Directory or File
// stops the walk and Walk returns that error.
type Visitor interface {
	Directory(ctx context.Context, dir Directory) error
	File(ctx context.Context, file File) error
	// Skip reports an entry that could not be read. The walk continues.
	Skip(path string, isDir bool, err error)
}

// Walker enumerates a tree.
type Walker struct {
	legacy attr.Legacy
}

// New creates a Walker that probes the legacy attribute through legacy.
func New(legacy attr.Legacy) *Walker {
	return &Walker{legacy: legacy}
}

// Walk visits root and every directory below it. Symbolic links and other
// non-regular entries are not followed. Only the stack of pending directory
// paths is held in memory; files are streamed one directory at a time.
func (w *Walker) Walk(ctx context.Context, root string, visitor Visitor) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDir, root)
	}

	pending := []string{root}

	for len(pending) > 0 {
		err = ctx.Err()
		if err != nil {
			return err
		}

		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		subdirs, visitErr := w.visitDir(ctx, dir, visitor)
		if visitErr != nil {
			return visitErr
		}

		// Reverse so the first subdirectory is visited next.
		slices.Reverse(subdirs)
		pending = append(pending, subdirs...)
	}

	return nil
}

func (w *Walker) visitDir(ctx context.Context, dir string, visitor Visitor) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		visitor.Skip(dir, true, err)

		if len(entries) == 0 {
			return nil, nil
		}
	}

	var (
		files   []File
		subdirs []string
	)

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		mode := entry.Type()

		switch {
		case mode.IsDir():
			subdirs = append(subdirs, path)
		case mode.IsRegular():
			info, infoErr := entry.Info()
			if infoErr != nil {
				visitor.Skip(path, false, infoErr)

				continue
			}

			files = append(files, File{Path: path, Dir: dir, Size: info.Size()})
		case mode&fs.ModeSymlink != 0:
			// Links are not followed; their targets are visited on their own if under root.
		default:
			// Devices, sockets and pipes are never compressed.
		}
	}

	legacy, probeErr := w.legacy.Compressed(dir)

	err = visitor.Directory(ctx, Directory{
		Path:             dir,
		LegacyCompressed: legacy && probeErr == nil,
		Files:            len(files),
		ProbeErr:         probeErr,
	})
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		err = visitor.File(ctx, file)
		if err != nil {
			return nil, err
		}
	}

	return subdirs, nil
}

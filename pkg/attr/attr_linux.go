//go:build linux

package attr

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fsComprFl is FS_COMPR_FL from linux/fs.h.
const fsComprFl = 0x00000004

func legacyCompressed(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	flags, err := unix.IoctlGetUint32(int(f.Fd()), unix.FS_IOC_GETFLAGS)
	if unsupported(err) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("get inode flags of %s: %w", path, err)
	}

	return flags&fsComprFl != 0, nil
}

func clearLegacyCompressed(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fd := int(f.Fd())

	flags, err := unix.IoctlGetUint32(fd, unix.FS_IOC_GETFLAGS)
	if unsupported(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("get inode flags of %s: %w", path, err)
	}

	if flags&fsComprFl == 0 {
		return nil
	}

	err = unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, int(flags&^fsComprFl))
	if err != nil {
		return fmt.Errorf("set inode flags of %s: %w", path, err)
	}

	return nil
}

// unsupported reports errors meaning the filesystem has no inode flags.
func unsupported(err error) bool {
	return errors.Is(err, unix.ENOTTY) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.ENOSYS)
}

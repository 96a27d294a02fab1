// Package attr reads and clears the legacy per-directory compression
// attribute: FILE_ATTRIBUTE_COMPRESSED on NTFS, the FS_COMPR_FL inode flag
// on Linux. Filesystems without the attribute always report it as unset.
package attr

// Legacy probes and clears the legacy compression attribute of a path.
type Legacy interface {
	// Compressed reports whether the attribute is set on path.
	Compressed(path string) (bool, error)
	// Clear removes the attribute from path.
	Clear(path string) error
}

// System is the Legacy implementation for the running platform.
type System struct{}

// NewSystem returns the platform implementation.
func NewSystem() System {
	return System{}
}

// Compressed implements Legacy.
func (System) Compressed(path string) (bool, error) {
	return legacyCompressed(path)
}

// Clear implements Legacy.
func (System) Clear(path string) error {
	return clearLegacyCompressed(path)
}

//go:build windows

package attr

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	// fsctlSetCompression is FSCTL_SET_COMPRESSION from winioctl.h.
	fsctlSetCompression = 0x0009C040
	// compressionFormatNone is COMPRESSION_FORMAT_NONE.
	compressionFormatNone uint16 = 0
)

func legacyCompressed(path string) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, fmt.Errorf("encode path %s: %w", path, err)
	}

	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false, fmt.Errorf("get attributes of %s: %w", path, err)
	}

	return attrs&windows.FILE_ATTRIBUTE_COMPRESSED != 0, nil
}

func clearLegacyCompressed(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("encode path %s: %w", path, err)
	}

	handle, err := windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer windows.CloseHandle(handle)

	format := compressionFormatNone

	var returned uint32

	err = windows.DeviceIoControl(
		handle,
		fsctlSetCompression,
		(*byte)(unsafe.Pointer(&format)),
		uint32(unsafe.Sizeof(format)),
		nil,
		0,
		&returned,
		nil,
	)
	if err != nil {
		return fmt.Errorf("clear compression attribute of %s: %w", path, err)
	}

	return nil
}

//go:build !linux && !windows

package attr

func legacyCompressed(_ string) (bool, error) {
	return false, nil
}

func clearLegacyCompressed(_ string) error {
	return nil
}

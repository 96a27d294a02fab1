// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	-ldflags "-X github.com/SephirothFFKH/LZXAuto/pkg/version.Version=v1.2.3 ..."
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// String returns a one-line description of the running binary.
func String() string {
	commit := Commit

	if commit == "<unknown>" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
				}
			}
		}
	}

	return fmt.Sprintf("lzxauto %s (commit %s, built %s)", Version, commit, Date)
}

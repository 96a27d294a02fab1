// Package filecache implements the persistent change-detection cache: a
// mapping from normalized file path to the last observed size and the outcome
// of the last compression attempt.
package filecache

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Outcome is the result of the most recent compression attempt for a path.
type Outcome uint8

// Outcome values. Zero is reserved so that an unset field never reads as a
// valid outcome.
const (
	OutcomeUnchanged  Outcome = 1
	OutcomeCompressed Outcome = 2
	OutcomeFailed     Outcome = 3
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeCompressed:
		return "compressed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	return o >= OutcomeUnchanged && o <= OutcomeFailed
}

// Record is the cached state of one file.
type Record struct {
	Path    string  `json:"path"`
	Size    int64   `json:"size"`
	Outcome Outcome `json:"outcome"`
}

// Key normalizes a path into a cache key: cleaned, and case-folded on
// Windows where the filesystem is case-insensitive.
func Key(path string) string {
	key := filepath.Clean(path)

	if runtime.GOOS == "windows" {
		key = strings.ToLower(key)
	}

	return key
}

package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownLevel is returned by ParseVerbosity for an unrecognized name.
var ErrUnknownLevel = errors.New("unknown log level")

// LevelGeneral sits between Info and Warn. Session boundaries and skipped
// directories are logged at this level.
const LevelGeneral = slog.LevelInfo + 2

// Verbosity is the operator-facing log level. Each verbosity includes the
// output of the ones before it.
type Verbosity uint8

// Verbosity values.
const (
	VerbosityNone Verbosity = iota
	VerbosityGeneral
	VerbosityInfo
	VerbosityDebug
)

var levelNames = map[Verbosity]string{
	VerbosityNone:    "none",
	VerbosityGeneral: "general",
	VerbosityInfo:    "info",
	VerbosityDebug:   "debug",
}

// String returns the lower-case verbosity name.
func (l Verbosity) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("verbosity(%d)", uint8(l))
}

// ParseVerbosity converts a configuration string into a Verbosity. Matching is
// case-insensitive; the empty string selects info.
func ParseVerbosity(name string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off", "quiet":
		return VerbosityNone, nil
	case "general", "warn":
		return VerbosityGeneral, nil
	case "", "info":
		return VerbosityInfo, nil
	case "debug", "trace":
		return VerbosityDebug, nil
	default:
		return VerbosityNone, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// slogLevel returns the minimum slog level enabled at l. It reports false for VerbosityNone.
func (l Verbosity) slogLevel() (slog.Level, bool) {
	switch l {
	case VerbosityNone:
		return 0, false
	case VerbosityGeneral:
		return LevelGeneral, true
	case VerbosityDebug:
		return slog.LevelDebug, true
	default:
		return slog.LevelInfo, true
	}
}

// replaceLevel renders LevelGeneral as "GENERAL" instead of "INFO+2".
func replaceLevel(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 || attr.Key != slog.LevelKey {
		return attr
	}

	if lvl, ok := attr.Value.Any().(slog.Level); ok && lvl == LevelGeneral {
		return slog.String(slog.LevelKey, "GENERAL")
	}

	return attr
}

// Package observability provides OpenTelemetry tracing and metrics, the
// leveled structured logger, and the optional diagnostics HTTP endpoint.
package observability

import (
	"io"
	"os"
)

// AppMode identifies which command the binary is executing.
type AppMode string

const (
	// ModeRun is a compression session.
	ModeRun AppMode = "run"
	// ModeReset is the cache reset maintenance operation.
	ModeReset AppMode = "reset"
	// ModeStatus is the read-only cache report.
	ModeStatus AppMode = "status"
)

const (
	defaultServiceName        = "lzxauto"
	defaultShutdownTimeoutSec = 5
)

// LogFile configures a rotated log file written alongside the console output.
type LogFile struct {
	// Path of the active log file. Empty disables file logging.
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Mode           AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export; providers become no-op.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio. Zero samples every root span.
	SampleRatio float64

	// TraceVerbose keeps per-file spans when exporting.
	TraceVerbose bool

	Verbosity Verbosity
	LogJSON   bool
	LogFile   LogFile

	// LogOutput is the console sink. Nil means stderr.
	LogOutput io.Writer

	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeRun,
		Verbosity:          VerbosityInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

func (c Config) logOutput() io.Writer {
	if c.LogOutput != nil {
		return c.LogOutput
	}

	return os.Stderr
}

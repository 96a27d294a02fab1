package config

// DefaultSkipExtensions are formats that are already compressed; the
// filesystem primitive would spend a full write on each for no gain.
var DefaultSkipExtensions = []string{
	".zip", ".7z", ".rar", ".gz", ".zst", ".lz4", ".br", ".xz", ".bz2", ".cab",
	".jpg", ".jpeg", ".png", ".gif", ".webp",
	".mp3", ".mp4", ".mkv", ".avi", ".mov", ".ogg", ".flac",
	".pdf", ".docx", ".xlsx", ".pptx",
}

// Engine defaults. Zero means "derive from the logical CPU count".
const (
	DefaultEngineWorkers   = 0
	DefaultEngineQueueSize = 0
)

// Cache defaults. An empty path selects the per-backend default location.
const (
	DefaultCacheBackend     = "file"
	DefaultCacheCompression = "lz4"
	DefaultCachePath        = ""
)

// Logging defaults.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSize    = "10MB"
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
)

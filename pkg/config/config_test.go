package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SephirothFFKH/LZXAuto/pkg/config"
	"github.com/SephirothFFKH/LZXAuto/pkg/engine"
	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/persist"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "lzxauto.yaml", ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultEngineWorkers, cfg.Engine.Workers)
	assert.Equal(t, config.DefaultEngineQueueSize, cfg.Engine.QueueSize)
	assert.Equal(t, config.DefaultSkipExtensions, cfg.Engine.SkipExtensions)
	assert.Equal(t, config.DefaultCacheBackend, cfg.Cache.Backend)
	assert.Equal(t, config.DefaultCacheCompression, cfg.Cache.Compression)
	assert.Empty(t, cfg.Cache.Path)
	assert.Empty(t, cfg.Invoker.Command)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, config.DefaultLogMaxBackups, cfg.Logging.MaxBackups)
	assert.Empty(t, cfg.Observability.DiagnosticsAddr)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	t.Parallel()

	content := `engine:
  workers: 6
  queue_size: 64
  skip_extensions: [".iso", ".VHDX"]
cache:
  backend: sqlite
  path: /var/lib/lzxauto/cache.sqlite
invoker:
  command: ["compact.exe", "/C", "/EXE:XPRESS16K"]
logging:
  level: debug
  format: json
  file: /var/log/lzxauto.log
  max_size: 512KiB
observability:
  diagnostics_addr: 127.0.0.1:9464
`

	cfg, err := config.LoadConfig(writeConfig(t, "lzxauto.yaml", content))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Engine.Workers)
	assert.Equal(t, 64, cfg.Engine.QueueSize)
	assert.Equal(t, []string{".iso", ".VHDX"}, cfg.Engine.SkipExtensions)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "/var/lib/lzxauto/cache.sqlite", cfg.Cache.Path)
	assert.Equal(t, []string{"compact.exe", "/C", "/EXE:XPRESS16K"}, cfg.Invoker.Command)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1:9464", cfg.Observability.DiagnosticsAddr)

	size, err := cfg.Logging.MaxSizeMB()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestLoadConfig_JSONFile(t *testing.T) {
	t.Parallel()

	content := `{"engine": {"workers": 2}, "cache": {"compression": "zstd"}}`

	cfg, err := config.LoadConfig(writeConfig(t, "lzxauto.json", content))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.Workers)
	assert.Equal(t, "zstd", cfg.Cache.Compression)
	assert.Equal(t, config.DefaultCacheBackend, cfg.Cache.Backend)
}

func TestLoadConfig_LegacyExcludedExtensions(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "lzxauto.json", `{"ExcludedExtensions": [".mkv", ".iso"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{".mkv", ".iso"}, cfg.Engine.SkipExtensions)

	both := `{"ExcludedExtensions": [".mkv"], "engine": {"skip_extensions": [".zip"]}}`

	cfg, err = config.LoadConfig(writeConfig(t, "lzxauto.json", both))
	require.NoError(t, err)
	assert.Equal(t, []string{".zip"}, cfg.Engine.SkipExtensions)
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown key":      "engine:\n  threads: 4\n",
		"negative workers": "engine:\n  workers: -1\n",
		"bad backend":      "cache:\n  backend: redis\n",
		"bad format":       "logging:\n  format: xml\n",
		"empty command":    "invoker:\n  command: []\n",
	}

	for name, content := range cases {
		_, err := config.LoadConfig(writeConfig(t, "lzxauto.yaml", content))
		require.ErrorIs(t, err, config.ErrSchemaViolation, name)
	}
}

func TestLoadConfig_SemanticValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content string
		want    error
	}{
		{"engine:\n  skip_extensions: ['a/b']\n", engine.ErrInvalidExtension},
		{"logging:\n  level: chatty\n", observability.ErrUnknownLevel},
		{"logging:\n  max_size: huge\n", config.ErrInvalidLogSize},
		{"invoker:\n  command: ['  ']\n", config.ErrInvalidCommand},
	}

	for _, tc := range cases {
		_, err := config.LoadConfig(writeConfig(t, "lzxauto.yaml", tc.content))
		require.ErrorIs(t, err, tc.want, tc.content)
	}
}

// Not parallel: t.Setenv.
func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LZXAUTO_ENGINE_WORKERS", "12")
	t.Setenv("LZXAUTO_LOGGING_LEVEL", "general")

	cfg, err := config.LoadConfig(writeConfig(t, "lzxauto.yaml", "engine:\n  workers: 3\n"))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Engine.Workers)
	assert.Equal(t, "general", cfg.Logging.Level)
}

// Not parallel: t.Chdir.
func TestLoadConfig_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lzxauto.yaml"), []byte("engine:\n  workers: 5\n"), 0o600))

	t.Chdir(dir)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Engine.Workers)
}

func TestLoggingConfig_MaxSizeMB(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"":        0,
		"10MB":    10,
		"512KiB":  1,
		"1048576": 1,
		"3MiB":    3,
	}

	for in, want := range cases {
		got, err := config.LoggingConfig{MaxSize: in}.MaxSizeMB()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := config.LoggingConfig{MaxSize: "ten"}.MaxSizeMB()
	require.ErrorIs(t, err, config.ErrInvalidLogSize)
}

func TestConfig_Telemetry(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Logging: config.LoggingConfig{
			Level:      "debug",
			Format:     "JSON",
			File:       "/tmp/lzxauto.log",
			MaxSize:    "2MiB",
			MaxBackups: 4,
			MaxAgeDays: 7,
		},
		Observability: config.ObservabilityConfig{
			OTLPEndpoint: "collector:4317",
			OTLPInsecure: true,
			OTLPHeaders:  "x-team=storage, x-env=prod",
			TraceVerbose: true,
		},
	}

	tel, err := cfg.Telemetry(observability.ModeRun, "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, observability.ModeRun, tel.Mode)
	assert.Equal(t, "1.2.3", tel.ServiceVersion)
	assert.Equal(t, observability.VerbosityDebug, tel.Verbosity)
	assert.True(t, tel.LogJSON)
	assert.Equal(t, observability.LogFile{Path: "/tmp/lzxauto.log", MaxSizeMB: 2, MaxBackups: 4, MaxAgeDays: 7}, tel.LogFile)
	assert.Equal(t, "collector:4317", tel.OTLPEndpoint)
	assert.True(t, tel.OTLPInsecure)
	assert.Equal(t, map[string]string{"x-team": "storage", "x-env": "prod"}, tel.OTLPHeaders)
	assert.True(t, tel.TraceVerbose)

	cfg.Logging.Level = "loud"

	_, err = cfg.Telemetry(observability.ModeRun, "1.2.3")
	require.ErrorIs(t, err, observability.ErrUnknownLevel)
}

func TestConfig_StoreOptions(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Cache: config.CacheConfig{Backend: "sqlite", Path: "/data/c.sqlite", Compression: "zstd"}}

	opts, err := cfg.StoreOptions()
	require.NoError(t, err)
	assert.Equal(t, filecache.StoreOptions{
		Backend:     filecache.BackendSQLite,
		Path:        "/data/c.sqlite",
		Compression: persist.CompressionZstd,
	}, opts)

	cfg.Cache.Backend = "etcd"

	_, err = cfg.StoreOptions()
	require.ErrorIs(t, err, filecache.ErrUnknownBackend)
}

func TestSchema_IsEmbedded(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(config.Schema()), `"ExcludedExtensions"`)
}

func TestValidateFile_IgnoresOtherFormats(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.ValidateFile(writeConfig(t, "lzxauto.toml", "anything = true\n")))
}

// Package config loads and validates lzxauto configuration from defaults,
// an optional config file and LZXAUTO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/SephirothFFKH/LZXAuto/pkg/engine"
	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/persist"
	"github.com/SephirothFFKH/LZXAuto/pkg/safeconv"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers   = errors.New("engine workers must not be negative")
	ErrInvalidQueueSize = errors.New("engine queue size must not be negative")
	ErrInvalidLogFormat = errors.New("log format must be text or json")
	ErrInvalidLogSize   = errors.New("invalid log max size")
	ErrInvalidCommand   = errors.New("invoker command must name a program")
)

const (
	envPrefix        = "LZXAUTO"
	configName       = "lzxauto"
	legacyExtensions = "ExcludedExtensions"
	bytesPerMB       = 1 << 20
)

// Config holds all lzxauto configuration.
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Invoker       InvokerConfig       `mapstructure:"invoker"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EngineConfig sizes the worker pool and lists excluded extensions.
type EngineConfig struct {
	Workers        int      `mapstructure:"workers"`
	QueueSize      int      `mapstructure:"queue_size"`
	SkipExtensions []string `mapstructure:"skip_extensions"`
}

// CacheConfig selects the change-detection cache store.
type CacheConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	Compression string `mapstructure:"compression"`
}

// InvokerConfig overrides the platform compression command. The file path
// is appended as the last argument.
type InvokerConfig struct {
	Command []string `mapstructure:"command"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ObservabilityConfig holds telemetry export configuration.
type ObservabilityConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	TraceVerbose    bool   `mapstructure:"trace_verbose"`
	DiagnosticsAddr string `mapstructure:"diagnostics_addr"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty configPath searches the working directory and the user config
// directory for lzxauto.{json,yaml,toml}; an explicit path must exist.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		dir, err := os.UserConfigDir()
		if err == nil {
			viperCfg.AddConfigPath(filepath.Join(dir, configName))
		}
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	used := viperCfg.ConfigFileUsed()
	if used != "" {
		schemaErr := ValidateFile(used)
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	if viperCfg.InConfig(strings.ToLower(legacyExtensions)) && !viperCfg.InConfig("engine.skip_extensions") {
		viperCfg.Set("engine.skip_extensions", viperCfg.GetStringSlice(legacyExtensions))
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("engine.workers", DefaultEngineWorkers)
	viperCfg.SetDefault("engine.queue_size", DefaultEngineQueueSize)
	viperCfg.SetDefault("engine.skip_extensions", DefaultSkipExtensions)

	viperCfg.SetDefault("cache.backend", DefaultCacheBackend)
	viperCfg.SetDefault("cache.path", DefaultCachePath)
	viperCfg.SetDefault("cache.compression", DefaultCacheCompression)

	viperCfg.SetDefault("invoker.command", []string{})

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)
	viperCfg.SetDefault("logging.file", "")
	viperCfg.SetDefault("logging.max_size", DefaultLogMaxSize)
	viperCfg.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	viperCfg.SetDefault("logging.max_age_days", DefaultLogMaxAgeDays)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.trace_verbose", false)
	viperCfg.SetDefault("observability.diagnostics_addr", "")
}

func validateConfig(config *Config) error {
	if config.Engine.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Engine.Workers)
	}

	if config.Engine.QueueSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueSize, config.Engine.QueueSize)
	}

	_, err := engine.NewSkipSet(config.Engine.SkipExtensions)
	if err != nil {
		return err
	}

	_, err = filecache.ParseBackend(config.Cache.Backend)
	if err != nil {
		return err
	}

	_, err = persist.ParseCompression(config.Cache.Compression)
	if err != nil {
		return err
	}

	if len(config.Invoker.Command) > 0 && strings.TrimSpace(config.Invoker.Command[0]) == "" {
		return ErrInvalidCommand
	}

	_, err = observability.ParseVerbosity(config.Logging.Level)
	if err != nil {
		return err
	}

	switch strings.ToLower(config.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	_, err = config.Logging.MaxSizeMB()

	return err
}

// MaxSizeMB converts MaxSize ("10MB", "512KiB", "1048576") into whole
// megabytes for the log rotator, rounding up. Empty means the rotator default.
func (l LoggingConfig) MaxSizeMB() (int, error) {
	trimmed := strings.TrimSpace(l.MaxSize)
	if trimmed == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidLogSize, l.MaxSize, err)
	}

	return safeconv.ClampUint64ToInt((size + bytesPerMB - 1) / bytesPerMB), nil
}

// Telemetry maps the logging and observability sections onto an
// observability.Config for the given command mode.
func (c *Config) Telemetry(mode observability.AppMode, serviceVersion string) (observability.Config, error) {
	verbosity, err := observability.ParseVerbosity(c.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	maxSize, err := c.Logging.MaxSizeMB()
	if err != nil {
		return observability.Config{}, err
	}

	cfg := observability.DefaultConfig()
	cfg.Mode = mode
	cfg.ServiceVersion = serviceVersion
	cfg.Verbosity = verbosity
	cfg.LogJSON = strings.EqualFold(c.Logging.Format, "json")
	cfg.LogFile = observability.LogFile{
		Path:       c.Logging.File,
		MaxSizeMB:  maxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
	cfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	cfg.OTLPInsecure = c.Observability.OTLPInsecure
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	cfg.TraceVerbose = c.Observability.TraceVerbose

	return cfg, nil
}

// StoreOptions maps the cache section onto filecache.StoreOptions.
func (c *Config) StoreOptions() (filecache.StoreOptions, error) {
	backend, err := filecache.ParseBackend(c.Cache.Backend)
	if err != nil {
		return filecache.StoreOptions{}, err
	}

	compression, err := persist.ParseCompression(c.Cache.Compression)
	if err != nil {
		return filecache.StoreOptions{}, err
	}

	return filecache.StoreOptions{Backend: backend, Path: c.Cache.Path, Compression: compression}, nil
}

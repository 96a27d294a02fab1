// Package commands implements the lzxauto CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/SephirothFFKH/LZXAuto/pkg/attr"
	"github.com/SephirothFFKH/LZXAuto/pkg/config"
	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/invoker"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/version"
)

type observabilityInit func(cfg observability.Config) (observability.Providers, error)

type invokerFactory func(argv []string) (invoker.Invoker, error)

// deps are the side-effecting capabilities the commands use. Tests replace them.
type deps struct {
	initObservability observabilityInit
	newInvoker        invokerFactory
	legacy            attr.Legacy
}

func defaultDeps() deps {
	return deps{
		initObservability: observability.Init,
		newInvoker: func(argv []string) (invoker.Invoker, error) {
			inv, err := invoker.NewCommand(argv)
			if err != nil {
				return nil, err
			}

			return inv, nil
		},
		legacy: attr.NewSystem(),
	}
}

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	deps deps
}

// NewRootCommand creates the lzxauto command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(defaultDeps())
}

func newRootCommandWithDeps(d deps) *cobra.Command {
	opts := &rootOptions{deps: d}

	rootCmd := &cobra.Command{
		Use:   "lzxauto",
		Short: "Incremental transparent filesystem compression",
		Long: `lzxauto walks a directory tree and asks the filesystem to compress every
file that changed since the previous run. A persistent cache of file sizes
makes repeated scheduled runs cheap.

Commands:
  run       Compress changed files under a root directory
  reset     Discard the change-detection cache
  status    Show cache contents per outcome
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Config file (default: lzxauto.{yaml,json,toml} in . or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: none, general, info, debug (overrides logging.level)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "",
		"Log format: text, json (overrides logging.format)")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newResetCommand(opts))
	rootCmd.AddCommand(newStatusCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// cmdEnv is the configuration and telemetry shared by one command invocation.
type cmdEnv struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
}

// setup loads configuration, applies flag overrides and initializes telemetry.
// The caller must call shutdown.
func (o *rootOptions) setup(mode observability.AppMode, logOutput io.Writer) (*cmdEnv, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	telemetry, err := cfg.Telemetry(mode, version.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	telemetry.LogOutput = logOutput

	providers, err := o.deps.initObservability(telemetry)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	if providers.Logger == nil {
		providers.Logger = slog.New(slog.DiscardHandler)
	}

	if providers.Tracer == nil {
		providers.Tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	if providers.Meter == nil {
		providers.Meter = noopmetric.NewMeterProvider().Meter("")
	}

	return &cmdEnv{cfg: cfg, providers: providers, logger: providers.Logger}, nil
}

// shutdown flushes telemetry and joins the error into errp.
func (rt *cmdEnv) shutdown(errp *error) {
	if rt.providers.Shutdown == nil {
		return
	}

	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		*errp = errors.Join(*errp, fmt.Errorf("shutdown observability: %w", err))
	}
}

// openCache opens the configured store and loads the cache. A corrupt store
// yields an error that tells the user how to recover.
func (rt *cmdEnv) openCache(ctx context.Context) (*filecache.Cache, error) {
	opts, err := rt.cfg.StoreOptions()
	if err != nil {
		return nil, err
	}

	store, err := filecache.OpenStore(ctx, opts)
	if err != nil {
		return nil, withResetHint(err)
	}

	cache, err := filecache.Open(ctx, store)
	if err != nil {
		return nil, errors.Join(withResetHint(err), store.Close())
	}

	return cache, nil
}

func withResetHint(err error) error {
	if !errors.Is(err, filecache.ErrCorrupt) {
		return err
	}

	return fmt.Errorf("%w\nrun `lzxauto reset` to discard the cache; every file will be reprocessed on the next run", err)
}

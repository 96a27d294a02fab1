package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/SephirothFFKH/LZXAuto/pkg/engine"
	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/invoker"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/session"
)

var errNotRunning = errors.New("no session running")

const diagnosticsCloseTimeout = 5 * time.Second

// runOptions holds the run command flags.
type runOptions struct {
	format          string
	maxDuration     time.Duration
	workers         int
	diagnosticsAddr string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <root>",
		Short: "Compress changed files under a root directory",
		Long: `Walk root and pass every file whose size changed since the last run to the
filesystem compression primitive. Files with a skipped extension are never
touched. SIGINT or SIGTERM stops the session after in-flight files finish;
the cache is saved either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.run(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", string(session.FormatText), "Summary format: text, json, yaml")
	cmd.Flags().DurationVar(&opts.maxDuration, "max-duration", 0, "Stop the session after this long (0 = no limit)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Worker count (overrides engine.workers; 0 = logical CPUs)")
	cmd.Flags().StringVar(&opts.diagnosticsAddr, "diagnostics-addr", "",
		"Serve /healthz, /readyz and /metrics on this address (overrides observability.diagnostics_addr)")

	return cmd
}

func (o *rootOptions) run(cmd *cobra.Command, rootPath string, opts *runOptions) (err error) {
	format, err := session.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	env, err := o.setup(observability.ModeRun, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.shutdown(&err)

	cfg := env.cfg
	logger := env.logger

	if cmd.Flags().Changed("workers") {
		cfg.Engine.Workers = opts.workers
	}

	if opts.diagnosticsAddr != "" {
		cfg.Observability.DiagnosticsAddr = opts.diagnosticsAddr
	}

	skip, err := engine.NewSkipSet(cfg.Engine.SkipExtensions)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	inv, err := o.deps.newInvoker(cfg.Invoker.Command)
	if err != nil {
		logger.ErrorContext(ctx, "compression primitive unavailable", slog.Any("error", err))

		return err
	}

	cache, err := env.openCache(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "cannot load cache", slog.Any("error", err))

		return err
	}

	defer func() {
		closeErr := cache.Close()
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close cache: %w", closeErr))
		}
	}()

	var running atomic.Bool

	meter := env.providers.Meter

	if addr := cfg.Observability.DiagnosticsAddr; addr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(ctx, addr, logger, func(context.Context) error {
			if !running.Load() {
				return errNotRunning
			}

			return nil
		})
		if diagErr != nil {
			return diagErr
		}

		defer func() {
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsCloseTimeout)
			defer cancel()

			closeErr := diag.Close(closeCtx)
			if closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()

		logger.Log(ctx, observability.LevelGeneral, "diagnostics endpoint listening", slog.String("addr", diag.Addr()))

		meter = diag.Meter()
	}

	eng, err := o.newEngine(env, cache, inv, skip, meter)
	if err != nil {
		return err
	}

	ctrl := session.NewController()

	stopSignals := notifyCancel(ctrl, logger)
	defer stopSignals()

	stopTimer := cancelAfter(opts.maxDuration, ctrl, logger)
	defer stopTimer()

	running.Store(true)
	sess, runErr := eng.Run(ctx, rootPath, ctrl)
	running.Store(false)

	renderErr := session.Render(cmd.OutOrStdout(), sess.Summary(), format)

	return errors.Join(runErr, renderErr)
}

func (o *rootOptions) newEngine(
	env *cmdEnv,
	cache *filecache.Cache,
	inv invoker.Invoker,
	skip *engine.SkipSet,
	meter metric.Meter,
) (*engine.Engine, error) {
	metrics, err := observability.NewSessionMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create session metrics: %w", err)
	}

	return engine.New(cache, inv, o.deps.legacy, engine.Options{
		Workers:   env.cfg.Engine.Workers,
		QueueSize: env.cfg.Engine.QueueSize,
		Skip:      skip,
		Logger:    env.logger,
		Tracer:    env.providers.Tracer,
		Metrics:   metrics,
	})
}

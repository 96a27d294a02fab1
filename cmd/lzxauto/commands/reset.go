package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"", "-wal", "-shm"}

func newResetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the change-detection cache",
		Long: `Remove every cache record without walking any directory. The next run
passes every file to the compression primitive again. Use this to recover
from a corrupt cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.reset(cmd)
		},
	}
}

func (o *rootOptions) reset(cmd *cobra.Command) (err error) {
	env, err := o.setup(observability.ModeReset, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.shutdown(&err)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := env.cfg.StoreOptions()
	if err != nil {
		return err
	}

	if opts.Path == "" {
		opts.Path = filecache.DefaultPath(opts.Backend)
	}

	store, err := filecache.OpenStore(ctx, opts)

	switch {
	case errors.Is(err, filecache.ErrCorrupt):
		// The store cannot even be opened; remove it from disk instead.
		env.logger.InfoContext(ctx, "cache unreadable, removing store files",
			slog.String("path", opts.Path), slog.Any("error", err))

		err = removeStoreFiles(opts.Path)
	case err != nil:
		return err
	default:
		err = errors.Join(store.Reset(ctx), store.Close())
	}

	if err != nil {
		return fmt.Errorf("reset cache at %s: %w", opts.Path, err)
	}

	env.logger.Log(ctx, observability.LevelGeneral, "cache reset", slog.String("path", opts.Path))
	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", opts.Path)

	return nil
}

func removeStoreFiles(path string) error {
	var errs []error

	for _, suffix := range sqliteSidecars {
		err := os.Remove(path + suffix)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

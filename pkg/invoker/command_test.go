package invoker_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SephirothFFKH/LZXAuto/pkg/invoker"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses unix shell utilities")
	}
}

func TestNewCommand_MissingProgramIsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := invoker.NewCommand([]string{"lzxauto-no-such-program-xyz"})
	require.ErrorIs(t, err, invoker.ErrUnavailable)
}

func TestNewCommand_BlankProgramIsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := invoker.NewCommand([]string{"  "})
	require.ErrorIs(t, err, invoker.ErrUnavailable)
}

func TestCommandInvoker_ZeroExitIsCompressed(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	inv, err := invoker.NewCommand([]string{"true"})
	require.NoError(t, err)
	assert.NotEmpty(t, inv.Program())

	res, err := inv.Invoke(context.Background(), "/any/path")
	require.NoError(t, err)
	assert.Equal(t, invoker.OutcomeCompressed, res.Outcome)
	assert.Empty(t, res.Reason)
}

func TestCommandInvoker_NonZeroExitIsFailed(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	inv, err := invoker.NewCommand([]string{"sh", "-c", "echo denied >&2; exit 3", "sh"})
	require.NoError(t, err)

	res, err := inv.Invoke(context.Background(), "/some/file")
	require.NoError(t, err)
	assert.Equal(t, invoker.OutcomeFailed, res.Outcome)
	assert.Equal(t, "exit status 3: denied", res.Reason)
}

func TestCommandInvoker_PathIsLastArgument(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	inv, err := invoker.NewCommand([]string{"sh", "-c", `test "$1" = "/expected/path"`, "sh"})
	require.NoError(t, err)

	res, err := inv.Invoke(context.Background(), "/expected/path")
	require.NoError(t, err)
	assert.Equal(t, invoker.OutcomeCompressed, res.Outcome)

	res, err = inv.Invoke(context.Background(), "/other/path")
	require.NoError(t, err)
	assert.Equal(t, invoker.OutcomeFailed, res.Outcome)
	assert.Equal(t, "exit status 1", res.Reason)
}

func TestCommandInvoker_NotInterruptedByContext(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	inv, err := invoker.NewCommand([]string{"sh", "-c", "sleep 0.1", "sh"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := inv.Invoke(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, invoker.OutcomeCompressed, res.Outcome)
}

func TestFunc_Adapter(t *testing.T) {
	t.Parallel()

	calls := 0
	fn := invoker.Func(func(_ context.Context, path string) (invoker.Result, error) {
		calls++

		if path == "down" {
			return invoker.Result{}, errors.Join(invoker.ErrUnavailable, errors.New("service stopped"))
		}

		return invoker.Result{Outcome: invoker.OutcomeUnchanged}, nil
	})

	var inv invoker.Invoker = fn

	res, err := inv.Invoke(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, invoker.OutcomeUnchanged, res.Outcome)

	_, err = inv.Invoke(context.Background(), "down")
	require.ErrorIs(t, err, invoker.ErrUnavailable)
	assert.Equal(t, 2, calls)
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unchanged", invoker.OutcomeUnchanged.String())
	assert.Equal(t, "compressed", invoker.OutcomeCompressed.String())
	assert.Equal(t, "failed", invoker.OutcomeFailed.String())
	assert.Equal(t, "unknown", invoker.Outcome(0).String())
	assert.Equal(t, "boom", invoker.Failed("boom").Reason)
}

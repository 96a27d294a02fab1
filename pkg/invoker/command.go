package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// maxReasonLen bounds the command output kept as a failure reason.
const maxReasonLen = 512

// DefaultCommand returns the platform compression command, or nil when the
// platform has no default. The file path is appended as the last argument.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"compact.exe", "/C", "/EXE:LZX", "/I", "/Q"}
	case "linux":
		return []string{"btrfs", "filesystem", "defragment", "-czstd"}
	default:
		return nil
	}
}

// CommandInvoker runs an external program once per file.
type CommandInvoker struct {
	program string
	args    []string
}

// NewCommand resolves argv[0] on PATH. An empty argv selects DefaultCommand.
// A missing program returns an error wrapping ErrUnavailable.
func NewCommand(argv []string) (*CommandInvoker, error) {
	if len(argv) == 0 {
		argv = DefaultCommand()
	}

	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%w: no compression command configured for %s", ErrUnavailable, runtime.GOOS)
	}

	program, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &CommandInvoker{program: program, args: append([]string(nil), argv[1:]...)}, nil
}

// Program returns the resolved executable path.
func (c *CommandInvoker) Program() string {
	return c.program
}

// Invoke runs the command on path. A zero exit status is OutcomeCompressed;
// any other status is OutcomeFailed with the command output as reason. The
// process is not tied to ctx so an in-flight call always runs to completion.
func (c *CommandInvoker) Invoke(_ context.Context, path string) (Result, error) {
	args := make([]string, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, path)

	cmd := exec.Command(c.program, args...) //nolint:gosec,noctx // program is operator-configured; calls are not preemptible.

	var out bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return Result{Outcome: OutcomeCompressed}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Failed(reason(exitErr.ExitCode(), out.String())), nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return Failed(err.Error()), nil
}

func reason(code int, output string) string {
	output = strings.TrimSpace(output)
	if len(output) > maxReasonLen {
		output = output[:maxReasonLen] + "..."
	}

	if output == "" {
		return fmt.Sprintf("exit status %d", code)
	}

	return fmt.Sprintf("exit status %d: %s", code, output)
}

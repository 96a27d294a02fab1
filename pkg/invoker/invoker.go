// Package invoker is the boundary to the operating system's transparent
// compression primitive. One call compresses (or verifies) one file.
package invoker

import (
	"context"
	"errors"
)

// ErrUnavailable means the compression primitive cannot be reached at all.
// It is session-fatal; per-file failures are reported as OutcomeFailed instead.
var ErrUnavailable = errors.New("compression primitive unavailable")

// Outcome is the three-way result of one invocation.
type Outcome uint8

// Invocation outcomes.
const (
	OutcomeUnchanged Outcome = iota + 1
	OutcomeCompressed
	OutcomeFailed
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeCompressed:
		return "compressed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned by Invoke. Reason is set for OutcomeFailed.
type Result struct {
	Outcome Outcome
	Reason  string
}

// Invoker applies compression to a single file. Invoke is synchronous and is
// never interrupted once started; the context carries trace data only.
// A non-nil error must wrap ErrUnavailable.
type Invoker interface {
	Invoke(ctx context.Context, path string) (Result, error)
}

// Func adapts a plain function to the Invoker interface.
type Func func(ctx context.Context, path string) (Result, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, path string) (Result, error) {
	return f(ctx, path)
}

// Failed builds a failed result.
func Failed(reason string) Result {
	return Result{Outcome: OutcomeFailed, Reason: reason}
}

package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/invoker"
)

// Decision is what the engine did with one file.
type Decision uint8

// Decisions.
const (
	DecisionSkippedExtension Decision = iota + 1
	DecisionSkippedUnchanged
	DecisionSkippedInaccessible
	DecisionCompressed
	DecisionFailed
)

// String returns the snake_case decision name used in logs and metrics.
func (d Decision) String() string {
	switch d {
	case DecisionSkippedExtension:
		return "skipped_extension"
	case DecisionSkippedUnchanged:
		return "skipped_unchanged"
	case DecisionSkippedInaccessible:
		return "skipped_inaccessible"
	case DecisionCompressed:
		return "compressed"
	case DecisionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Verdict is the result of Decide.
type Verdict struct {
	Decision Decision
	// Size is the size recorded in the cache, or the walked size when nothing was recorded.
	Size int64
	// Reason explains a failed or inaccessible file.
	Reason string
	// Took is the compressor call duration. Zero when it was not called.
	Took time.Duration
}

// Invoked reports whether the compressor was called.
func (v Verdict) Invoked() bool {
	return v.Decision == DecisionCompressed || v.Decision == DecisionFailed
}

// Decide runs the per-file decision: skip by extension, skip when the cache
// shows the same size and a non-failed outcome, otherwise call the invoker
// and record its outcome. The only error is an unavailable compressor.
func (e *Engine) Decide(ctx context.Context, path string, size int64) (Verdict, error) {
	if e.skip.Contains(path) {
		return Verdict{Decision: DecisionSkippedExtension, Size: size}, nil
	}

	rec, ok := e.cache.Lookup(path)
	if ok && rec.Size == size && rec.Outcome != filecache.OutcomeFailed {
		return Verdict{Decision: DecisionSkippedUnchanged, Size: size}, nil
	}

	// The file may have been removed or replaced since it was enumerated.
	info, err := os.Lstat(path)
	if err != nil {
		return Verdict{Decision: DecisionSkippedInaccessible, Size: size, Reason: err.Error()}, nil
	}

	if !info.Mode().IsRegular() {
		return Verdict{Decision: DecisionSkippedInaccessible, Size: size, Reason: "no longer a regular file"}, nil
	}

	size = info.Size()

	start := time.Now()

	res, err := e.invoker.Invoke(ctx, path)
	if err != nil {
		return Verdict{}, fmt.Errorf("invoke %s: %w", path, err)
	}

	took := time.Since(start)

	switch res.Outcome {
	case invoker.OutcomeUnchanged, invoker.OutcomeCompressed:
		e.cache.Record(path, size, filecache.OutcomeCompressed)

		return Verdict{Decision: DecisionCompressed, Size: size, Took: took}, nil
	default:
		e.cache.Record(path, size, filecache.OutcomeFailed)

		reason := res.Reason
		if reason == "" {
			reason = "compressor reported " + res.Outcome.String()
		}

		return Verdict{Decision: DecisionFailed, Size: size, Reason: reason, Took: took}, nil
	}
}

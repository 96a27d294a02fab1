// Package engine drives one compression session: a walker feeds a bounded
// queue, a fixed pool of workers decides each file against the
// change-detection cache, and directories flagged with the legacy
// compression attribute are cleared once all their files are decided.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/SephirothFFKH/LZXAuto/pkg/attr"
	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/invoker"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/session"
	"github.com/SephirothFFKH/LZXAuto/pkg/walker"
)

// ErrRootNotDir is returned when the session root is missing or not a directory.
var ErrRootNotDir = errors.New("root is not an accessible directory")

// errStopped unwinds the walker after cancellation.
var errStopped = errors.New("session stopped")

const (
	spanSession = "lzxauto.session"
	attrPath    = "lzxauto.path"
	attrRoot    = "lzxauto.root"
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Workers is the pool size. Zero uses the logical CPU count.
	Workers int
	// QueueSize bounds the walker-to-worker queue. Zero uses twice the pool size.
	QueueSize int
	// Skip lists excluded extensions. Nil excludes nothing.
	Skip *SkipSet

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.SessionMetrics
}

// Engine owns the cache, compressor and legacy attribute handle for a
// session. It is not safe to call Run concurrently on one Engine.
type Engine struct {
	cache   *filecache.Cache
	invoker invoker.Invoker
	legacy  attr.Legacy
	walker  *walker.Walker
	skip    *SkipSet

	workers   int
	queueSize int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.SessionMetrics
}

// New creates an Engine.
func New(cache *filecache.Cache, inv invoker.Invoker, legacy attr.Legacy, opts Options) (*Engine, error) {
	e := &Engine{
		cache:     cache,
		invoker:   inv,
		legacy:    legacy,
		walker:    walker.New(legacy),
		skip:      opts.Skip,
		workers:   opts.Workers,
		queueSize: opts.QueueSize,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		metrics:   opts.Metrics,
	}

	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}

	if e.queueSize <= 0 {
		e.queueSize = 2 * e.workers
	}

	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}

	if e.tracer == nil {
		e.tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	if e.metrics == nil {
		metrics, err := observability.NewSessionMetrics(noopmetric.NewMeterProvider().Meter(""))
		if err != nil {
			return nil, fmt.Errorf("create session metrics: %w", err)
		}

		e.metrics = metrics
	}

	return e, nil
}

// Workers returns the pool size.
func (e *Engine) Workers() int {
	return e.workers
}

// run is the state of one Run call.
type run struct {
	e       *Engine
	sess    *session.Session
	ctrl    *session.Controller
	tracker *dirTracker
	jobs    chan walker.File
}

// Run processes every file under root. It returns when the walk is
// exhausted or ctrl is cancelled and in-flight files are decided; the cache
// is persisted in both cases. The returned error is non-nil only for fatal
// conditions: an invalid root, an unavailable compressor or a failed persist.
func (e *Engine) Run(ctx context.Context, root string, ctrl *session.Controller) (*session.Session, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	if ctrl == nil {
		ctrl = session.NewController()
	}

	sess := session.New(abs)

	ctx, span := e.tracer.Start(ctx, spanSession, trace.WithAttributes(attribute.String(attrRoot, abs)))
	defer span.End()

	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%w: %s", ErrRootNotDir, abs)
	} else if err != nil {
		err = fmt.Errorf("%w: %w", ErrRootNotDir, err)
	}

	if err != nil {
		sess.Finish(session.StatusAborted, err)
		span.RecordError(err)

		return sess, err
	}

	e.logger.Log(ctx, observability.LevelGeneral, "session started",
		slog.String("root", abs), slog.Int("workers", e.workers), slog.Int("cached", e.cache.Len()))

	r := &run{
		e:       e,
		sess:    sess,
		ctrl:    ctrl,
		tracker: newDirTracker(),
		jobs:    make(chan walker.File, e.queueSize),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.produce(gctx, abs) })

	for range e.workers {
		g.Go(func() error { return r.consume(gctx) })
	}

	fatal := g.Wait()

	// Persist even when the session is cancelled or aborted so decided files
	// are not reprocessed.
	persistErr := e.cache.Persist(context.WithoutCancel(ctx))

	status := session.StatusCompleted

	switch {
	case fatal != nil || persistErr != nil:
		status = session.StatusAborted
	case ctrl.Cancelled() || ctx.Err() != nil:
		status = session.StatusCancelled
	}

	err = errors.Join(fatal, persistErr)
	sess.Finish(status, err)
	e.metrics.RecordSession(ctx, string(status))

	if err != nil {
		span.RecordError(err)
	}

	e.report(ctx, sess)

	return sess, err
}

func (e *Engine) report(ctx context.Context, sess *session.Session) {
	sum := sess.Summary()

	e.logger.Log(ctx, observability.LevelGeneral, "session finished",
		slog.String("root", sum.Root), slog.String("status", string(sum.Status)), slog.Duration("duration", sum.Duration))

	e.logger.InfoContext(ctx, "session statistics",
		slog.Int64("scanned", sum.Scanned),
		slog.Int64("compressed", sum.Compressed),
		slog.Int64("failed", sum.Failed),
		slog.Int64("skipped_unchanged", sum.SkippedUnchanged),
		slog.Int64("skipped_extension", sum.SkippedExtension),
		slog.Int64("skipped_inaccessible", sum.SkippedInaccessible),
		slog.Int64("dirs_normalized", sum.DirsNormalized),
		slog.Int64("normalize_failed", sum.NormalizeFailed),
		slog.Int64("bytes_scanned", sum.BytesScanned),
		slog.Int64("bytes_invoked", sum.BytesInvoked),
	)
}

func (r *run) stopped(ctx context.Context) bool {
	return r.ctrl.Cancelled() || ctx.Err() != nil
}

// produce walks root and feeds the queue. It closes the queue on return.
func (r *run) produce(ctx context.Context, root string) error {
	defer close(r.jobs)

	err := r.e.walker.Walk(ctx, root, r)
	if err == nil || errors.Is(err, errStopped) || ctx.Err() != nil {
		return nil
	}

	return fmt.Errorf("walk %s: %w", root, err)
}

// Directory implements walker.Visitor.
func (r *run) Directory(ctx context.Context, dir walker.Directory) error {
	if dir.ProbeErr != nil {
		r.e.logger.InfoContext(ctx, "cannot read legacy compression attribute",
			slog.String("dir", dir.Path), slog.Any("error", dir.ProbeErr))
	}

	if r.tracker.add(dir) && !r.stopped(ctx) {
		r.normalize(ctx, dir.Path)
	}

	return nil
}

// File implements walker.Visitor. Cancellation is checked before each enqueue.
func (r *run) File(ctx context.Context, file walker.File) error {
	if r.stopped(ctx) {
		return errStopped
	}

	select {
	case r.jobs <- file:
	case <-r.ctrl.Done():
		return errStopped
	case <-ctx.Done():
		return errStopped
	}

	return nil
}

// Skip implements walker.Visitor.
func (r *run) Skip(path string, isDir bool, err error) {
	r.sess.Counters.SkippedInaccessible.Add(1)
	r.e.metrics.RecordInaccessible(context.Background())

	if isDir {
		r.e.logger.Log(context.Background(), observability.LevelGeneral, "skipped directory",
			slog.String("dir", path), slog.Any("error", err))

		return
	}

	r.e.logger.Info("skipped file", slog.String("path", path), slog.Any("error", err))
}

// consume is one worker. Cancellation is checked before each dequeue and
// again after it, so an entry received after the signal is dropped undecided
// and not counted as scanned.
func (r *run) consume(ctx context.Context) error {
	for {
		if r.stopped(ctx) {
			return nil
		}

		var (
			file walker.File
			ok   bool
		)

		select {
		case file, ok = <-r.jobs:
			if !ok {
				return nil
			}
		case <-r.ctrl.Done():
			return nil
		case <-ctx.Done():
			return nil
		}

		if r.stopped(ctx) {
			return nil
		}

		r.sess.Counters.Scanned.Add(1)
		r.sess.Counters.BytesScanned.Add(file.Size)

		err := r.process(ctx, file)
		if err != nil {
			return err
		}

		if r.tracker.done(file.Dir) {
			r.normalize(ctx, file.Dir)
		}
	}
}

func (r *run) process(ctx context.Context, file walker.File) error {
	ctx, span := r.e.tracer.Start(ctx, observability.SpanFile, trace.WithAttributes(attribute.String(attrPath, file.Path)))
	defer span.End()

	idle := r.e.metrics.TrackWorker(ctx)
	defer idle()

	verdict, err := r.e.Decide(ctx, file.Path, file.Size)
	if err != nil {
		span.RecordError(err)
		r.e.logger.ErrorContext(ctx, "compressor unavailable, aborting session",
			slog.String("path", file.Path), slog.Any("error", err))

		return err
	}

	counters := &r.sess.Counters

	switch verdict.Decision {
	case DecisionSkippedExtension:
		counters.SkippedExtension.Add(1)
	case DecisionSkippedUnchanged:
		counters.SkippedUnchanged.Add(1)
	case DecisionSkippedInaccessible:
		counters.SkippedInaccessible.Add(1)
		r.e.logger.InfoContext(ctx, "skipped file", slog.String("path", file.Path), slog.String("reason", verdict.Reason))
	case DecisionCompressed:
		counters.Compressed.Add(1)
	case DecisionFailed:
		counters.Failed.Add(1)
		r.e.logger.InfoContext(ctx, "compression failed", slog.String("path", file.Path), slog.String("reason", verdict.Reason))
	}

	if verdict.Invoked() {
		counters.BytesInvoked.Add(verdict.Size)
		r.e.metrics.RecordInvoke(ctx, verdict.Decision.String(), verdict.Size, verdict.Took)
	}

	r.e.metrics.RecordDecision(ctx, verdict.Decision.String())
	r.e.logger.DebugContext(ctx, "file decided",
		slog.String("path", file.Path), slog.Int64("size", verdict.Size), slog.String("decision", verdict.Decision.String()))

	return nil
}

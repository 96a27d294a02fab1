package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricFilesDecided     = "lzxauto.files.decided"
	MetricBytesInvoked     = "lzxauto.bytes.invoked"
	MetricInvokeDuration   = "lzxauto.invoke.duration.seconds"
	MetricDirsNormalized   = "lzxauto.dirs.normalized"
	MetricEntriesSkipped   = "lzxauto.entries.inaccessible"
	MetricWorkersBusy      = "lzxauto.workers.busy"
	MetricSessionsFinished = "lzxauto.sessions.finished"

	attrDecision = "decision"
	attrResult   = "result"
	attrStatus   = "status"
)

// invokeBucketBoundaries covers a cached no-op call up to a multi-minute
// compression of a very large file.
var invokeBucketBoundaries = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// SessionMetrics holds the OTel instruments updated during a session.
type SessionMetrics struct {
	filesDecided     metric.Int64Counter
	bytesInvoked     metric.Int64Counter
	invokeDuration   metric.Float64Histogram
	dirsNormalized   metric.Int64Counter
	entriesSkipped   metric.Int64Counter
	workersBusy      metric.Int64UpDownCounter
	sessionsFinished metric.Int64Counter
}

// NewSessionMetrics creates the session instruments from mt.
func NewSessionMetrics(mt metric.Meter) (*SessionMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &SessionMetrics{
		filesDecided:     b.counter(MetricFilesDecided, "Files that reached a decision", "{file}"),
		bytesInvoked:     b.counter(MetricBytesInvoked, "Bytes of files passed to the compressor", "By"),
		invokeDuration:   b.histogram(MetricInvokeDuration, "Compressor call duration", "s", invokeBucketBoundaries...),
		dirsNormalized:   b.counter(MetricDirsNormalized, "Directories whose legacy attribute was processed", "{directory}"),
		entriesSkipped:   b.counter(MetricEntriesSkipped, "Entries skipped because they could not be read", "{entry}"),
		workersBusy:      b.upDownCounter(MetricWorkersBusy, "Workers currently deciding a file", "{worker}"),
		sessionsFinished: b.counter(MetricSessionsFinished, "Finished sessions", "{session}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordDecision counts one file decision (compressed, failed, skipped_unchanged, skipped_extension).
func (sm *SessionMetrics) RecordDecision(ctx context.Context, decision string) {
	sm.filesDecided.Add(ctx, 1, metric.WithAttributes(attribute.String(attrDecision, decision)))
}

// RecordInvoke records one compressor call.
func (sm *SessionMetrics) RecordInvoke(ctx context.Context, result string, size int64, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrResult, result))

	sm.bytesInvoked.Add(ctx, size, attrs)
	sm.invokeDuration.Record(ctx, took.Seconds(), attrs)
}

// RecordNormalize counts one legacy attribute clear attempt.
func (sm *SessionMetrics) RecordNormalize(ctx context.Context, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}

	sm.dirsNormalized.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordInaccessible counts one entry the walker could not read.
func (sm *SessionMetrics) RecordInaccessible(ctx context.Context) {
	sm.entriesSkipped.Add(ctx, 1)
}

// TrackWorker marks a worker busy and returns a function that marks it idle.
func (sm *SessionMetrics) TrackWorker(ctx context.Context) func() {
	sm.workersBusy.Add(ctx, 1)

	return func() {
		sm.workersBusy.Add(ctx, -1)
	}
}

// RecordSession counts a finished session by status.
func (sm *SessionMetrics) RecordSession(ctx context.Context, status string) {
	sm.sessionsFinished.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// metricBuilder accumulates instrument creation errors so a batch of
// instruments needs a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

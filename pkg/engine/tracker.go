package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SephirothFFKH/LZXAuto/pkg/walker"
)

// dirTracker counts outstanding files per directory so the legacy attribute
// is cleared only after every file in the directory has been decided.
type dirTracker struct {
	mu   sync.Mutex
	dirs map[string]*dirState
}

type dirState struct {
	remaining int
	legacy    bool
}

func newDirTracker() *dirTracker {
	return &dirTracker{dirs: make(map[string]*dirState)}
}

// add registers a directory before its files are enqueued. It reports true
// when the directory is flagged and has no files, so it can be cleared now.
func (t *dirTracker) add(dir walker.Directory) bool {
	if dir.Files == 0 {
		return dir.LegacyCompressed
	}

	t.mu.Lock()
	t.dirs[dir.Path] = &dirState{remaining: dir.Files, legacy: dir.LegacyCompressed}
	t.mu.Unlock()

	return false
}

// done marks one file of dir as decided. It reports true when that was the
// last outstanding file of a flagged directory.
func (t *dirTracker) done(dir string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.dirs[dir]
	if !ok {
		return false
	}

	st.remaining--
	if st.remaining > 0 {
		return false
	}

	delete(t.dirs, dir)

	return st.legacy
}

// normalize clears the legacy attribute of dir. Failure is counted and
// logged, never returned.
func (r *run) normalize(ctx context.Context, dir string) {
	err := r.e.legacy.Clear(dir)
	if err != nil {
		r.sess.Counters.NormalizeFailed.Add(1)
		r.e.metrics.RecordNormalize(ctx, false)
		r.e.logger.InfoContext(ctx, "failed to clear legacy compression attribute",
			slog.String("dir", dir), slog.Any("error", err))

		return
	}

	r.sess.Counters.DirsNormalized.Add(1)
	r.e.metrics.RecordNormalize(ctx, true)
	r.e.logger.DebugContext(ctx, "cleared legacy compression attribute", slog.String("dir", dir))
}

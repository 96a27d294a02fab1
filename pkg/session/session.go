// Package session tracks one run of the engine over a root path: its
// counters, its final status, and the shared cancellation signal.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

// Session states.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusAborted   Status = "aborted"
)

// Counters are updated concurrently by the walker and the workers.
type Counters struct {
	Scanned             atomic.Int64
	SkippedUnchanged    atomic.Int64
	SkippedExtension    atomic.Int64
	SkippedInaccessible atomic.Int64
	Compressed          atomic.Int64
	Failed              atomic.Int64
	DirsNormalized      atomic.Int64
	NormalizeFailed     atomic.Int64
	BytesScanned        atomic.Int64
	BytesInvoked        atomic.Int64
}

// Session is one execution of the engine.
type Session struct {
	Root     string
	Start    time.Time
	Counters Counters

	mu     sync.Mutex
	end    time.Time
	status Status
	err    error
}

// New starts a session over root.
func New(root string) *Session {
	return &Session{
		Root:   root,
		Start:  time.Now(),
		status: StatusRunning,
	}
}

// Finish finalizes the session once. Later calls are ignored so the first
// terminal status wins.
func (s *Session) Finish(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return
	}

	s.status = status
	s.err = err
	s.end = time.Now()
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Err returns the error that aborted the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Summary is a point-in-time copy of a session, suitable for rendering.
type Summary struct {
	Root                string        `json:"root"                 yaml:"root"`
	Status              Status        `json:"status"               yaml:"status"`
	Error               string        `json:"error,omitempty"      yaml:"error,omitempty"`
	Start               time.Time     `json:"start"                yaml:"start"`
	End                 time.Time     `json:"end"                  yaml:"end"`
	Duration            time.Duration `json:"duration_ns"          yaml:"duration"`
	Scanned             int64         `json:"scanned"              yaml:"scanned"`
	SkippedUnchanged    int64         `json:"skipped_unchanged"    yaml:"skipped_unchanged"`
	SkippedExtension    int64         `json:"skipped_extension"    yaml:"skipped_extension"`
	SkippedInaccessible int64         `json:"skipped_inaccessible" yaml:"skipped_inaccessible"`
	Compressed          int64         `json:"compressed"           yaml:"compressed"`
	Failed              int64         `json:"failed"               yaml:"failed"`
	DirsNormalized      int64         `json:"dirs_normalized"      yaml:"dirs_normalized"`
	NormalizeFailed     int64         `json:"normalize_failed"     yaml:"normalize_failed"`
	BytesScanned        int64         `json:"bytes_scanned"        yaml:"bytes_scanned"`
	BytesInvoked        int64         `json:"bytes_invoked"        yaml:"bytes_invoked"`
}

// Summary snapshots the session. A running session reports the time elapsed so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	status, end, err := s.status, s.end, s.err
	s.mu.Unlock()

	if end.IsZero() {
		end = time.Now()
	}

	sum := Summary{
		Root:                s.Root,
		Status:              status,
		Start:               s.Start,
		End:                 end,
		Duration:            end.Sub(s.Start),
		Scanned:             s.Counters.Scanned.Load(),
		SkippedUnchanged:    s.Counters.SkippedUnchanged.Load(),
		SkippedExtension:    s.Counters.SkippedExtension.Load(),
		SkippedInaccessible: s.Counters.SkippedInaccessible.Load(),
		Compressed:          s.Counters.Compressed.Load(),
		Failed:              s.Counters.Failed.Load(),
		DirsNormalized:      s.Counters.DirsNormalized.Load(),
		NormalizeFailed:     s.Counters.NormalizeFailed.Load(),
		BytesScanned:        s.Counters.BytesScanned.Load(),
		BytesInvoked:        s.Counters.BytesInvoked.Load(),
	}

	if err != nil {
		sum.Error = err.Error()
	}

	return sum
}

// Decided is the number of files that reached a decision.
func (s Summary) Decided() int64 {
	return s.SkippedUnchanged + s.SkippedExtension + s.Compressed + s.Failed
}

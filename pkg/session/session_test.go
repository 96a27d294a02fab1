package session_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/SephirothFFKH/LZXAuto/pkg/session"
)

func TestController_CancelIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := session.NewController()
	assert.False(t, ctrl.Cancelled())

	select {
	case <-ctrl.Done():
		t.Fatal("done closed before cancel")
	default:
	}

	assert.True(t, ctrl.Cancel())
	assert.False(t, ctrl.Cancel())
	assert.True(t, ctrl.Cancelled())

	select {
	case <-ctrl.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after cancel")
	}
}

func TestController_ConcurrentCancelTriggersOnce(t *testing.T) {
	t.Parallel()

	ctrl := session.NewController()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		triggered int
	)

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if ctrl.Cancel() {
				mu.Lock()
				triggered++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, triggered)
}

func TestSession_FirstFinishWins(t *testing.T) {
	t.Parallel()

	s := session.New("/data")
	assert.Equal(t, session.StatusRunning, s.Status())

	s.Counters.Scanned.Add(3)
	s.Counters.Compressed.Add(1)
	s.Counters.SkippedUnchanged.Add(1)
	s.Counters.SkippedExtension.Add(1)

	s.Finish(session.StatusCancelled, nil)
	s.Finish(session.StatusAborted, errors.New("late"))

	sum := s.Summary()
	assert.Equal(t, session.StatusCancelled, sum.Status)
	assert.Empty(t, sum.Error)
	require.NoError(t, s.Err())
	assert.Equal(t, "/data", sum.Root)
	assert.Equal(t, int64(3), sum.Scanned)
	assert.Equal(t, int64(3), sum.Decided())
	assert.False(t, sum.End.Before(sum.Start))
	assert.Equal(t, sum.End.Sub(sum.Start), sum.Duration)
}

func TestSession_AbortCarriesError(t *testing.T) {
	t.Parallel()

	s := session.New("/data")
	s.Finish(session.StatusAborted, errors.New("primitive gone"))

	assert.Equal(t, "primitive gone", s.Summary().Error)
	require.EqualError(t, s.Err(), "primitive gone")
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]session.Format{
		"":     session.FormatText,
		"TEXT": session.FormatText,
		"json": session.FormatJSON,
		"yaml": session.FormatYAML,
		"yml":  session.FormatYAML,
	}

	for in, want := range cases {
		got, err := session.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := session.ParseFormat("xml")
	require.ErrorIs(t, err, session.ErrUnknownFormat)
}

func finishedSummary() session.Summary {
	s := session.New("/srv/files")
	s.Counters.Scanned.Add(1234)
	s.Counters.Compressed.Add(1000)
	s.Counters.Failed.Add(2)
	s.Counters.BytesScanned.Add(5 << 20)
	s.Counters.BytesInvoked.Add(1 << 20)
	s.Finish(session.StatusCompleted, nil)

	return s.Summary()
}

func TestRender_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, session.Render(&buf, finishedSummary(), session.FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "completed", decoded["status"])
	assert.InDelta(t, 1234, decoded["scanned"], 0)
	assert.InDelta(t, 2, decoded["failed"], 0)
	assert.NotContains(t, decoded, "error")
}

func TestRender_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, session.Render(&buf, finishedSummary(), session.FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "completed", decoded["status"])
	assert.Equal(t, 1000, decoded["compressed"])
	assert.Equal(t, "/srv/files", decoded["root"])
}

func TestRender_Text(t *testing.T) { //nolint:paralleltest // mutates color.NoColor.
	color.NoColor = true //nolint:reassign // deterministic output.

	var buf bytes.Buffer
	require.NoError(t, session.Render(&buf, finishedSummary(), session.FormatText))

	out := buf.String()
	assert.Contains(t, out, "Session completed: /srv/files")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "5.2 MB")
	assert.Contains(t, out, "Skipped (inaccessible)")
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := session.Render(&bytes.Buffer{}, session.Summary{}, session.Format("xml"))
	require.ErrorIs(t, err, session.ErrUnknownFormat)
}

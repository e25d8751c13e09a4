package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/timeutil"
)

func newRunOrchestrator(t *testing.T, rec Recognizer, clock timeutil.Clock) (*Orchestrator, *results.Store) {
	t.Helper()
	store := results.NewStore()
	o, err := New(Config{}, Deps{
		Vehicles: &scriptedDetector{all: []alpr.Detection{
			{Box: alpr.NewBox(0, 0, 100, 100), Score: 0.9, ClassID: alpr.ClassCar},
		}},
		Tracker: &fixedTracker{tracks: []alpr.TrackedVehicle{{Box: alpr.NewBox(0, 0, 100, 100), TrackID: 5}}},
		Plates: &scriptedDetector{all: []alpr.Detection{
			{Box: alpr.NewBox(10, 80, 40, 95), Score: 0.9},
		}},
		Enhance:    identityEnhance,
		Recognizer: rec,
		Store:      store,
		Clock:      clock,
	})
	require.NoError(t, err)
	return o, store
}

func TestRun_ExhaustsSource(t *testing.T) {
	rec := &queuedRecognizer{responses: [][]alpr.TextCandidate{{candidate("AB12CDE", 0.87)}}}
	o, store := newRunOrchestrator(t, rec, nil)

	summary, err := o.Run(context.Background(), blankFrames(3, 160, 120), 0)
	require.NoError(t, err)
	assert.Equal(t, StopEndOfStream, summary.Stop)
	assert.Equal(t, 3, summary.Frames)
	assert.Equal(t, 3, summary.Stored)
	assert.Equal(t, 3, summary.ByStatus[StatusStored])
	assert.Equal(t, 3, summary.Candidates())
	assert.Equal(t, []int{0, 1, 2}, store.Frames())
	require.Len(t, summary.PerFrame, 3)
	assert.Equal(t, FrameStats{Frame: 2, Vehicles: 1, Tracks: 1, Candidates: 1, Stored: 1}, summary.PerFrame[2])
}

func TestRun_MaxFrames(t *testing.T) {
	rec := &queuedRecognizer{responses: [][]alpr.TextCandidate{{candidate("AB12CDE", 0.87)}}}
	o, store := newRunOrchestrator(t, rec, nil)
	src := blankFrames(10, 160, 120)

	summary, err := o.Run(context.Background(), src, 4)
	require.NoError(t, err)
	assert.Equal(t, StopFrameLimit, summary.Stop)
	assert.Equal(t, 4, summary.Frames)
	assert.Equal(t, 4, src.Read(), "no frame beyond the limit is read")
	assert.Equal(t, []int{0, 1, 2, 3}, store.Frames())
}

func TestRun_CancelledBetweenFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &cancellingRecognizer{cancel: cancel}
	o, store := newRunOrchestrator(t, rec, nil)

	summary, err := o.Run(ctx, blankFrames(5, 160, 120), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, summary.Stop)
	// The frame in flight when cancel fired still completes and is stored.
	assert.Equal(t, 1, summary.Frames)
	assert.Equal(t, 1, store.Len())
}

func TestRun_CollaboratorFailureStops(t *testing.T) {
	rec := &failingAfter{ok: candidate("AB12CDE", 0.87), n: 2}
	o, store := newRunOrchestrator(t, rec, nil)

	summary, err := o.Run(context.Background(), blankFrames(5, 160, 120), 0)
	var ce *CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Frame)
	assert.Equal(t, StopFailed, summary.Stop)
	assert.Equal(t, 2, summary.Frames)
	assert.Equal(t, []int{0, 1}, store.Frames())
}

func TestRun_SourceFailure(t *testing.T) {
	rec := &queuedRecognizer{}
	o, _ := newRunOrchestrator(t, rec, nil)

	_, err := o.Run(context.Background(), failingSource{}, 0)
	var ce *CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, StageSource, ce.Stage)
}

func TestRun_UsesClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	rec := &advancingRecognizer{clock: clock, step: 250 * time.Millisecond}
	o, _ := newRunOrchestrator(t, rec, clock)

	summary, err := o.Run(context.Background(), blankFrames(2, 160, 120), 0)
	require.NoError(t, err)
	assert.Equal(t, start, summary.Started)
	assert.Equal(t, 500*time.Millisecond, summary.Duration())
}

func TestRun_LogsToDiagStream(t *testing.T) {
	var diag bytes.Buffer
	SetLogWriters(nil, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	rec := &queuedRecognizer{responses: [][]alpr.TextCandidate{{}}}
	o, _ := newRunOrchestrator(t, rec, nil)
	_, err := o.Run(context.Background(), blankFrames(1, 160, 120), 0)
	require.NoError(t, err)

	assert.Contains(t, diag.String(), "skipped: no_text")
	assert.Contains(t, diag.String(), "run stopped (end_of_stream)")
}

func TestSetLogLevel(t *testing.T) {
	defer SetLogWriters(nil, nil, nil)
	tests := []struct {
		level Level
		diag  bool
		trace bool
	}{
		{LevelOps, false, false},
		{LevelDiag, true, false},
		{LevelTrace, true, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		SetLogLevel(&buf, tt.level)
		opsf("ops line")
		diagf("diag line")
		tracef("trace line")
		out := buf.String()
		assert.Contains(t, out, "ops line")
		assert.Equal(t, tt.diag, strings.Contains(out, "diag line"), "level %d", tt.level)
		assert.Equal(t, tt.trace, strings.Contains(out, "[pipeline] trace "), "level %d", tt.level)
	}
}

type cancellingRecognizer struct {
	cancel context.CancelFunc
}

func (r *cancellingRecognizer) Recognize(ctx context.Context, _ *frames.Image) ([]alpr.TextCandidate, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []alpr.TextCandidate{candidate("AB12CDE", 0.87)}, nil
}

type advancingRecognizer struct {
	clock *timeutil.MockClock
	step  time.Duration
}

func (r *advancingRecognizer) Recognize(context.Context, *frames.Image) ([]alpr.TextCandidate, error) {
	r.clock.Advance(r.step)
	return []alpr.TextCandidate{candidate("AB12CDE", 0.87)}, nil
}

type failingSource struct{}

func (failingSource) Next(context.Context) (*frames.Frame, error) { return nil, errBoom }
func (failingSource) Close() error                               { return nil }

package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// StopReason says why Run stopped reading frames.
type StopReason string

const (
	StopEndOfStream StopReason = "end_of_stream"
	StopFrameLimit  StopReason = "frame_limit"
	StopCancelled   StopReason = "cancelled"
	StopFailed      StopReason = "failed"
)

// FrameStats is the per-frame slice of a FrameReport kept for the run.
type FrameStats struct {
	Frame      int
	Vehicles   int
	Tracks     int
	Candidates int
	Stored     int
}

// RunSummary describes a completed or interrupted run.
type RunSummary struct {
	Frames   int
	ByStatus map[Status]int
	Stored   int // entries in the results store at the end of the run
	PerFrame []FrameStats
	Started  time.Time
	Finished time.Time
	Stop     StopReason
}

// Duration returns the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Candidates returns the number of plate candidates seen.
func (s RunSummary) Candidates() int {
	n := 0
	for _, c := range s.ByStatus {
		n += c
	}
	return n
}

func (s *RunSummary) add(r FrameReport) {
	s.Frames++
	for _, c := range r.Candidates {
		s.ByStatus[c.Status]++
	}
	s.PerFrame = append(s.PerFrame, FrameStats{
		Frame:      r.Frame,
		Vehicles:   r.Vehicles,
		Tracks:     r.Tracks,
		Candidates: len(r.Candidates),
		Stored:     r.Stored,
	})
}

// Run pulls frames from src until it is exhausted, maxFrames frames have
// been processed (maxFrames <= 0 means no limit), ctx is cancelled, or a
// collaborator fails. Cancellation is only observed between frames. On
// cancellation the summary is returned with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, src frames.Source, maxFrames int) (RunSummary, error) {
	clock := o.deps.Clock
	summary := RunSummary{ByStatus: make(map[Status]int), Started: clock.Now()}
	finish := func(reason StopReason, err error) (RunSummary, error) {
		summary.Stop = reason
		summary.Stored = o.deps.Store.Len()
		summary.Finished = clock.Now()
		diagf("run stopped (%s) after %d frames, %d stored in %s", reason, summary.Frames, summary.Stored, summary.Duration())
		return summary, err
	}

	for {
		if maxFrames > 0 && summary.Frames >= maxFrames {
			return finish(StopFrameLimit, nil)
		}
		if err := ctx.Err(); err != nil {
			return finish(StopCancelled, err)
		}

		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return finish(StopEndOfStream, nil)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(StopCancelled, ctxErr)
			}
			opsf("frame source failed after %d frames: %v", summary.Frames, err)
			return finish(StopFailed, &CollaboratorError{Stage: StageSource, Frame: summary.Frames, Err: err})
		}

		// The frame is processed to completion with a context that is not
		// cancelled by the caller, so a stop request lands on a boundary.
		report, err := o.ProcessFrame(context.WithoutCancel(ctx), f)
		if err != nil {
			opsf("run aborted: %v", err)
			return finish(StopFailed, err)
		}
		summary.add(report)
	}
}

package pipeline

import (
	"context"
	"errors"
	"image"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/alpr/results"
)

// scriptedDetector returns per-frame detections keyed by frame index.
type scriptedDetector struct {
	byFrame map[int][]alpr.Detection
	all     []alpr.Detection // used when byFrame has no entry
	failOn  map[int]error
	calls   int
}

func (d *scriptedDetector) Detect(_ context.Context, f *frames.Frame) ([]alpr.Detection, error) {
	d.calls++
	if err := d.failOn[f.Index]; err != nil {
		return nil, err
	}
	if dets, ok := d.byFrame[f.Index]; ok {
		return dets, nil
	}
	return d.all, nil
}

// fixedTracker reports the same tracks every frame and records its input.
type fixedTracker struct {
	tracks []alpr.TrackedVehicle
	err    error
	inputs [][]alpr.Detection
}

func (t *fixedTracker) Update(_ context.Context, dets []alpr.Detection) ([]alpr.TrackedVehicle, error) {
	t.inputs = append(t.inputs, dets)
	return t.tracks, t.err
}

// queuedRecognizer returns responses in call order; once exhausted it
// repeats the last one.
type queuedRecognizer struct {
	responses [][]alpr.TextCandidate
	err       error
	sizes     []image.Point
}

func (r *queuedRecognizer) Recognize(_ context.Context, img *frames.Image) ([]alpr.TextCandidate, error) {
	r.sizes = append(r.sizes, image.Pt(img.Width, img.Height))
	if r.err != nil {
		return nil, r.err
	}
	if len(r.responses) == 0 {
		return nil, nil
	}
	i := len(r.sizes) - 1
	if i >= len(r.responses) {
		i = len(r.responses) - 1
	}
	return r.responses[i], nil
}

func identityEnhance(crop *frames.Image) (*frames.Image, error) {
	if crop.Empty() {
		return nil, &alpr.DegenerateCropError{Width: crop.Width, Height: crop.Height}
	}
	return crop.Clone(), nil
}

type recordingSink struct {
	frames  []int
	entries [][]results.Entry
	err     error
}

func (s *recordingSink) FrameCommitted(_ context.Context, frame int, entries []results.Entry) error {
	s.frames = append(s.frames, frame)
	s.entries = append(s.entries, entries)
	return s.err
}

var errBoom = errors.New("boom")

func candidate(text string, conf float64) alpr.TextCandidate {
	return alpr.TextCandidate{
		Polygon:    []image.Point{{0, 0}, {10, 0}, {10, 5}, {0, 5}},
		Text:       text,
		Confidence: conf,
	}
}

func blankFrames(n, w, h int) *frames.SliceSource {
	imgs := make([]*frames.Image, n)
	for i := range imgs {
		imgs[i] = frames.NewImage(w, h)
	}
	return frames.NewSliceSource(imgs...)
}

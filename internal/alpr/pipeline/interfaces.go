package pipeline

import (
	"context"
	"reflect"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/alpr/results"
)

// Detector finds objects in a frame. Scores are in [0,1].
type Detector interface {
	Detect(ctx context.Context, f *frames.Frame) ([]alpr.Detection, error)
}

// Tracker is the stateful multi-object tracker. It is called exactly once
// per frame with that frame's filtered vehicle detections, possibly empty.
type Tracker interface {
	Update(ctx context.Context, dets []alpr.Detection) ([]alpr.TrackedVehicle, error)
}

// Recognizer reads text from an enhanced plate image. Candidate order is
// defined by the recognizer; the list may be empty.
type Recognizer interface {
	Recognize(ctx context.Context, img *frames.Image) ([]alpr.TextCandidate, error)
}

// Associator resolves which tracked vehicle carries a plate, returning
// alpr.Unassigned when none does.
type Associator interface {
	Associate(plate alpr.Box, vehicles []alpr.TrackedVehicle) int
}

// EnhanceFunc turns a raw plate crop into a recognition-ready image. It
// returns *alpr.DegenerateCropError for a crop without pixels.
type EnhanceFunc func(crop *frames.Image) (*frames.Image, error)

// Sink is notified after a frame's outcomes have been committed to the
// store. entries holds every stored entry of that frame. A sink error is
// logged and does not stop the run.
type Sink interface {
	FrameCommitted(ctx context.Context, frame int, entries []results.Entry) error
}

// isNilInterface reports whether v is nil or an interface holding a typed
// nil pointer.
func isNilInterface(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

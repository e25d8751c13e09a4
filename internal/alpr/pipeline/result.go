package pipeline

import (
	"fmt"

	"github.com/banshee-data/plate.report/internal/alpr"
)

// Status is the fate of one plate candidate.
type Status int

const (
	// StatusStored means the outcome was staged for the store.
	StatusStored Status = iota
	// StatusUnassigned means no tracked vehicle contained the plate.
	StatusUnassigned
	// StatusDegenerateCrop means the clipped plate box had no pixels.
	StatusDegenerateCrop
	// StatusNoText means the recognizer returned nothing usable.
	StatusNoText
	// StatusLowConfidence means the first candidate fell below the
	// configured minimum confidence.
	StatusLowConfidence
)

var statusNames = [...]string{
	StatusStored:         "stored",
	StatusUnassigned:     "unassigned",
	StatusDegenerateCrop: "degenerate_crop",
	StatusNoText:         "no_text",
	StatusLowConfidence:  "low_confidence",
}

// AllStatuses lists every Status in declaration order.
var AllStatuses = []Status{StatusStored, StatusUnassigned, StatusDegenerateCrop, StatusNoText, StatusLowConfidence}

func (s Status) String() string {
	if int(s) >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Skipped reports whether the candidate was dropped.
func (s Status) Skipped() bool { return s != StatusStored }

// CandidateResult records what happened to one plate candidate.
type CandidateResult struct {
	Plate      alpr.Detection
	TrackID    int // alpr.Unassigned when no vehicle owns the plate
	Status     Status
	Text       string
	Confidence float64
}

// FrameReport summarises one processed frame.
type FrameReport struct {
	Frame      int
	Vehicles   int // detections kept after the class filter
	Tracks     int
	Candidates []CandidateResult
	Stored     int // store entries for the frame after commit
}

// Count returns how many candidates ended with status s.
func (r FrameReport) Count(s Status) int {
	n := 0
	for _, c := range r.Candidates {
		if c.Status == s {
			n++
		}
	}
	return n
}

// CollaboratorError is a failure of an external detector, tracker,
// recognizer or the enhancement transform. It ends the run.
type CollaboratorError struct {
	Stage string
	Frame int
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Stage names used in CollaboratorError.
const (
	StageVehicleDetector = "vehicle detector"
	StageTracker         = "tracker"
	StagePlateDetector   = "plate detector"
	StageEnhance         = "enhance"
	StageRecognizer      = "recognizer"
	StageSource          = "frame source"
)

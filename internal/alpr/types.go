package alpr

import (
	"fmt"
	"image"
)

// Unassigned is the track identity given to a plate that no tracked vehicle
// contains.
const Unassigned = -1

// PlateOnlyTrackID is the pseudo track identity every plate is attributed to
// when vehicle association is disabled.
const PlateOnlyTrackID = 1

// Detection is a single detector output.
type Detection struct {
	Box     Box     `json:"box"`
	Score   float64 `json:"score"`
	ClassID int     `json:"class_id"`
}

// TrackedVehicle is a vehicle box carrying the identity the tracker assigned.
type TrackedVehicle struct {
	Box     Box `json:"box"`
	TrackID int `json:"track_id"`
}

// TextCandidate is one recognizer hypothesis for an image: the text, its
// confidence in [0,1] and the polygon enclosing it in image coordinates.
type TextCandidate struct {
	Polygon    []image.Point `json:"polygon,omitempty"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
}

// Mode controls whether plates are attributed to tracked vehicles.
type Mode string

const (
	// ModeWithVehicleAssociation runs the vehicle detector and tracker and
	// keeps only plates contained by a tracked vehicle.
	ModeWithVehicleAssociation Mode = "with-vehicle-association"
	// ModePlateOnly skips vehicle detection and attributes every plate to
	// PlateOnlyTrackID.
	ModePlateOnly Mode = "plate-only"
)

// ParseMode validates a mode name. An empty name selects
// ModeWithVehicleAssociation.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeWithVehicleAssociation:
		return ModeWithVehicleAssociation, nil
	case ModePlateOnly:
		return ModePlateOnly, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeWithVehicleAssociation, ModePlateOnly)
}

// DegenerateCropError reports a crop with no pixels. It is fatal to the plate
// candidate only.
type DegenerateCropError struct {
	Width  int
	Height int
}

func (e *DegenerateCropError) Error() string {
	return fmt.Sprintf("degenerate crop %dx%d", e.Width, e.Height)
}

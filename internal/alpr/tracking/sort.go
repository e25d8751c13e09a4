// Package tracking assigns stable integer identities to vehicle detections
// across consecutive frames.
package tracking

import (
	"context"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/monitoring"
)

var logf = monitoring.Component("tracking")

// Config holds the SORT tracker parameters.
type Config struct {
	// MaxAge is how many consecutive frames a track survives without a
	// matching detection before it is dropped.
	MaxAge int
	// MinHits is the number of consecutive matches before a track is
	// reported. During the first MinHits frames of a run tracks are
	// reported immediately.
	MinHits int
	// IoUThreshold is the minimum overlap between a predicted track box and
	// a detection for the pair to be matched.
	IoUThreshold float64
}

// DefaultConfig returns the reference SORT parameters.
func DefaultConfig() Config {
	return Config{MaxAge: 1, MinHits: 3, IoUThreshold: 0.3}
}

// velocityGain smooths the per-frame centre and size velocity estimate.
const velocityGain = 0.5

type track struct {
	id          int
	box         alpr.Box
	vx          float64 // centre velocity, px/frame
	vy          float64
	vw          float64 // size velocity, px/frame
	vh          float64
	hits        int
	streak      int
	sinceUpdate int
}

// predict extrapolates the last measured box to the current frame. It is
// called after sinceUpdate has been advanced for the frame.
func (t *track) predict() alpr.Box {
	steps := float64(t.sinceUpdate)
	cx, cy := t.box.Center()
	cx += t.vx * steps
	cy += t.vy * steps
	w := max(t.box.Width()+t.vw*steps, 0)
	h := max(t.box.Height()+t.vh*steps, 0)
	return alpr.NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2)
}

func (t *track) update(det alpr.Box) {
	det = det.Normalize()
	steps := float64(t.sinceUpdate)
	pcx, pcy := t.box.Center()
	ncx, ncy := det.Center()
	t.vx += velocityGain * ((ncx-pcx)/steps - t.vx)
	t.vy += velocityGain * ((ncy-pcy)/steps - t.vy)
	t.vw += velocityGain * ((det.Width()-t.box.Width())/steps - t.vw)
	t.vh += velocityGain * ((det.Height()-t.box.Height())/steps - t.vh)
	t.box = det
	t.hits++
	t.streak++
	t.sinceUpdate = 0
}

// SORT is a simple online tracker: constant-velocity box prediction and
// IoU-based Hungarian matching. Track ids start at 1 and are never reused
// within the lifetime of a SORT value. A SORT is not safe for concurrent
// use.
type SORT struct {
	cfg    Config
	tracks []*track
	nextID int
	frames int
}

// NewSORT returns a tracker using cfg. Non-positive fields fall back to
// DefaultConfig values.
func NewSORT(cfg Config) *SORT {
	def := DefaultConfig()
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.MinHits <= 0 {
		cfg.MinHits = def.MinHits
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = def.IoUThreshold
	}
	return &SORT{cfg: cfg, nextID: 1}
}

// Update advances the tracker by one frame with that frame's detections and
// returns the confirmed tracks that were matched in this frame. An empty
// detection list only ages existing tracks.
func (s *SORT) Update(_ context.Context, dets []alpr.Detection) ([]alpr.TrackedVehicle, error) {
	s.frames++

	predicted := make([]alpr.Box, len(s.tracks))
	for i, t := range s.tracks {
		if t.sinceUpdate > 0 {
			t.streak = 0
		}
		t.sinceUpdate++
		predicted[i] = t.predict()
	}

	matchedDet := make([]bool, len(dets))
	if len(dets) > 0 && len(s.tracks) > 0 {
		cost := make([][]float64, len(dets))
		for i, d := range dets {
			cost[i] = make([]float64, len(s.tracks))
			for j := range s.tracks {
				iou := d.Box.IoU(predicted[j])
				if iou < s.cfg.IoUThreshold {
					cost[i][j] = forbidden
					continue
				}
				cost[i][j] = 1 - iou
			}
		}
		for i, j := range hungarianAssign(cost) {
			if j < 0 {
				continue
			}
			s.tracks[j].update(dets[i].Box)
			matchedDet[i] = true
		}
	}

	for i, d := range dets {
		if matchedDet[i] {
			continue
		}
		s.tracks = append(s.tracks, &track{
			id:  s.nextID,
			box: d.Box.Normalize(),
		})
		s.nextID++
	}

	var out []alpr.TrackedVehicle
	alive := s.tracks[:0]
	for _, t := range s.tracks {
		if t.sinceUpdate == 0 && (t.streak >= s.cfg.MinHits || s.frames <= s.cfg.MinHits) {
			out = append(out, alpr.TrackedVehicle{Box: t.box, TrackID: t.id})
		}
		if t.sinceUpdate > s.cfg.MaxAge {
			logf("dropping track %d after %d missed frames", t.id, t.sinceUpdate)
			continue
		}
		alive = append(alive, t)
	}
	s.tracks = alive
	return out, nil
}

// Active returns the number of tracks currently held, reported or not.
func (s *SORT) Active() int { return len(s.tracks) }

// Package pipeline drives the per-frame plate reading loop: vehicle
// detection and tracking, plate detection, plate to vehicle association,
// cropping, enhancement, recognition and storage.
//
// Processing is strictly sequential. A frame is fully processed before the
// next is read, and outcomes reach the results store only when their frame
// completes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/associate"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/timeutil"
)

// Config holds the orchestrator switches.
type Config struct {
	Mode alpr.Mode
	// VehicleClasses are the detector class ids kept as vehicles. Nil
	// selects alpr.DefaultVehicleClasses.
	VehicleClasses []int
	// MinConfidence drops recognitions below this confidence. Zero keeps
	// every recognition with text.
	MinConfidence float64
}

// Deps are the collaborators of an Orchestrator. Vehicles and Tracker are
// only required with alpr.ModeWithVehicleAssociation.
type Deps struct {
	Vehicles   Detector
	Tracker    Tracker
	Plates     Detector
	Associator Associator // defaults to zero-tolerance containment
	Enhance    EnhanceFunc
	Recognizer Recognizer
	Store      *results.Store
	Clock      timeutil.Clock // defaults to the real clock
	Sinks      []Sink
}

// Orchestrator processes frames one at a time. It keeps no state between
// frames beyond what its tracker holds.
type Orchestrator struct {
	cfg     Config
	classes map[int]struct{}
	deps    Deps
}

// New validates cfg and deps and returns an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	mode, err := alpr.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("min confidence must be in [0,1], got %g", cfg.MinConfidence)
	}
	if cfg.VehicleClasses == nil {
		cfg.VehicleClasses = alpr.DefaultVehicleClasses
	}

	if isNilInterface(deps.Plates) {
		return nil, errors.New("plate detector is required")
	}
	if deps.Enhance == nil {
		return nil, errors.New("enhance function is required")
	}
	if isNilInterface(deps.Recognizer) {
		return nil, errors.New("recognizer is required")
	}
	if deps.Store == nil {
		return nil, errors.New("results store is required")
	}
	if mode == alpr.ModeWithVehicleAssociation {
		if isNilInterface(deps.Vehicles) {
			return nil, errors.New("vehicle detector is required with vehicle association")
		}
		if isNilInterface(deps.Tracker) {
			return nil, errors.New("tracker is required with vehicle association")
		}
	}
	if isNilInterface(deps.Associator) {
		deps.Associator = associate.Associator{}
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	sinks := deps.Sinks[:0:0]
	for _, s := range deps.Sinks {
		if !isNilInterface(s) {
			sinks = append(sinks, s)
		}
	}
	deps.Sinks = sinks

	return &Orchestrator{
		cfg:     cfg,
		classes: alpr.ClassSet(cfg.VehicleClasses),
		deps:    deps,
	}, nil
}

// Store returns the results store the orchestrator writes to.
func (o *Orchestrator) Store() *results.Store { return o.deps.Store }

// Mode returns the configured association mode.
func (o *Orchestrator) Mode() alpr.Mode { return o.cfg.Mode }

// ProcessFrame runs every stage for one frame. Per-candidate problems are
// recorded in the report and processing continues with the next
// candidate. A collaborator failure is returned as *CollaboratorError and
// nothing from the frame is stored.
func (o *Orchestrator) ProcessFrame(ctx context.Context, f *frames.Frame) (FrameReport, error) {
	report := FrameReport{Frame: f.Index}

	var tracks []alpr.TrackedVehicle
	if o.cfg.Mode == alpr.ModeWithVehicleAssociation {
		dets, err := o.deps.Vehicles.Detect(ctx, f)
		if err != nil {
			return report, &CollaboratorError{Stage: StageVehicleDetector, Frame: f.Index, Err: err}
		}
		vehicles := alpr.FilterClasses(dets, o.classes)
		report.Vehicles = len(vehicles)

		tracks, err = o.deps.Tracker.Update(ctx, vehicles)
		if err != nil {
			return report, &CollaboratorError{Stage: StageTracker, Frame: f.Index, Err: err}
		}
		report.Tracks = len(tracks)
	}

	plates, err := o.deps.Plates.Detect(ctx, f)
	if err != nil {
		return report, &CollaboratorError{Stage: StagePlateDetector, Frame: f.Index, Err: err}
	}

	pending := results.NewPending(f.Index)
	for i, p := range plates {
		res, err := o.processCandidate(ctx, f, p, tracks, pending)
		if err != nil {
			return report, err
		}
		report.Candidates = append(report.Candidates, res)
		if res.Status.Skipped() {
			diagf("frame %d plate %d skipped: %s (track %d, score %.2f)", f.Index, i, res.Status, res.TrackID, p.Score)
		} else {
			tracef("frame %d plate %d track %d text=%q conf=%.3f", f.Index, i, res.TrackID, res.Text, res.Confidence)
		}
	}

	entries := pending.Commit(o.deps.Store)
	report.Stored = len(entries)
	diagf("frame %d: vehicles=%d tracks=%d plates=%d stored=%d", f.Index, report.Vehicles, report.Tracks, len(plates), report.Stored)

	if len(entries) > 0 {
		for _, s := range o.deps.Sinks {
			if err := s.FrameCommitted(ctx, f.Index, entries); err != nil {
				opsf("frame %d: sink %T failed: %v", f.Index, s, err)
			}
		}
	}
	return report, nil
}

func (o *Orchestrator) processCandidate(ctx context.Context, f *frames.Frame, p alpr.Detection, tracks []alpr.TrackedVehicle, pending *results.Pending) (CandidateResult, error) {
	res := CandidateResult{Plate: p, TrackID: alpr.Unassigned}

	if o.cfg.Mode == alpr.ModePlateOnly {
		res.TrackID = alpr.PlateOnlyTrackID
	} else {
		res.TrackID = o.deps.Associator.Associate(p.Box, tracks)
		if res.TrackID == alpr.Unassigned {
			res.Status = StatusUnassigned
			return res, nil
		}
	}

	rect := p.Box.Clip(f.Image.Width, f.Image.Height)
	if rect.Empty() {
		res.Status = StatusDegenerateCrop
		return res, nil
	}
	crop, err := f.Image.Crop(rect)
	if err != nil {
		if errors.Is(err, frames.ErrEmptyCrop) {
			res.Status = StatusDegenerateCrop
			return res, nil
		}
		return res, &CollaboratorError{Stage: StageEnhance, Frame: f.Index, Err: err}
	}

	enhanced, err := o.deps.Enhance(crop)
	if err != nil {
		var dce *alpr.DegenerateCropError
		if errors.As(err, &dce) {
			res.Status = StatusDegenerateCrop
			return res, nil
		}
		return res, &CollaboratorError{Stage: StageEnhance, Frame: f.Index, Err: err}
	}

	cands, err := o.deps.Recognizer.Recognize(ctx, enhanced)
	if err != nil {
		return res, &CollaboratorError{Stage: StageRecognizer, Frame: f.Index, Err: err}
	}
	if len(cands) == 0 {
		res.Status = StatusNoText
		return res, nil
	}

	// The recognizer's first candidate is taken as is; no re-ranking.
	first := cands[0]
	res.Text = strings.TrimSpace(first.Text)
	res.Confidence = first.Confidence
	if res.Text == "" {
		res.Status = StatusNoText
		return res, nil
	}
	if o.cfg.MinConfidence > 0 && first.Confidence < o.cfg.MinConfidence {
		res.Status = StatusLowConfidence
		return res, nil
	}

	pending.Put(res.TrackID, results.Outcome{
		Text:       res.Text,
		Confidence: res.Confidence,
		Crop:       crop,
		Enhanced:   enhanced,
		Polygon:    first.Polygon,
		Plate:      p,
	})
	res.Status = StatusStored
	return res, nil
}

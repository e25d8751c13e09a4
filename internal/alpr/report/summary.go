// Package report turns a finished run into a JSON summary, a PNG plot of
// per-frame activity, and an HTML dashboard.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/plate.report/internal/alpr/pipeline"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/version"
)

// Meta identifies the run being reported.
type Meta struct {
	RunID  string
	Source string
	Mode   string
}

// ConfidenceStats summarises recognizer confidence over stored entries.
type ConfidenceStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// PlateCount is how often one plate text was stored.
type PlateCount struct {
	Text          string  `json:"text"`
	Reads         int     `json:"reads"`
	Tracks        []int   `json:"tracks"`
	MaxConfidence float64 `json:"max_confidence"`
	FirstFrame    int     `json:"first_frame"`
}

// Summary is the machine-readable run report.
type Summary struct {
	Version         string                `json:"version"`
	GitSHA          string                `json:"git_sha"`
	RunID           string                `json:"run_id"`
	Source          string                `json:"source"`
	Mode            string                `json:"mode"`
	StopReason      string                `json:"stop_reason"`
	Started         time.Time             `json:"started"`
	DurationSeconds float64               `json:"duration_seconds"`
	Frames          int                   `json:"frames"`
	Candidates      int                   `json:"candidates"`
	Stored          int                   `json:"stored"`
	ByStatus        map[string]int        `json:"by_status"`
	Confidence      ConfidenceStats       `json:"confidence"`
	Plates          []PlateCount          `json:"plates"`
	PerFrame        []pipeline.FrameStats `json:"-"`
}

// Build assembles the summary of a run from its pipeline summary and the
// final results store.
func Build(meta Meta, run pipeline.RunSummary, store *results.Store) Summary {
	build := version.Current()
	s := Summary{
		Version:         build.Version,
		GitSHA:          build.GitSHA,
		RunID:           meta.RunID,
		Source:          meta.Source,
		Mode:            meta.Mode,
		StopReason:      string(run.Stop),
		Started:         run.Started,
		DurationSeconds: run.Duration().Seconds(),
		Frames:          run.Frames,
		Candidates:      run.Candidates(),
		Stored:          run.Stored,
		ByStatus:        make(map[string]int, len(run.ByStatus)),
		PerFrame:        run.PerFrame,
	}
	for st, n := range run.ByStatus {
		s.ByStatus[st.String()] = n
	}
	if store != nil {
		entries := store.Entries()
		s.Confidence = confidenceStats(entries)
		s.Plates = plateCounts(entries)
	}
	return s
}

func confidenceStats(entries []results.Entry) ConfidenceStats {
	if len(entries) == 0 {
		return ConfidenceStats{}
	}
	xs := make([]float64, len(entries))
	for i, e := range entries {
		xs[i] = e.Outcome.Confidence
	}
	sort.Float64s(xs)

	cs := ConfidenceStats{
		Count:  len(xs),
		Mean:   stat.Mean(xs, nil),
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
	}
	// StdDev is undefined for a single sample.
	if len(xs) > 1 {
		cs.StdDev = stat.StdDev(xs, nil)
	}
	if math.IsNaN(cs.StdDev) {
		cs.StdDev = 0
	}
	return cs
}

// plateCounts groups entries by text, most read first, ties by first frame.
func plateCounts(entries []results.Entry) []PlateCount {
	byText := make(map[string]*PlateCount)
	var order []string
	for _, e := range entries {
		pc, ok := byText[e.Outcome.Text]
		if !ok {
			pc = &PlateCount{Text: e.Outcome.Text, FirstFrame: e.Frame}
			byText[e.Outcome.Text] = pc
			order = append(order, e.Outcome.Text)
		}
		pc.Reads++
		if !containsInt(pc.Tracks, e.TrackID) {
			pc.Tracks = append(pc.Tracks, e.TrackID)
		}
		if e.Outcome.Confidence > pc.MaxConfidence {
			pc.MaxConfidence = e.Outcome.Confidence
		}
	}

	out := make([]PlateCount, 0, len(order))
	for _, text := range order {
		out = append(out, *byText[text])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Reads != out[j].Reads {
			return out[i].Reads > out[j].Reads
		}
		return out[i].FirstFrame < out[j].FirstFrame
	})
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// WriteJSON writes the summary to path, indented.
func (s Summary) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

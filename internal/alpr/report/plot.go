package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/plate.report/internal/alpr/pipeline"
)

var (
	candidateColor = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	storedColor    = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	vehicleColor   = color.RGBA{R: 253, G: 231, B: 37, A: 255}
)

// SavePlot writes a PNG line plot of vehicles, candidates and stored
// entries per frame to path.
func SavePlot(path string, perFrame []pipeline.FrameStats) error {
	if len(perFrame) == 0 {
		return fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = "Plate activity per frame"
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "count"

	vehicles := make(plotter.XYs, 0, len(perFrame))
	candidates := make(plotter.XYs, 0, len(perFrame))
	stored := make(plotter.XYs, 0, len(perFrame))
	for _, f := range perFrame {
		x := float64(f.Frame)
		vehicles = append(vehicles, plotter.XY{X: x, Y: float64(f.Vehicles)})
		candidates = append(candidates, plotter.XY{X: x, Y: float64(f.Candidates)})
		stored = append(stored, plotter.XY{X: x, Y: float64(f.Stored)})
	}

	series := []struct {
		label string
		pts   plotter.XYs
		c     color.Color
	}{
		{"vehicles", vehicles, vehicleColor},
		{"candidates", candidates, candidateColor},
		{"stored", stored, storedColor},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return fmt.Errorf("create %s line: %w", s.label, err)
		}
		line.Color = s.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

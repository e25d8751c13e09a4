// Package annotate writes debug overlays of recognizer output: the
// enhanced plate crop with each recognized polygon outlined and the text
// drawn above it.
package annotate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/banshee-data/plate.report/internal/alpr/cv"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/security"
)

var (
	polygonColor = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	textColor    = color.RGBA{R: 220, G: 0, B: 0, A: 0}
)

const (
	lineThickness = 2
	fontScale     = 0.8
	textMargin    = 32
)

// Draw returns a copy of img with polygon outlined and text written above
// it. A text band is added on top so short crops still fit the label.
func Draw(img *frames.Image, polygon []image.Point, text string) (*frames.Image, error) {
	src, err := cv.ToMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	canvas := gocv.NewMat()
	defer canvas.Close()
	if err := gocv.CopyMakeBorder(src, &canvas, textMargin, 0, 0, 0, gocv.BorderConstant, color.RGBA{}); err != nil {
		return nil, fmt.Errorf("annotate: border: %w", err)
	}

	for i := range polygon {
		a := polygon[i].Add(image.Pt(0, textMargin))
		b := polygon[(i+1)%len(polygon)].Add(image.Pt(0, textMargin))
		if err := gocv.Line(&canvas, a, b, polygonColor, lineThickness); err != nil {
			return nil, fmt.Errorf("annotate: polygon edge %d: %w", i, err)
		}
	}
	if text != "" {
		org := image.Pt(2, textMargin-8)
		if len(polygon) > 0 {
			org.X = polygon[0].X
		}
		if err := gocv.PutText(&canvas, text, org, gocv.FontHersheySimplex, fontScale, textColor, lineThickness); err != nil {
			return nil, fmt.Errorf("annotate: text: %w", err)
		}
	}
	return cv.FromMat(canvas)
}

// Writer saves one overlay PNG per stored entry into Dir. It implements
// the pipeline Sink interface.
type Writer struct {
	Dir string
}

// NewWriter validates dir as an output location and creates it.
func NewWriter(dir string) (*Writer, error) {
	if err := security.ValidateOutputPath(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create annotate dir: %w", err)
	}
	return &Writer{Dir: dir}, nil
}

// FileName is the overlay file name for one entry.
func FileName(frame, trackID int, text string) string {
	return fmt.Sprintf("frame%06d_track%03d_%s.png", frame, trackID, security.SanitizeFilename(text))
}

// FrameCommitted writes an overlay for every entry that carries an image.
func (w *Writer) FrameCommitted(_ context.Context, frame int, entries []results.Entry) error {
	for _, e := range entries {
		img := e.Outcome.Enhanced
		if img.Empty() {
			img = e.Outcome.Crop
		}
		if img.Empty() {
			continue
		}
		out, err := Draw(img, e.Outcome.Polygon, e.Outcome.Text)
		if err != nil {
			return fmt.Errorf("annotate frame %d track %d: %w", frame, e.TrackID, err)
		}
		if err := w.save(FileName(frame, e.TrackID, e.Outcome.Text), out); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) save(name string, img *frames.Image) error {
	m, err := cv.ToMat(img)
	if err != nil {
		return err
	}
	defer m.Close()
	path := filepath.Join(w.Dir, name)
	if ok := gocv.IMWrite(path, m); !ok {
		return fmt.Errorf("write %s failed", path)
	}
	return nil
}

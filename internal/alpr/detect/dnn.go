// Package detect runs single-shot object detectors (YOLOv8-style ONNX
// exports) through the OpenCV DNN module. The same detector type serves the
// vehicle model and the single-class plate model.
package detect

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/cv"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/monitoring"
)

var logf = monitoring.Component("detect")

// Config describes one detector model.
type Config struct {
	Name           string  // used in log lines
	ModelPath      string  // ONNX file
	InputSize      int     // square network input, e.g. 640
	ScoreThreshold float64 // minimum class score kept
	NMSThreshold   float64 // IoU above which overlapping boxes are suppressed
}

// DNN is an OpenCV DNN detector. Inference calls are serialised.
type DNN struct {
	cfg Config
	mu  sync.Mutex
	net gocv.Net
}

// NewDNN loads the model at cfg.ModelPath.
func NewDNN(cfg Config) (*DNN, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("detector %s: input size must be positive, got %d", cfg.Name, cfg.InputSize)
	}
	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("detector %s: failed to load model %q", cfg.Name, cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("detector %s: set backend: %w", cfg.Name, err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("detector %s: set target: %w", cfg.Name, err)
	}
	logf("%s loaded %s (input %d)", cfg.Name, cfg.ModelPath, cfg.InputSize)
	return &DNN{cfg: cfg, net: net}, nil
}

// Detect runs the network on the frame and returns boxes in frame pixel
// coordinates after non-maximum suppression.
func (d *DNN) Detect(ctx context.Context, f *frames.Frame) ([]alpr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil || f.Image.Empty() {
		return nil, fmt.Errorf("detector %s: empty frame", d.cfg.Name)
	}
	img, err := cv.ToMat(f.Image)
	if err != nil {
		return nil, fmt.Errorf("detector %s: %w", d.cfg.Name, err)
	}
	defer img.Close()

	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)
	blob := gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()
	if out.Empty() {
		return nil, fmt.Errorf("detector %s: forward pass produced no output", d.cfg.Name)
	}

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("detector %s: unexpected output rank %v", d.cfg.Name, dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("detector %s: read output: %w", d.cfg.Name, err)
	}

	layout := newOutputLayout(dims[1], dims[2])
	sx := float64(f.Image.Width) / float64(d.cfg.InputSize)
	sy := float64(f.Image.Height) / float64(d.cfg.InputSize)
	dets := decode(data, layout, d.cfg.ScoreThreshold)
	for i := range dets {
		dets[i].Box = dets[i].Box.Scale(sx, sy)
	}
	kept := alpr.SuppressOverlaps(dets, d.cfg.NMSThreshold)
	return kept, nil
}

// Close releases the network.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

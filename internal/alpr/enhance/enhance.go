// Package enhance prepares a raw plate crop for text recognition.
//
// The transform is a fixed sequence with fixed parameters:
//
//  1. 4x Lanczos-4 upscale
//  2. 7x7 Gaussian blur
//  3. non-local means colour denoising (h=9, template 10, search 21)
//  4. CLAHE (clip 7, 25x25 tiles) on the L channel of L*a*b*
//  5. greyscale
//  6. inverted binary Otsu threshold
//  7. inversion, giving dark text on a light background
//  8. greyscale replicated to three channels
package enhance

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/cv"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

const (
	UpscaleFactor      = 4
	BlurKernel         = 7
	DenoiseStrength    = 9
	DenoiseColorH      = 10
	DenoiseTemplateWin = 10
	DenoiseSearchWin   = 21
	CLAHEClipLimit     = 7.0
	CLAHETileGrid      = 25
)

// Stages holds the intermediate images of one transform that tests and the
// overlay tooling inspect. Otsu is the thresholded image before the final
// inversion; Binary is after it. Both are single-channel.
type Stages struct {
	Otsu   gocv.Mat
	Binary gocv.Mat
}

// Close releases the stage matrices.
func (s *Stages) Close() {
	s.Otsu.Close()
	s.Binary.Close()
}

// Enhance runs the transform on crop and returns a new three-channel image
// UpscaleFactor times larger in both axes. It is deterministic and does not
// modify crop. An empty crop yields *alpr.DegenerateCropError.
func Enhance(crop *frames.Image) (*frames.Image, error) {
	out, stages, err := EnhanceStages(crop)
	if err != nil {
		return nil, err
	}
	stages.Close()
	return out, nil
}

// EnhanceStages is Enhance that also returns the threshold stages. The
// caller closes the returned Stages.
func EnhanceStages(crop *frames.Image) (*frames.Image, *Stages, error) {
	if crop == nil {
		return nil, nil, &alpr.DegenerateCropError{}
	}
	if crop.Empty() {
		return nil, nil, &alpr.DegenerateCropError{Width: crop.Width, Height: crop.Height}
	}

	src, err := cv.ToMat(crop)
	if err != nil {
		return nil, nil, fmt.Errorf("enhance: %w", err)
	}
	defer src.Close()

	gray, err := applySteps(src, preThreshold)
	if err != nil {
		return nil, nil, err
	}
	defer gray.Close()

	stages := &Stages{Otsu: gocv.NewMat(), Binary: gocv.NewMat()}
	gocv.Threshold(gray, &stages.Otsu, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
	if stages.Otsu.Empty() {
		stages.Close()
		return nil, nil, fmt.Errorf("enhance: otsu threshold produced an empty image")
	}
	if err := gocv.BitwiseNot(stages.Otsu, &stages.Binary); err != nil {
		stages.Close()
		return nil, nil, fmt.Errorf("enhance: invert: %w", err)
	}

	out, err := cv.FromMat(stages.Binary)
	if err != nil {
		stages.Close()
		return nil, nil, fmt.Errorf("enhance: %w", err)
	}
	return out, stages, nil
}

// step is one OpenCV operation writing src into dst.
type step struct {
	name string
	run  func(src gocv.Mat, dst *gocv.Mat) error
}

// preThreshold runs steps 1 to 5.
var preThreshold = []step{
	{"resize", func(src gocv.Mat, dst *gocv.Mat) error {
		return gocv.Resize(src, dst, image.Point{}, UpscaleFactor, UpscaleFactor, gocv.InterpolationLanczos4)
	}},
	{"blur", func(src gocv.Mat, dst *gocv.Mat) error {
		return gocv.GaussianBlur(src, dst, image.Pt(BlurKernel, BlurKernel), 0, 0, gocv.BorderDefault)
	}},
	{"denoise", func(src gocv.Mat, dst *gocv.Mat) error {
		return gocv.FastNlMeansDenoisingColoredWithParams(src, dst,
			DenoiseStrength, DenoiseColorH, DenoiseTemplateWin, DenoiseSearchWin)
	}},
	{"equalize", equalizeLuminance},
	{"grayscale", func(src gocv.Mat, dst *gocv.Mat) error {
		return gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	}},
}

// applySteps runs steps in order, each reading the previous output. The
// first failing step stops the chain. The caller closes the returned Mat.
func applySteps(src gocv.Mat, steps []step) (gocv.Mat, error) {
	cur := src.Clone()
	for _, s := range steps {
		next := gocv.NewMat()
		err := s.run(cur, &next)
		cur.Close()
		if err == nil && next.Empty() {
			err = errors.New("empty result")
		}
		if err != nil {
			next.Close()
			return gocv.NewMat(), fmt.Errorf("enhance: %s: %w", s.name, err)
		}
		cur = next
	}
	return cur, nil
}

// equalizeLuminance applies CLAHE to the L channel in L*a*b* space and
// converts back to BGR.
func equalizeLuminance(bgr gocv.Mat, dst *gocv.Mat) error {
	lab := gocv.NewMat()
	defer lab.Close()
	if err := gocv.CvtColor(bgr, &lab, gocv.ColorBGRToLab); err != nil {
		return fmt.Errorf("to Lab: %w", err)
	}

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return fmt.Errorf("expected 3 Lab channels, got %d", len(channels))
	}

	clahe := gocv.NewCLAHEWithParams(CLAHEClipLimit, image.Pt(CLAHETileGrid, CLAHETileGrid))
	defer clahe.Close()
	l := gocv.NewMat()
	if err := clahe.Apply(channels[0], &l); err != nil {
		l.Close()
		return fmt.Errorf("clahe: %w", err)
	}
	channels[0].Close()
	channels[0] = l

	merged := gocv.NewMat()
	defer merged.Close()
	if err := gocv.Merge(channels, &merged); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if err := gocv.CvtColor(merged, dst, gocv.ColorLabToBGR); err != nil {
		return fmt.Errorf("from Lab: %w", err)
	}
	return nil
}

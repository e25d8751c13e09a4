// Package cv bridges frames.Image and OpenCV matrices and opens OpenCV
// video sources.
package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// ToMat copies img into a new CV_8UC3 matrix. The caller closes the result.
func ToMat(img *frames.Image) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot convert empty image")
	}
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	return gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, pix)
}

// FromMat copies an 8-bit matrix into a BGR image. Single-channel and
// four-channel matrices are converted to BGR first.
func FromMat(m gocv.Mat) (*frames.Image, error) {
	if m.Empty() {
		return nil, fmt.Errorf("cannot convert empty mat")
	}
	src := m
	switch m.Channels() {
	case 3:
	case 1:
		bgr := gocv.NewMat()
		defer bgr.Close()
		if err := gocv.CvtColor(m, &bgr, gocv.ColorGrayToBGR); err != nil {
			return nil, fmt.Errorf("convert %d channels to BGR: %w", m.Channels(), err)
		}
		src = bgr
	case 4:
		bgr := gocv.NewMat()
		defer bgr.Close()
		if err := gocv.CvtColor(m, &bgr, gocv.ColorBGRAToBGR); err != nil {
			return nil, fmt.Errorf("convert %d channels to BGR: %w", m.Channels(), err)
		}
		src = bgr
	default:
		return nil, fmt.Errorf("unsupported channel count %d", m.Channels())
	}
	if !src.IsContinuous() {
		cont := src.Clone()
		defer cont.Close()
		src = cont
	}
	pix := src.ToBytes()
	return frames.FromBGR(src.Cols(), src.Rows(), pix)
}

// GrayBytes returns the bytes of a single-channel 8-bit matrix.
func GrayBytes(m gocv.Mat) ([]byte, error) {
	if m.Channels() != 1 {
		return nil, fmt.Errorf("expected 1 channel, got %d", m.Channels())
	}
	return m.ToBytes(), nil
}

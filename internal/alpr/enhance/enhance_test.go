package enhance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/testutil"
)

func TestEnhance_OutputShape(t *testing.T) {
	crop := testutil.SyntheticPlate(60, 20)

	out, err := Enhance(crop)
	require.NoError(t, err)
	assert.Equal(t, 60*UpscaleFactor, out.Width)
	assert.Equal(t, 20*UpscaleFactor, out.Height)
	assert.Len(t, out.Pix, out.Width*out.Height*3)

	for i := 0; i < len(out.Pix); i += 3 {
		b, g, r := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		if b != g || g != r {
			t.Fatalf("pixel %d is not grey: %d,%d,%d", i/3, b, g, r)
		}
		if b != 0 && b != 255 {
			t.Fatalf("pixel %d is not binary: %d", i/3, b)
		}
	}
}

func TestEnhance_Deterministic(t *testing.T) {
	crop := testutil.SyntheticPlate(48, 16)
	before := crop.Clone()

	first, err := Enhance(crop)
	require.NoError(t, err)
	second, err := Enhance(crop)
	require.NoError(t, err)

	assert.Equal(t, first.Pix, second.Pix)
	assert.Equal(t, before.Pix, crop.Pix, "input crop must not be modified")
}

func TestEnhance_DarkTextOnLightBackground(t *testing.T) {
	crop := testutil.SyntheticPlate(60, 20)

	out, stages, err := EnhanceStages(crop)
	require.NoError(t, err)
	defer stages.Close()

	total := stages.Otsu.Rows() * stages.Otsu.Cols()
	otsuLight := gocv.CountNonZero(stages.Otsu)
	finalLight := gocv.CountNonZero(stages.Binary)
	assert.Equal(t, total, otsuLight+finalLight)
	assert.Greater(t, finalLight, otsuLight)

	// Background corner is light, a stroke centre is dark.
	b, _, _ := out.BGR(1, 1)
	assert.Equal(t, uint8(255), b)
	sx, sy := testutil.SyntheticPlateStroke(60, 20)
	b, _, _ = out.BGR(sx*UpscaleFactor+UpscaleFactor/2, sy*UpscaleFactor)
	assert.Equal(t, uint8(0), b)
}

func TestEnhance_DegenerateCrop(t *testing.T) {
	tests := []struct {
		name string
		crop *frames.Image
	}{
		{"nil", nil},
		{"zero width", frames.NewImage(0, 10)},
		{"zero height", frames.NewImage(10, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Enhance(tt.crop)
			var dce *alpr.DegenerateCropError
			require.True(t, errors.As(err, &dce), "got %v", err)
		})
	}
}

func TestApplySteps_StopsAtFirstFailure(t *testing.T) {
	src := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer src.Close()

	errBoom := errors.New("boom")
	var ran []string
	steps := []step{
		{"copy", func(s gocv.Mat, d *gocv.Mat) error {
			ran = append(ran, "copy")
			return s.CopyTo(d)
		}},
		{"fail", func(gocv.Mat, *gocv.Mat) error {
			ran = append(ran, "fail")
			return errBoom
		}},
		{"after", func(s gocv.Mat, d *gocv.Mat) error {
			ran = append(ran, "after")
			return s.CopyTo(d)
		}},
	}

	out, err := applySteps(src, steps)
	defer out.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "enhance: fail")
	assert.Equal(t, []string{"copy", "fail"}, ran)
}

func TestApplySteps_EmptyResultIsError(t *testing.T) {
	src := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer src.Close()

	steps := []step{{"noop", func(gocv.Mat, *gocv.Mat) error { return nil }}}
	out, err := applySteps(src, steps)
	defer out.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enhance: noop: empty result")
}

func TestApplySteps_Chain(t *testing.T) {
	src := gocv.NewMatWithSize(6, 8, gocv.MatTypeCV8UC3)
	defer src.Close()

	out, err := applySteps(src, preThreshold)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 8*UpscaleFactor, out.Cols())
	assert.Equal(t, 6*UpscaleFactor, out.Rows())
}

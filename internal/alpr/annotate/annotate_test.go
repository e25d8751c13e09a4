package annotate

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/testutil"
)

func rectPolygon(x0, y0, x1, y1 int) []image.Point {
	return []image.Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestDraw(t *testing.T) {
	crop := testutil.SyntheticPlate(80, 30)
	out, err := Draw(crop, rectPolygon(4, 4, 70, 24), "AB12CDE")
	require.NoError(t, err)

	assert.Equal(t, 80, out.Width)
	assert.Equal(t, 30+textMargin, out.Height)

	b, g, r := out.BGR(40, 4+textMargin)
	assert.Equal(t, []uint8{0, 200, 0}, []uint8{b, g, r}, "polygon edge")

	b, g, r = out.BGR(40, 14+textMargin)
	assert.Equal(t, []uint8{testutil.PlateBackground, testutil.PlateBackground, testutil.PlateBackground}, []uint8{b, g, r}, "interior untouched")

	// Input is not modified.
	assert.Equal(t, testutil.SyntheticPlate(80, 30).Pix, crop.Pix)
}

func TestDraw_NoPolygon(t *testing.T) {
	out, err := Draw(testutil.SyntheticPlate(40, 12), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 12+textMargin, out.Height)
}

func TestDraw_EmptyImage(t *testing.T) {
	_, err := Draw(nil, nil, "X")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "frame000012_track003_AB12_CDE.png", FileName(12, 3, "AB12 CDE"))
	assert.Equal(t, "frame000000_track001_unknown.png", FileName(0, 1, "/.."))
}

func TestWriter_FrameCommitted(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overlays")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	entries := []results.Entry{
		{Frame: 5, TrackID: 2, Outcome: results.Outcome{
			Text:     "AB12CDE",
			Enhanced: testutil.SyntheticPlate(64, 24),
			Polygon:  rectPolygon(2, 2, 60, 20),
		}},
		{Frame: 5, TrackID: 4, Outcome: results.Outcome{
			Text: "XY99ZZZ",
			Crop: testutil.SyntheticPlate(32, 12),
		}},
		{Frame: 5, TrackID: 6, Outcome: results.Outcome{Text: "NOIMAGE"}},
	}
	require.NoError(t, w.FrameCommitted(context.Background(), 5, entries))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	assert.ElementsMatch(t, []string{
		"frame000005_track002_AB12CDE.png",
		"frame000005_track004_XY99ZZZ.png",
	}, names)
}

func TestNewWriter_RejectsOutsidePath(t *testing.T) {
	_, err := NewWriter("/etc/plate-overlays")
	assert.Error(t, err)
}

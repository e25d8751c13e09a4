// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// Plate fixture intensities.
const (
	PlateBackground = 200
	PlateInk        = 25
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// SyntheticPlate draws a light width x height plate with three dark
// 3-pixel-wide vertical strokes spanning the middle half of its height.
func SyntheticPlate(width, height int) *frames.Image {
	img := frames.NewImage(width, height)
	img.Fill(img.Bounds(), PlateBackground, PlateBackground, PlateBackground)
	for _, x := range strokeColumns(width) {
		img.Fill(image.Rect(x, height/4, x+3, height*3/4), PlateInk, PlateInk, PlateInk)
	}
	return img
}

// SyntheticPlateStroke returns the centre pixel of the middle stroke drawn by
// SyntheticPlate.
func SyntheticPlateStroke(width, height int) (x, y int) {
	return width/2 + 1, height / 2
}

func strokeColumns(width int) []int {
	return []int{width / 6, width / 2, width*5/6 - 3}
}

// SyntheticFrame returns a dark width x height frame with a SyntheticPlate
// painted at rect.
func SyntheticFrame(width, height int, rect image.Rectangle) *frames.Image {
	img := frames.NewImage(width, height)
	img.Fill(img.Bounds(), 40, 40, 40)
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return img
	}
	plate := SyntheticPlate(rect.Dx(), rect.Dy())
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			b, g, r := plate.BGR(x, y)
			img.SetBGR(rect.Min.X+x, rect.Min.Y+y, b, g, r)
		}
	}
	return img
}

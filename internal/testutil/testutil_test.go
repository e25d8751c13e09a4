package testutil

import (
	"errors"
	"image"
	"net/http"
	"testing"
)

func TestAssertHelpers(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))

	req := NewTestRequest(http.MethodGet, "/api/results")
	if req.URL.Path != "/api/results" {
		t.Errorf("path = %q", req.URL.Path)
	}
	rec := NewTestRecorder()
	rec.WriteHeader(http.StatusTeapot)
	AssertStatusCode(t, rec.Code, http.StatusTeapot)
}

func TestSyntheticPlate(t *testing.T) {
	img := SyntheticPlate(60, 20)
	if b, _, _ := img.BGR(0, 0); b != PlateBackground {
		t.Errorf("corner = %d, want background %d", b, PlateBackground)
	}
	x, y := SyntheticPlateStroke(60, 20)
	if b, _, _ := img.BGR(x, y); b != PlateInk {
		t.Errorf("stroke centre = %d, want ink %d", b, PlateInk)
	}
}

func TestSyntheticFrame(t *testing.T) {
	img := SyntheticFrame(100, 100, image.Rect(10, 80, 40, 95))
	if b, _, _ := img.BGR(0, 0); b != 40 {
		t.Errorf("frame background = %d", b)
	}
	if b, _, _ := img.BGR(10, 80); b != PlateBackground {
		t.Errorf("plate corner = %d", b)
	}
}

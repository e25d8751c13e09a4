// Package export writes the stored plate reads of a run as a CSV table.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/security"
)

// Header is the column layout of the output table.
var Header = []string{"frame_nmr", "car_id", "license_number", "license_number_score", "license_plate_crop"}

// WriteCSV writes one row per store entry in store order: ascending frame,
// then insertion order of the vehicle within the frame. The crop column
// holds the raw plate crop as base64-encoded PNG.
func WriteCSV(w io.Writer, store *results.Store) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	rows := 0
	for _, e := range store.Entries() {
		crop, err := EncodeCrop(e.Outcome.Crop)
		if err != nil {
			return rows, fmt.Errorf("frame %d car %d: %w", e.Frame, e.TrackID, err)
		}
		record := []string{
			strconv.Itoa(e.Frame),
			strconv.Itoa(e.TrackID),
			e.Outcome.Text,
			strconv.FormatFloat(e.Outcome.Confidence, 'f', -1, 64),
			crop,
		}
		if err := cw.Write(record); err != nil {
			return rows, fmt.Errorf("write row: %w", err)
		}
		rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}

// WriteCSVFile validates path and writes the table to it, creating parent
// directories as needed.
func WriteCSVFile(path string, store *results.Store) (int, error) {
	if err := security.ValidateOutputPath(path); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	rows, werr := WriteCSV(f, store)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("close %s: %w", path, cerr)
	}
	return rows, werr
}

// EncodeCrop returns img as base64 PNG, or "" for a missing image.
func EncodeCrop(img *frames.Image) (string, error) {
	if img.Empty() {
		return "", nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode crop: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

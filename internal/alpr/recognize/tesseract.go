// Package recognize reads text from enhanced plate images with Tesseract.
package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// Config configures the Tesseract recognizer.
type Config struct {
	Language string // tessdata language, e.g. "eng"
	// Whitelist restricts recognised characters. Empty allows all.
	Whitelist string
}

// DefaultWhitelist is the plate alphabet.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Tesseract recognises text lines. A single client is reused and calls are
// serialised.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a client configured for single plate lines.
func NewTesseract(cfg Config) (*Tesseract, error) {
	client := gosseract.NewClient()
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("set tesseract language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("set tesseract page segmentation: %w", err)
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("set tesseract whitelist: %w", err)
		}
	}
	return &Tesseract{client: client}, nil
}

// Recognize returns one candidate per recognised text line in Tesseract's
// reading order. Confidence is scaled to [0,1]. Lines with no text are
// skipped; an image without text yields an empty slice.
func (t *Tesseract) Recognize(ctx context.Context, img *frames.Image) ([]alpr.TextCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode plate image: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("tesseract set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract bounding boxes: %w", err)
	}
	return candidates(boxes), nil
}

func candidates(boxes []gosseract.BoundingBox) []alpr.TextCandidate {
	out := make([]alpr.TextCandidate, 0, len(boxes))
	for _, b := range boxes {
		text := strings.Join(strings.Fields(b.Word), "")
		if text == "" {
			continue
		}
		out = append(out, alpr.TextCandidate{
			Polygon:    rectPolygon(b.Box),
			Text:       text,
			Confidence: clampUnit(b.Confidence / 100),
		})
	}
	return out
}

func rectPolygon(r image.Rectangle) []image.Point {
	return []image.Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

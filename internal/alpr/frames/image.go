// Package frames defines the decoded frame model: a packed 8-bit BGR image
// indexed by a monotonically increasing frame number.
package frames

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrEmptyCrop is returned when a crop rectangle has no pixels inside the
// image.
var ErrEmptyCrop = errors.New("empty crop")

// Image is a packed 3-channel 8-bit image in B,G,R byte order, row-major with
// no padding. It implements image.Image so it can be handed to encoders.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage allocates a black width x height image.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// FromBGR wraps packed BGR bytes. The slice is used without copying.
func FromBGR(width, height int, pix []uint8) (*Image, error) {
	if width < 0 || height < 0 || len(pix) != width*height*3 {
		return nil, fmt.Errorf("bgr buffer size %d does not match %dx%dx3", len(pix), width, height)
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// FromImage copies any image.Image into a new BGR Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	dst := NewImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst.SetBGR(x, y, uint8(bl>>8), uint8(g>>8), uint8(r>>8))
		}
	}
	return dst
}

// Empty reports whether the image has no pixels.
func (m *Image) Empty() bool {
	return m == nil || m.Width == 0 || m.Height == 0
}

func (m *Image) offset(x, y int) int {
	return (y*m.Width + x) * 3
}

// BGR returns the channel values at (x, y).
func (m *Image) BGR(x, y int) (b, g, r uint8) {
	i := m.offset(x, y)
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetBGR writes the channel values at (x, y).
func (m *Image) SetBGR(x, y int, b, g, r uint8) {
	i := m.offset(x, y)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = b, g, r
}

// Fill paints rect (clipped to the image) with a single colour.
func (m *Image) Fill(rect image.Rectangle, b, g, r uint8) {
	rect = rect.Intersect(m.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			m.SetBGR(x, y, b, g, r)
		}
	}
}

// Crop copies the pixels of rect (clipped to the image) into a new image.
func (m *Image) Crop(rect image.Rectangle) (*Image, error) {
	rect = rect.Intersect(m.Bounds())
	if rect.Empty() {
		return nil, ErrEmptyCrop
	}
	dst := NewImage(rect.Dx(), rect.Dy())
	rowBytes := rect.Dx() * 3
	for y := 0; y < rect.Dy(); y++ {
		src := m.offset(rect.Min.X, rect.Min.Y+y)
		copy(dst.Pix[y*rowBytes:(y+1)*rowBytes], m.Pix[src:src+rowBytes])
	}
	return dst, nil
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Pix: pix}
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(m.Bounds()) {
		return color.RGBA{}
	}
	b, g, r := m.BGR(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

package alpr

import (
	"image"
	"math"
)

// Box is an axis-aligned bounding box in pixel coordinates as reported by a
// detector or tracker. Coordinates are not guaranteed to be ordered.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBox builds a Box from corner coordinates.
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Normalize returns the box with X1<=X2 and Y1<=Y2.
func (b Box) Normalize() Box {
	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	return b
}

// Width of the normalized box.
func (b Box) Width() float64 {
	n := b.Normalize()
	return n.X2 - n.X1
}

// Height of the normalized box.
func (b Box) Height() float64 {
	n := b.Normalize()
	return n.Y2 - n.Y1
}

// Area of the normalized box. Degenerate boxes have zero area.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the box centre point.
func (b Box) Center() (cx, cy float64) {
	n := b.Normalize()
	return (n.X1 + n.X2) / 2, (n.Y1 + n.Y2) / 2
}

// Contains reports whether inner lies entirely within b. tolerance widens b
// on every side by that many pixels; zero means strict containment with
// shared edges allowed.
func (b Box) Contains(inner Box, tolerance float64) bool {
	o := b.Normalize()
	in := inner.Normalize()
	return o.X1-tolerance <= in.X1 &&
		o.Y1-tolerance <= in.Y1 &&
		in.X2 <= o.X2+tolerance &&
		in.Y2 <= o.Y2+tolerance
}

// IoU returns the intersection-over-union of two boxes in [0,1].
func (b Box) IoU(other Box) float64 {
	a := b.Normalize()
	o := other.Normalize()
	ix1 := math.Max(a.X1, o.X1)
	iy1 := math.Max(a.Y1, o.Y1)
	ix2 := math.Min(a.X2, o.X2)
	iy2 := math.Min(a.Y2, o.Y2)
	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Clip converts the box to integer pixel bounds inside a width x height
// frame. Coordinates are floored and clamped to the frame before conversion
// to int, so huge or infinite values still clip correctly. The returned
// rectangle is empty when nothing of the box lies inside the frame, the box
// has no area, or any coordinate is NaN.
func (b Box) Clip(width, height int) image.Rectangle {
	n := b.Normalize()
	for _, v := range [...]float64{n.X1, n.Y1, n.X2, n.Y2} {
		if math.IsNaN(v) {
			return image.Rectangle{}
		}
	}
	w, h := float64(width), float64(height)
	r := image.Rect(
		int(clamp(math.Floor(n.X1), 0, w)),
		int(clamp(math.Floor(n.Y1), 0, h)),
		int(clamp(math.Floor(n.X2), 0, w)),
		int(clamp(math.Floor(n.Y2), 0, h)),
	)
	if r.Empty() {
		return image.Rectangle{}
	}
	return r
}

// Scale multiplies every coordinate by the given factors.
func (b Box) Scale(sx, sy float64) Box {
	return Box{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

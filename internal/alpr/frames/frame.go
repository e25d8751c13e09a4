package frames

import (
	"context"
	"io"
	"time"
)

// Frame is one decoded frame. Frames are immutable once produced by a Source.
type Frame struct {
	Index     int
	Image     *Image
	Timestamp time.Time
}

// Source yields frames in order. Next returns io.EOF once the source is
// exhausted.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// SliceSource replays a fixed list of images, numbering them from zero.
type SliceSource struct {
	images []*Image
	pos    int
	closed bool
}

// NewSliceSource returns a Source over images.
func NewSliceSource(images ...*Image) *SliceSource {
	return &SliceSource{images: images}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed || s.pos >= len(s.images) {
		return nil, io.EOF
	}
	f := &Frame{Index: s.pos, Image: s.images[s.pos]}
	s.pos++
	return f, nil
}

// Close implements Source.
func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Read returns how many frames have been handed out.
func (s *SliceSource) Read() int { return s.pos }

package frames

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_CropCopiesPixels(t *testing.T) {
	t.Parallel()

	img := NewImage(8, 6)
	img.Fill(image.Rect(2, 1, 5, 4), 10, 20, 30)

	crop, err := img.Crop(image.Rect(2, 1, 5, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, crop.Width)
	assert.Equal(t, 3, crop.Height)
	b, g, r := crop.BGR(0, 0)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{b, g, r})

	crop.SetBGR(0, 0, 0, 0, 0)
	b, _, _ = img.BGR(2, 1)
	assert.Equal(t, uint8(10), b, "crop must not alias the source")
}

func TestImage_CropClipsAndRejectsEmpty(t *testing.T) {
	t.Parallel()

	img := NewImage(8, 6)
	crop, err := img.Crop(image.Rect(-4, -4, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), crop.Bounds())

	_, err = img.Crop(image.Rect(10, 10, 20, 20))
	assert.True(t, errors.Is(err, ErrEmptyCrop))
}

func TestImage_ImplementsImage(t *testing.T) {
	t.Parallel()

	var _ image.Image = (*Image)(nil)

	img := NewImage(2, 1)
	img.SetBGR(1, 0, 1, 2, 3)
	assert.Equal(t, color.RGBA{R: 3, G: 2, B: 1, A: 0xff}, img.At(1, 0))
	assert.Equal(t, color.RGBA{}, img.At(5, 5))

	round := FromImage(img)
	assert.Equal(t, img.Pix, round.Pix)
}

func TestFromBGR_SizeMismatch(t *testing.T) {
	t.Parallel()

	_, err := FromBGR(2, 2, make([]uint8, 11))
	assert.Error(t, err)
	m, err := FromBGR(2, 2, make([]uint8, 12))
	require.NoError(t, err)
	assert.False(t, m.Empty())
	assert.True(t, NewImage(0, 3).Empty())
}

func TestSliceSource(t *testing.T) {
	t.Parallel()

	src := NewSliceSource(NewImage(1, 1), NewImage(1, 1))
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Index)
	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, src.Read())
	assert.NoError(t, src.Close())
}

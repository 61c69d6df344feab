package image

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScalarImageFromGray(t *testing.T) {
	t.Parallel()

	g := image.NewGray(image.Rect(0, 0, 3, 2))
	g.SetGray(0, 0, color.Gray{Y: 0})
	g.SetGray(1, 0, color.Gray{Y: 128})
	g.SetGray(2, 0, color.Gray{Y: 255})
	g.SetGray(0, 1, color.Gray{Y: 64})

	s := NewScalarImageFromGray(g)
	require.Equal(t, 3, s.W)
	require.Equal(t, 2, s.H)

	// Gray pixels come back as their 8-bit luminance.
	assert.InDelta(t, 0, s.ValueAt(0, 0), 1e-9)
	assert.InDelta(t, 128, s.ValueAt(1, 0), 1e-9)
	assert.InDelta(t, 255, s.ValueAt(2, 0), 1e-9)
	assert.InDelta(t, 64, s.ValueAt(0, 1), 1e-9)
}

func TestNewScalarImageFromGrayOffsetBounds(t *testing.T) {
	t.Parallel()

	// Images whose bounds do not start at the origin, such as subimages,
	// are read relative to their own minimum.
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	g.SetGray(5, 5, color.Gray{Y: 200})
	sub := g.SubImage(image.Rect(4, 4, 8, 8)).(*image.Gray)

	s := NewScalarImageFromGray(sub)
	require.Equal(t, 4, s.W)
	require.Equal(t, 4, s.H)
	assert.InDelta(t, 200, s.ValueAt(1, 1), 1e-9)
	assert.InDelta(t, 0, s.ValueAt(0, 0), 1e-9)
}

func TestScalarImageAccess(t *testing.T) {
	t.Parallel()

	s := NewScalarImage(4, 3)
	s.Set(2, 1, 0.75)
	assert.Equal(t, 0.75, s.ValueAt(2, 1))
	assert.Equal(t, 0.0, s.ValueAt(3, 2))

	// Reads and writes outside the grid are absorbed.
	assert.Equal(t, 0.0, s.ValueAt(-1, 0))
	assert.Equal(t, 0.0, s.ValueAt(4, 0))
	assert.Equal(t, 0.0, s.ValueAt(0, 3))
	s.Set(-1, 0, 1)
	s.Set(4, 2, 1)
	assert.Equal(t, 0.0, s.ValueAt(0, 0))

	b := s.Bounds()
	assert.Equal(t, 0.0, b.X)
	assert.Equal(t, 0.0, b.Y)
	assert.Equal(t, 3.0, b.Width)
	assert.Equal(t, 2.0, b.Height)
}

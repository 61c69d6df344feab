package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment2DBasics(t *testing.T) {
	t.Parallel()

	s := NewSegment2D(NewPoint2D(0, 0), NewPoint2D(6, 8))

	assert.Equal(t, Point2D{X: 3, Y: 4}, s.Midpoint())
	assert.InDelta(t, 10.0, s.Length(), 1e-12)
	assert.InDelta(t, 5.0, s.HalfLength(), 1e-12)
	assert.InDelta(t, 0.6, s.Direction().X, 1e-12)
	assert.InDelta(t, 0.8, s.Direction().Y, 1e-12)

	moved := s.Translate(NewPoint2D(1, -1))
	assert.Equal(t, Point2D{X: 1, Y: -1}, moved.P0)
	assert.Equal(t, Point2D{X: 7, Y: 7}, moved.P1)
}

func TestSegment2DRotateAboutMidpoint(t *testing.T) {
	t.Parallel()

	s := NewSegment2D(NewPoint2D(-2, 0), NewPoint2D(2, 0))
	r := s.RotateAboutMidpoint(math.Pi / 2)

	assert.Equal(t, s.Midpoint(), r.Midpoint())
	assert.InDelta(t, s.Length(), r.Length(), 1e-12)
	assert.InDelta(t, 0.0, r.P0.X, 1e-12)
	assert.InDelta(t, -2.0, r.P0.Y, 1e-12)
}

func TestSegment2DClipToRect(t *testing.T) {
	t.Parallel()

	r := NewRect(0, 0, 10, 10)

	t.Run("fully inside is unchanged", func(t *testing.T) {
		t.Parallel()
		s := NewSegment2D(NewPoint2D(2, 2), NewPoint2D(8, 8))
		clipped, ok := s.ClipToRect(r)
		require.True(t, ok)
		assert.Equal(t, s, clipped)
	})

	t.Run("crossing segment is trimmed to the boundary", func(t *testing.T) {
		t.Parallel()
		s := NewSegment2D(NewPoint2D(-5, 5), NewPoint2D(15, 5))
		clipped, ok := s.ClipToRect(r)
		require.True(t, ok)
		assert.InDelta(t, 0.0, clipped.P0.X, 1e-12)
		assert.InDelta(t, 10.0, clipped.P1.X, 1e-12)
		assert.InDelta(t, 5.0, clipped.P0.Y, 1e-12)
	})

	t.Run("fully outside is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewSegment2D(NewPoint2D(20, 20), NewPoint2D(30, 25))
		_, ok := s.ClipToRect(r)
		assert.False(t, ok)
	})

	t.Run("diagonal clip keeps direction", func(t *testing.T) {
		t.Parallel()
		s := NewSegment2D(NewPoint2D(-2, -2), NewPoint2D(12, 12))
		clipped, ok := s.ClipToRect(r)
		require.True(t, ok)
		assert.InDelta(t, 0.0, clipped.P0.X, 1e-12)
		assert.InDelta(t, 0.0, clipped.P0.Y, 1e-12)
		assert.InDelta(t, 10.0, clipped.P1.X, 1e-12)
		assert.InDelta(t, 10.0, clipped.P1.Y, 1e-12)
	})
}

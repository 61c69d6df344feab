package raycast

import (
	"testing"

	"tube-modeller/internal/conic"
	"tube-modeller/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImage evaluates a function on a bounded integer grid, zero outside.
type fakeImage struct {
	w, h  int
	value func(x, y int) float64
}

func (f *fakeImage) ValueAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return 0
	}
	return f.value(x, y)
}

func (f *fakeImage) Bounds() geometry.Rect {
	return geometry.NewRect(0, 0, float64(f.w-1), float64(f.h-1))
}

// mask is a binary image whose foreground is the columns x in [lo, hi].
func mask(w, h, lo, hi int) *fakeImage {
	return &fakeImage{w: w, h: h, value: func(x, y int) float64 {
		if x >= lo && x <= hi {
			return 1
		}
		return 0
	}}
}

func TestBinarySamplerBoundaryCrossing(t *testing.T) {
	t.Parallel()
	s := &BinarySampler{Image: mask(40, 40, 10, 30), Threshold: 0.5}

	t.Run("background into foreground", func(t *testing.T) {
		hit, at, v := s.SampleAlongRay(geometry.Point2D{X: 5, Y: 5}, geometry.Point2D{X: 13, Y: 5})
		require.True(t, hit)
		assert.Equal(t, geometry.Point2D{X: 10, Y: 5}, at)
		assert.Equal(t, 1.0, v)
	})

	t.Run("foreground into background", func(t *testing.T) {
		hit, at, v := s.SampleAlongRay(geometry.Point2D{X: 12, Y: 5}, geometry.Point2D{X: 4, Y: 5})
		require.True(t, hit)
		assert.Equal(t, geometry.Point2D{X: 9, Y: 5}, at)
		assert.Equal(t, 0.0, v)
	})

	t.Run("no crossing", func(t *testing.T) {
		hit, _, _ := s.SampleAlongRay(geometry.Point2D{X: 12, Y: 5}, geometry.Point2D{X: 20, Y: 5})
		assert.False(t, hit)
	})

	t.Run("zero length ray", func(t *testing.T) {
		hit, _, _ := s.SampleAlongRay(geometry.Point2D{X: 5, Y: 5}, geometry.Point2D{X: 5, Y: 5})
		assert.False(t, hit)
	})
}

func TestGradientSamplerExceedsOrigin(t *testing.T) {
	t.Parallel()

	img := &fakeImage{w: 40, h: 40, value: func(x, y int) float64 {
		if x == 12 {
			return 0.9
		}
		return 0.2 // matches the origin, must not trigger
	}}
	s := &GradientSampler{Image: img}

	hit, at, v := s.SampleAlongRay(geometry.Point2D{X: 5, Y: 5}, geometry.Point2D{X: 13, Y: 5})
	require.True(t, hit)
	assert.Equal(t, geometry.Point2D{X: 12, Y: 5}, at)
	assert.Equal(t, 0.9, v)

	// Every sample at or below the origin magnitude is ignored.
	hit, _, _ = s.SampleAlongRay(geometry.Point2D{X: 15, Y: 5}, geometry.Point2D{X: 23, Y: 5})
	assert.False(t, hit)
}

// refinable is a horizontal profile with major-axis endpoints at x = 12
// and x = 28. With a truncation of 0.5 its refinement rays are 8 pixels
// long, which keeps the ray samples on exact integer coordinates.
func refinable() *conic.Ellipse2D {
	return conic.NewEllipse2D(geometry.Point2D{X: 20, Y: 20}, 8, 4, 0)
}

func TestRefineProfileNoEvidence(t *testing.T) {
	t.Parallel()

	r := &Refiner{
		Sampler:    &BinarySampler{Image: mask(40, 40, 0, 39), Threshold: 0.5},
		Bounds:     geometry.NewRect(0, 0, 39, 39),
		Truncation: 0.5,
	}

	e := refinable()
	before := *e
	r.RefineProfile(e)
	assert.Equal(t, before.Points, e.Points)
	assert.Equal(t, before.SemiMajor, e.SemiMajor)
}

func TestRefineProfileSnapsFirstEndpoint(t *testing.T) {
	t.Parallel()

	// Foreground starts two pixels inward of the endpoint at x = 12.
	r := &Refiner{
		Sampler:    &BinarySampler{Image: mask(40, 40, 14, 39), Threshold: 0.5},
		Bounds:     geometry.NewRect(0, 0, 39, 39),
		Truncation: 0.5,
	}

	e := refinable()
	r.RefineProfile(e)

	assert.Equal(t, geometry.Point2D{X: 14, Y: 20}, e.Points[conic.PtMajor0])
	// The partner endpoint mirrors the movement so the center is fixed.
	assert.Equal(t, geometry.Point2D{X: 26, Y: 20}, e.Points[conic.PtMajor1])
	assert.Equal(t, geometry.Point2D{X: 20, Y: 20}, e.Center)
	assert.InDelta(t, 6.0, e.SemiMajor, 1e-12)
}

func TestRefineProfileSnapsSecondEndpoint(t *testing.T) {
	t.Parallel()

	// Foreground covers x <= 25, so only the endpoint at x = 28 sees a
	// boundary within its truncated rays.
	r := &Refiner{
		Sampler:    &BinarySampler{Image: mask(40, 40, 0, 25), Threshold: 0.5},
		Bounds:     geometry.NewRect(0, 0, 39, 39),
		Truncation: 0.5,
	}

	e := refinable()
	r.RefineProfile(e)

	assert.Equal(t, geometry.Point2D{X: 25, Y: 20}, e.Points[conic.PtMajor1])
	assert.Equal(t, geometry.Point2D{X: 15, Y: 20}, e.Points[conic.PtMajor0])
	assert.Equal(t, geometry.Point2D{X: 20, Y: 20}, e.Center)
	assert.InDelta(t, 5.0, e.SemiMajor, 1e-12)
}

func TestRefineProfileClipsRaysToBounds(t *testing.T) {
	t.Parallel()

	// A profile hugging the image edge: the outward rays leave the
	// bounds and are clipped rather than sampled out of range.
	r := &Refiner{
		Sampler: &BinarySampler{Image: mask(40, 40, 0, 39), Threshold: 0.5},
		Bounds:  geometry.NewRect(0, 0, 39, 39),
	}

	e := conic.NewEllipse2D(geometry.Point2D{X: 20, Y: 5}, 18, 4, 0)
	before := *e
	r.RefineProfile(e)
	assert.Equal(t, before.Points, e.Points)
}

func TestRefineProfileNilSampler(t *testing.T) {
	t.Parallel()

	r := &Refiner{Bounds: geometry.NewRect(0, 0, 39, 39)}
	e := refinable()
	before := *e
	r.RefineProfile(e)
	assert.Equal(t, before.Points, e.Points)
}

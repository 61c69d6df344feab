package camera

import (
	"math"
	"testing"

	"tube-modeller/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/spatial/r3"
)

func testParams(t *testing.T) *ProjectionParameters {
	t.Helper()
	p, err := NewProjectionParameters(1, 100, 45, 800, 600)
	require.NoError(t, err)
	return p
}

func TestNewProjectionParametersValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                          string
		near, far, fovy, width, height float64
	}{
		{"zero near", 0, 100, 45, 800, 600},
		{"far before near", 10, 5, 45, 800, 600},
		{"zero fov", 1, 100, 0, 800, 600},
		{"fov over 180", 1, 100, 180, 800, 600},
		{"zero width", 1, 100, 45, 0, 600},
		{"negative height", 1, 100, 45, 800, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewProjectionParameters(tc.near, tc.far, tc.fovy, tc.width, tc.height)
			assert.Error(t, err)
		})
	}
}

func TestHalfExtents(t *testing.T) {
	t.Parallel()
	p := testParams(t)

	halfW, halfH := p.HalfExtents()
	assert.InDelta(t, math.Tan(45*math.Pi/360), halfH, 1e-12)
	// Near-plane aspect matches the viewport.
	assert.InDelta(t, 800.0/600.0, halfW/halfH, 1e-12)
}

func TestDefaultDepth(t *testing.T) {
	t.Parallel()
	p := testParams(t)
	assert.InDelta(t, -50.5, p.DefaultDepth(), 1e-12)
}

func TestDeviceToProjectedRoundTrip(t *testing.T) {
	t.Parallel()
	p := testParams(t)

	// The viewport center maps to the view axis.
	center := p.DeviceToProjected(geometry.Point2D{X: 400, Y: 300})
	assert.InDelta(t, 0.0, center.X, 1e-12)
	assert.InDelta(t, 0.0, center.Y, 1e-12)

	// Device y grows downward, projected y upward.
	above := p.DeviceToProjected(geometry.Point2D{X: 400, Y: 200})
	assert.Greater(t, above.Y, 0.0)

	for _, pt := range []geometry.Point2D{
		{X: 0, Y: 0},
		{X: 800, Y: 600},
		{X: 123.25, Y: 456.5},
	} {
		back := p.ProjectedToDevice(p.DeviceToProjected(pt))
		assert.InDelta(t, pt.X, back.X, 1e-9)
		assert.InDelta(t, pt.Y, back.Y, 1e-9)
	}
}

func TestBackProjectProjectRoundTrip(t *testing.T) {
	t.Parallel()
	p := testParams(t)

	for _, dev := range []geometry.Point2D{
		{X: 400, Y: 300},
		{X: 100, Y: 80},
		{X: 731, Y: 552},
	} {
		for _, depth := range []float64{-2, -50.5, -99} {
			v := p.BackProject(p.DeviceToProjected(dev), depth)
			assert.InDelta(t, depth, v.Z, 1e-12)

			screen, ok := p.ProjectToScreen(v)
			require.True(t, ok)
			assert.InDelta(t, dev.X, screen.X, 1e-6)
			assert.InDelta(t, dev.Y, screen.Y, 1e-6)
		}
	}
}

func TestProjectToScreenRejectsBehindCamera(t *testing.T) {
	t.Parallel()
	p := testParams(t)

	_, ok := p.ProjectToScreen(r3.Vec{X: 0, Y: 0, Z: 5})
	assert.False(t, ok)
	_, ok = p.ProjectToScreen(r3.Vec{X: 1, Y: 1, Z: 0})
	assert.False(t, ok)
}

func TestWindowMatrixCorners(t *testing.T) {
	t.Parallel()
	p := testParams(t)
	w := p.WindowMatrix()

	// NDC (-1, 1) is the top-left pixel corner.
	assert.InDelta(t, 0.0, w.At(0, 0)*-1+w.At(0, 3), 1e-12)
	assert.InDelta(t, 0.0, w.At(1, 1)*1+w.At(1, 3), 1e-12)
	// NDC (1, -1) is the bottom-right corner.
	assert.InDelta(t, 800.0, w.At(0, 0)*1+w.At(0, 3), 1e-12)
	assert.InDelta(t, 600.0, w.At(1, 1)*-1+w.At(1, 3), 1e-12)
}

func TestProjectionMatrixKnownPoint(t *testing.T) {
	t.Parallel()
	p := testParams(t)

	// A point on the near plane at the top edge of the frustum projects
	// to NDC y = 1.
	_, halfH := p.HalfExtents()
	m := p.ProjectionMatrix()

	x := []float64{0, halfH, -p.Near, 1}
	clipY := m.At(1, 1)*x[1] + m.At(1, 2)*x[2] + m.At(1, 3)*x[3]
	clipW := m.At(3, 2) * x[2]
	assert.InDelta(t, 1.0, clipY/clipW, 1e-12)
}

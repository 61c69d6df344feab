// Package camera holds the perspective projection parameters of a
// modelling session and the coordinate conversions derived from them.
package camera

import (
	"fmt"
	"math"

	"tube-modeller/pkg/geometry"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ProjectionParameters describes the perspective camera used to take the
// photograph being modelled: near/far plane distances, vertical field of
// view, and the viewport size in device pixels. One instance is shared by
// reference across all estimation calls of a session and never mutated.
type ProjectionParameters struct {
	Near   float64 // distance to the near plane, positive
	Far    float64 // distance to the far plane, positive
	FOVY   float64 // vertical field of view in degrees
	Width  float64 // viewport width in device pixels
	Height float64 // viewport height in device pixels
}

// NewProjectionParameters validates and builds a parameter set.
func NewProjectionParameters(near, far, fovy, width, height float64) (*ProjectionParameters, error) {
	if near <= 0 || far <= near {
		return nil, fmt.Errorf("invalid near/far planes: near=%g far=%g", near, far)
	}
	if fovy <= 0 || fovy >= 180 {
		return nil, fmt.Errorf("invalid vertical field of view: %g", fovy)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid viewport: %gx%g", width, height)
	}
	return &ProjectionParameters{Near: near, Far: far, FOVY: fovy, Width: width, Height: height}, nil
}

// HalfExtents returns the half width and half height of the near plane in
// camera units.
func (p *ProjectionParameters) HalfExtents() (halfW, halfH float64) {
	halfH = p.Near * math.Tan(p.FOVY*math.Pi/360)
	halfW = halfH * p.Width / p.Height
	return halfW, halfH
}

// DefaultDepth returns the default modelling depth, the midpoint between
// the near and far planes on the negative camera axis.
func (p *ProjectionParameters) DefaultDepth() float64 {
	return -(p.Near + p.Far) / 2
}

// Scale returns the uniform device-to-projected scale factor. The aspect
// ratio of the near plane matches the viewport, so the factor is the same
// on both axes and the conversion is lossless.
func (p *ProjectionParameters) Scale() float64 {
	_, halfH := p.HalfExtents()
	return 2 * halfH / p.Height
}

// DeviceToProjected maps a device-pixel point (origin top-left, y down)
// to near-plane camera coordinates (origin at the view axis, y up).
func (p *ProjectionParameters) DeviceToProjected(pt geometry.Point2D) geometry.Point2D {
	s := p.Scale()
	return geometry.Point2D{
		X: (pt.X - p.Width/2) * s,
		Y: (p.Height/2 - pt.Y) * s,
	}
}

// ProjectedToDevice is the inverse of DeviceToProjected.
func (p *ProjectionParameters) ProjectedToDevice(pt geometry.Point2D) geometry.Point2D {
	s := p.Scale()
	return geometry.Point2D{
		X: pt.X/s + p.Width/2,
		Y: p.Height/2 - pt.Y/s,
	}
}

// ProjectionMatrix returns the 4x4 perspective projection matrix.
func (p *ProjectionParameters) ProjectionMatrix() *mat.Dense {
	halfW, halfH := p.HalfExtents()
	n, f := p.Near, p.Far
	return mat.NewDense(4, 4, []float64{
		n / halfW, 0, 0, 0,
		0, n / halfH, 0, 0,
		0, 0, -(f + n) / (f - n), -2 * f * n / (f - n),
		0, 0, -1, 0,
	})
}

// WindowMatrix returns the 4x4 viewport matrix mapping normalized device
// coordinates to device pixels, flipping y to the top-left origin.
func (p *ProjectionParameters) WindowMatrix() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		p.Width / 2, 0, 0, p.Width / 2,
		0, -p.Height / 2, 0, p.Height / 2,
		0, 0, 0.5, 0.5,
		0, 0, 0, 1,
	})
}

// ProjectToScreen projects a camera-space point into device-pixel
// coordinates, composing the projection matrix with the viewport mapping.
// The boolean is false for points at or behind the camera plane.
func (p *ProjectionParameters) ProjectToScreen(v r3.Vec) (geometry.Point2D, bool) {
	if v.Z >= 0 {
		return geometry.Point2D{}, false
	}
	proj := p.ProjectionMatrix()
	hom := mat.NewVecDense(4, []float64{v.X, v.Y, v.Z, 1})
	var clip mat.VecDense
	clip.MulVec(proj, hom)

	w := clip.AtVec(3)
	if w == 0 {
		return geometry.Point2D{}, false
	}
	ndc := mat.NewVecDense(4, []float64{
		clip.AtVec(0) / w, clip.AtVec(1) / w, clip.AtVec(2) / w, 1,
	})
	var dev mat.VecDense
	dev.MulVec(p.WindowMatrix(), ndc)
	return geometry.Point2D{X: dev.AtVec(0), Y: dev.AtVec(1)}, true
}

// BackProject maps a projected near-plane point to the 3D point at the
// given camera depth (negative z) along the ray through it.
func (p *ProjectionParameters) BackProject(pt geometry.Point2D, depth float64) r3.Vec {
	s := depth / -p.Near
	return r3.Vec{X: pt.X * s, Y: pt.Y * s, Z: depth}
}

// Package conic implements the planar conic (ellipse) representation used
// for cross-section profiles, in both algebraic and geometric form, and
// the projection of 3D circles into image conics.
package conic

import (
	"fmt"
	"math"

	"tube-modeller/internal/camera"
	"tube-modeller/pkg/geometry"
)

// Axis endpoint indices in Ellipse2D.Points. The minor-axis endpoint at
// PtMinor0 is the operator-controlled guide point; it doubles as the
// leading spine sample of a profile.
const (
	PtMajor0 = 0
	PtMajor1 = 1
	PtMinor0 = 2
	PtMinor1 = 3
)

// Ellipse2D is a planar conic Ax^2+Bxy+Cy^2+Dx+Ey+F=0, kept consistent
// with its geometric parameters: center, semi-axis lengths, rotation of
// the major axis, and the four axis endpoints. All mutators recompute the
// algebraic coefficients, so the two forms never drift apart.
type Ellipse2D struct {
	Coeffs [6]float64 // A, B, C, D, E, F

	Center    geometry.Point2D
	SemiMajor float64
	SemiMinor float64
	Rotation  float64 // angle of the major axis, radians

	// Points holds the two major-axis endpoints followed by the two
	// minor-axis endpoints, see the Pt* constants.
	Points [4]geometry.Point2D
}

// NewEllipse2D builds an ellipse from geometric parameters.
func NewEllipse2D(center geometry.Point2D, semiMajor, semiMinor, rotation float64) *Ellipse2D {
	e := &Ellipse2D{
		Center:    center,
		SemiMajor: semiMajor,
		SemiMinor: semiMinor,
		Rotation:  rotation,
	}
	e.recomputeEndpoints()
	e.RecomputeAlgebraic()
	return e
}

// Clone returns a deep copy.
func (e *Ellipse2D) Clone() *Ellipse2D {
	c := *e
	return &c
}

// UpdateMajorAxis sets the major axis from its two endpoints. The minor
// axis collapses to zero; the ellipse is degenerate until the minor axis
// is set.
func (e *Ellipse2D) UpdateMajorAxis(p0, p1 geometry.Point2D) {
	e.Points[PtMajor0] = p0
	e.Points[PtMajor1] = p1
	e.Center = geometry.Point2D{X: (p0.X + p1.X) / 2, Y: (p0.Y + p1.Y) / 2}
	e.SemiMajor = p0.Distance(p1) / 2
	e.SemiMinor = 0
	d := p1.Sub(p0)
	e.Rotation = math.Atan2(d.Y, d.X)
	e.Points[PtMinor0] = e.Center
	e.Points[PtMinor1] = e.Center
	e.RecomputeAlgebraic()
}

// UpdateMinorAxis sets the operator-controlled minor-axis endpoint. The
// opposite endpoint is its mirror through the center.
func (e *Ellipse2D) UpdateMinorAxis(p geometry.Point2D) {
	e.Points[PtMinor0] = p
	e.Points[PtMinor1] = geometry.Point2D{
		X: 2*e.Center.X - p.X,
		Y: 2*e.Center.Y - p.Y,
	}
	e.SemiMinor = p.Distance(e.Center)
	e.RecomputeAlgebraic()
}

// Translate shifts the whole ellipse by a vector.
func (e *Ellipse2D) Translate(v geometry.Point2D) {
	e.Center = e.Center.Add(v)
	for i := range e.Points {
		e.Points[i] = e.Points[i].Add(v)
	}
	e.RecomputeAlgebraic()
}

// Rotate rotates the ellipse about its center.
func (e *Ellipse2D) Rotate(radians float64) {
	e.Rotation += radians
	for i := range e.Points {
		e.Points[i] = e.Points[i].RotateAbout(e.Center, radians)
	}
	e.RecomputeAlgebraic()
}

// MajorAxis returns the major axis as a segment.
func (e *Ellipse2D) MajorAxis() geometry.Segment2D {
	return geometry.NewSegment2D(e.Points[PtMajor0], e.Points[PtMajor1])
}

// recomputeEndpoints rebuilds the four axis endpoints from center, axes
// and rotation.
func (e *Ellipse2D) recomputeEndpoints() {
	mj := geometry.Point2D{X: math.Cos(e.Rotation), Y: math.Sin(e.Rotation)}
	mn := mj.Perp()
	e.Points[PtMajor0] = e.Center.Sub(mj.Scale(e.SemiMajor))
	e.Points[PtMajor1] = e.Center.Add(mj.Scale(e.SemiMajor))
	e.Points[PtMinor0] = e.Center.Sub(mn.Scale(e.SemiMinor))
	e.Points[PtMinor1] = e.Center.Add(mn.Scale(e.SemiMinor))
}

// RecomputeAlgebraic rebuilds the coefficient form from the geometric
// parameters. A zero minor axis yields the (degenerate) doubled-segment
// conic; IsDegenerate reports it as such.
func (e *Ellipse2D) RecomputeAlgebraic() {
	a2 := e.SemiMajor * e.SemiMajor
	b2 := e.SemiMinor * e.SemiMinor
	sin, cos := math.Sincos(e.Rotation)

	A := b2*cos*cos + a2*sin*sin
	B := 2 * (b2 - a2) * sin * cos
	C := b2*sin*sin + a2*cos*cos

	x0, y0 := e.Center.X, e.Center.Y
	D := -2*A*x0 - B*y0
	E := -B*x0 - 2*C*y0
	F := A*x0*x0 + B*x0*y0 + C*y0*y0 - a2*b2

	e.Coeffs = [6]float64{A, B, C, D, E, F}
}

// FromAlgebraic builds an ellipse from conic coefficients. Returns an
// error for non-elliptic or imaginary conics.
func FromAlgebraic(coeffs [6]float64) (*Ellipse2D, error) {
	A, B, C, D, E, F := coeffs[0], coeffs[1], coeffs[2], coeffs[3], coeffs[4], coeffs[5]

	disc := B*B - 4*A*C
	if disc >= 0 {
		return nil, fmt.Errorf("conic is not an ellipse: discriminant %g", disc)
	}

	// Center solves the gradient system.
	det := 4*A*C - B*B
	x0 := (B*E - 2*C*D) / det
	y0 := (B*D - 2*A*E) / det

	// Conic value at the center.
	fc := A*x0*x0 + B*x0*y0 + C*y0*y0 + D*x0 + E*y0 + F

	// Principal axes from the quadratic part.
	theta := 0.5 * math.Atan2(B, A-C)
	sin, cos := math.Sincos(theta)
	mu1 := A*cos*cos + B*sin*cos + C*sin*sin
	mu2 := A*sin*sin - B*sin*cos + C*cos*cos

	if mu1*fc >= 0 || mu2*fc >= 0 {
		return nil, fmt.Errorf("conic has no real points")
	}

	a := math.Sqrt(-fc / mu1)
	b := math.Sqrt(-fc / mu2)
	if a < b {
		a, b = b, a
		theta += math.Pi / 2
	}

	return NewEllipse2D(geometry.Point2D{X: x0, Y: y0}, a, b, theta), nil
}

// IsDegenerate reports whether the ellipse is unusable for estimation:
// non-elliptic coefficient form or a vanishing axis.
func (e *Ellipse2D) IsDegenerate() bool {
	const eps = 1e-12
	A, B, C := e.Coeffs[0], e.Coeffs[1], e.Coeffs[2]
	if B*B-4*A*C >= -eps {
		return true
	}
	return e.SemiMajor < eps || e.SemiMinor < eps
}

// ToProjected converts the ellipse from device-pixel to projected
// (camera-normalized near plane) coordinates. The device-to-projected map
// is a uniform scale plus a vertical flip, so the result is still an
// ellipse of the same shape class. The conversion is lossless.
func (e *Ellipse2D) ToProjected(p *camera.ProjectionParameters) *Ellipse2D {
	out := NewEllipse2D(
		p.DeviceToProjected(e.Center),
		e.SemiMajor*p.Scale(),
		e.SemiMinor*p.Scale(),
		-e.Rotation, // y axis flips between the two frames
	)
	// Carry the operator-drawn endpoints through the exact map rather
	// than re-deriving them, so guide-point identity is preserved.
	for i := range e.Points {
		out.Points[i] = p.DeviceToProjected(e.Points[i])
	}
	return out
}

// ToDevice is the inverse of ToProjected.
func (e *Ellipse2D) ToDevice(p *camera.ProjectionParameters) *Ellipse2D {
	out := NewEllipse2D(
		p.ProjectedToDevice(e.Center),
		e.SemiMajor/p.Scale(),
		e.SemiMinor/p.Scale(),
		-e.Rotation,
	)
	for i := range e.Points {
		out.Points[i] = p.ProjectedToDevice(e.Points[i])
	}
	return out
}

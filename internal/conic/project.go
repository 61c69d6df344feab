package conic

import (
	"fmt"
	"math"

	"tube-modeller/internal/camera"
	"tube-modeller/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ProjectCircle projects a 3D circle through the perspective camera and
// returns its image as an ellipse in projected near-plane coordinates.
//
// The projection goes through the circle's dual quadric: the image dual
// conic is P Q P^T for the 3x4 point-projection matrix P onto the near
// plane, and the point conic is its adjugate.
func ProjectCircle(c geometry.Circle3D, p *camera.ProjectionParameters) (*Ellipse2D, error) {
	if c.Radius <= 0 {
		return nil, fmt.Errorf("cannot project circle with radius %g", c.Radius)
	}
	if c.Center.Z >= 0 {
		return nil, fmt.Errorf("circle center is not in front of the camera (z=%g)", c.Center.Z)
	}

	// Homogeneous map of (x, y, z, 1) onto the z = -near plane.
	n := p.Near
	proj := mat.NewDense(3, 4, []float64{
		n, 0, 0, 0,
		0, n, 0, 0,
		0, 0, -1, 0,
	})

	q := c.DualQuadric()

	var pq, dual mat.Dense
	pq.Mul(proj, q)
	dual.Mul(&pq, proj.T())

	point := adjugate3(&dual)

	coeffs := [6]float64{
		point.At(0, 0),
		2 * point.At(0, 1),
		point.At(1, 1),
		2 * point.At(0, 2),
		2 * point.At(1, 2),
		point.At(2, 2),
	}

	// Normalize scale so downstream tolerances are meaningful.
	maxAbs := 0.0
	for _, v := range coeffs {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return nil, fmt.Errorf("projected conic vanishes")
	}
	for i := range coeffs {
		coeffs[i] /= maxAbs
	}

	return FromAlgebraic(coeffs)
}

// ProjectCircleToDevice projects a circle and converts the resulting
// ellipse into device-pixel coordinates.
func ProjectCircleToDevice(c geometry.Circle3D, p *camera.ProjectionParameters) (*Ellipse2D, error) {
	e, err := ProjectCircle(c, p)
	if err != nil {
		return nil, err
	}
	return e.ToDevice(p), nil
}

// adjugate3 returns the adjugate (transposed cofactor matrix) of a 3x3
// matrix. For a symmetric input the result is symmetric.
func adjugate3(m *mat.Dense) *mat.Dense {
	a, b, c := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	d, e, f := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	g, h, i := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	return mat.NewDense(3, 3, []float64{
		e*i - f*h, c*h - b*i, b*f - c*e,
		f*g - d*i, a*i - c*g, c*d - a*f,
		d*h - e*g, b*g - a*h, a*e - b*d,
	})
}

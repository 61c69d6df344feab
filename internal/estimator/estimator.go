// Package estimator recovers 3D circles from their 2D conic projections.
//
// An image ellipse constrains the circle that produced it only up to a
// one-parameter family lying on the cone of rays through the conic. Each
// entry point applies one additional scalar constraint (depth, radius,
// orthographic approximation, or spine orthogonality) to pin the family
// down, and returns zero, one or two candidate circles. Callers must
// check the returned count before indexing; degenerate conics yield an
// empty slice, never NaN circles.
package estimator

import (
	"math"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/conic"
	"tube-modeller/pkg/geometry"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Constraint selects the reconstruction strategy applied on top of the
// conic back-projection.
type Constraint int

const (
	// FixedDepth pins the circle center to a known z plane.
	FixedDepth Constraint = iota
	// FixedRadius pins the circle radius.
	FixedRadius
	// UnitRadius is FixedRadius at radius 1.
	UnitRadius
	// Orthographic approximates the camera with a parallel projection.
	Orthographic
	// Orthogonality anchors the first cross-section of a cylinder by
	// requiring its normal to be orthogonal to the spine tangent.
	Orthogonality
)

func (c Constraint) String() string {
	switch c {
	case FixedDepth:
		return "fixed-depth"
	case FixedRadius:
		return "fixed-radius"
	case UnitRadius:
		return "unit-radius"
	case Orthographic:
		return "orthographic"
	case Orthogonality:
		return "orthogonality"
	default:
		return "unknown"
	}
}

const (
	// twinMergeTol treats the two circular-section orientations as one
	// when the cone is this close to circular.
	twinMergeTol = 1e-9
	// degenerateTol guards divisions while solving the scalar constraint.
	degenerateTol = 1e-12
)

// coneSections holds the decomposed back-projection cone of a conic: the
// eigenframe and the derived circular-section parameters shared by all
// scalar constraints.
type coneSections struct {
	u1, u3     r3.Vec  // eigenvectors for lambda1 (largest pos) and lambda3 (neg)
	sinA, cosA float64 // section plane tilt within the u1/u3 plane
	k          float64 // center offset ratio along u1 per unit along u3
	rho        float64 // radius per unit |z0| of the family parameter
	single     bool    // circular cone: both twins coincide
}

// backProjectCone builds the ray cone through an ellipse given in
// projected near-plane coordinates and decomposes it into circular
// sections. Returns false for conics that do not back-project to a real
// cone (degenerate input).
func backProjectCone(e *conic.Ellipse2D, near float64) (coneSections, bool) {
	var cs coneSections
	if e.IsDegenerate() {
		return cs, false
	}

	A, B, C, D, E, F := e.Coeffs[0], e.Coeffs[1], e.Coeffs[2], e.Coeffs[3], e.Coeffs[4], e.Coeffs[5]
	n := near

	// Quadratic form of the cone {t*(X,Y,Z) : conic(-nX/Z, -nY/Z) = 0}.
	q := mat.NewSymDense(3, []float64{
		A * n * n, B * n * n / 2, -D * n / 2,
		B * n * n / 2, C * n * n, -E * n / 2,
		-D * n / 2, -E * n / 2, F,
	})

	var eig mat.EigenSym
	if !eig.Factorize(q, true) {
		return cs, false
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// A real cone has signature (+,+,-) up to overall sign. Eigenvalues
	// come back ascending; flip the sign so exactly one is negative.
	neg := 0
	for _, v := range vals {
		if v < 0 {
			neg++
		}
	}
	switch neg {
	case 1:
		// already (+,+,-)
	case 2:
		for i := range vals {
			vals[i] = -vals[i]
		}
		// ascending order reverses under negation
		vals[0], vals[2] = vals[2], vals[0]
		swapColumns(&vecs, 0, 2)
	default:
		return cs, false
	}

	// Ascending with one negative value: lambda3 < 0 < lambda2 <= lambda1.
	l3, l2, l1 := vals[0], vals[1], vals[2]
	if l3 >= -degenerateTol || l2 <= degenerateTol {
		return cs, false
	}

	cs.u3 = column(&vecs, 0)
	cs.u1 = column(&vecs, 2)

	span := l1 - l3
	cs.sinA = math.Sqrt(math.Max(0, (l1-l2)/span))
	cs.cosA = math.Sqrt(math.Max(0, (l2-l3)/span))
	cs.single = (l1-l2)/span < twinMergeTol

	if cs.cosA < degenerateTol {
		return cs, false
	}
	cs.k = l3 * (cs.sinA / cs.cosA) / l1
	cs.rho = math.Sqrt(-l3 * span / (l1 * (l2 - l3)))
	return cs, true
}

// circleAt materializes the circle of the family for twin branch g
// (+1/-1) and family parameter z0, oriented toward the viewer.
func (cs coneSections) circleAt(g, z0 float64) geometry.Circle3D {
	center := r3.Add(
		r3.Scale(z0*g*cs.k, cs.u1),
		r3.Scale(z0, cs.u3),
	)
	normal := r3.Add(
		r3.Scale(g*cs.sinA, cs.u1),
		r3.Scale(cs.cosA, cs.u3),
	)
	c := geometry.NewCircle3D(center, normal, math.Abs(z0)*cs.rho)
	return c.OrientToViewer()
}

// branches returns the twin branch signs to evaluate: one branch for a
// circular cone, two otherwise.
func (cs coneSections) branches() []float64 {
	if cs.single {
		return []float64{1}
	}
	return []float64{1, -1}
}

// EstimateFixedDepth back-projects an ellipse given in device-pixel
// coordinates into the circles whose centers lie on the plane z = depth
// (depth must be negative, in front of the camera). Returns 0, 1 or 2
// circles.
func EstimateFixedDepth(e *conic.Ellipse2D, p *camera.ProjectionParameters, depth float64) []geometry.Circle3D {
	cs, ok := backProjectCone(e.ToProjected(p), p.Near)
	if !ok || depth >= 0 {
		return nil
	}

	var out []geometry.Circle3D
	for _, g := range cs.branches() {
		// Center z is linear in the family parameter.
		denom := g*cs.k*cs.u1.Z + cs.u3.Z
		if math.Abs(denom) < degenerateTol {
			continue
		}
		out = append(out, cs.circleAt(g, depth/denom))
	}
	return out
}

// EstimateFixedRadius back-projects an ellipse in device-pixel
// coordinates into the circles of a known radius. The returned circles
// carry exactly the supplied radius. Returns 0, 1 or 2 circles.
func EstimateFixedRadius(e *conic.Ellipse2D, p *camera.ProjectionParameters, radius float64) []geometry.Circle3D {
	if radius <= 0 {
		return nil
	}
	cs, ok := backProjectCone(e.ToProjected(p), p.Near)
	if !ok || cs.rho < degenerateTol {
		return nil
	}

	var out []geometry.Circle3D
	for _, g := range cs.branches() {
		denom := g*cs.k*cs.u1.Z + cs.u3.Z
		if math.Abs(denom) < degenerateTol {
			continue
		}
		// Pick the family sign that puts the center in front of the camera.
		z0 := radius / cs.rho
		if z0*denom > 0 {
			z0 = -z0
		}
		c := cs.circleAt(g, z0)
		c.Radius = radius // exact by contract, not via rho round-trip
		out = append(out, c)
	}
	return out
}

// EstimateUnitRadius is EstimateFixedRadius specialized to radius 1,
// used for normalized reference reconstructions.
func EstimateUnitRadius(e *conic.Ellipse2D, p *camera.ProjectionParameters) []geometry.Circle3D {
	return EstimateFixedRadius(e, p, 1)
}

// EstimateOrthographic reconstructs the circle under a parallel
// projection approximation: the image ellipse is read as a tilted circle
// of radius equal to its semi-major axis, lying on the near plane. The
// result must be rescaled with RescalePerspective before use in the
// perspective pipeline. Returns false for degenerate input.
func EstimateOrthographic(e *conic.Ellipse2D, p *camera.ProjectionParameters) (geometry.Circle3D, bool) {
	pe := e.ToProjected(p)
	if pe.IsDegenerate() {
		return geometry.Circle3D{}, false
	}

	cosPhi := pe.SemiMinor / pe.SemiMajor
	if cosPhi > 1 {
		cosPhi = 1
	}
	sinPhi := math.Sqrt(1 - cosPhi*cosPhi)

	// Tilt is about the major axis, so the normal leans along the minor.
	sin, cos := math.Sincos(pe.Rotation)
	minorDir := geometry.Point2D{X: -sin, Y: cos}

	c := geometry.NewCircle3D(
		r3.Vec{X: pe.Center.X, Y: pe.Center.Y, Z: -p.Near},
		r3.Vec{X: minorDir.X * sinPhi, Y: minorDir.Y * sinPhi, Z: cosPhi},
		pe.SemiMajor,
	)
	return c.OrientToViewer(), true
}

// RescalePerspective moves an orthographically estimated circle from the
// near plane to the desired depth, scaling center and radius by
// depth / -near.
func RescalePerspective(c geometry.Circle3D, depth, near float64) geometry.Circle3D {
	s := depth / -near
	c.Center = r3.Scale(s, c.Center)
	c.Radius *= s
	return c
}

// EstimateOrthogonal anchors the first cross-section of a cylinder: given
// the previous profile ellipse (device coordinates) and the next spine
// sample point, it returns the pair of circles through the profile's
// major axis whose normals are orthogonal to the spine tangent. Returns
// 0 or 2 circles.
func EstimateOrthogonal(prev *conic.Ellipse2D, sample geometry.Point2D, p *camera.ProjectionParameters, depth float64) []geometry.Circle3D {
	pe := prev.ToProjected(p)
	if pe.IsDegenerate() || depth >= 0 {
		return nil
	}

	tangent2 := p.DeviceToProjected(sample).Sub(pe.Center)
	if tangent2.Length() < degenerateTol {
		return nil
	}
	t := r3.Unit(r3.Vec{X: tangent2.X, Y: tangent2.Y})

	sin, cos := math.Sincos(pe.Rotation)
	major := r3.Vec{X: cos, Y: sin}

	// The major axis is a diameter, so it lies in the circle plane and
	// the normal is orthogonal to it; orthogonality to the tangent then
	// fixes the normal up to sign.
	n := r3.Cross(major, t)
	if r3.Norm(n) < degenerateTol {
		return nil
	}
	n = r3.Unit(n)

	center := p.BackProject(pe.Center, depth)
	radius := pe.SemiMajor * math.Abs(depth) / p.Near

	return []geometry.Circle3D{
		geometry.NewCircle3D(center, n, radius),
		geometry.NewCircle3D(center, r3.Scale(-1, n), radius),
	}
}

// EstimateSegmentFixedDepth reconstructs a cross-section from its major
// axis alone, pinned to the plane z = depth. A bare segment cannot
// determine the section orientation, so the caller supplies the
// reference normal of the previous accepted section; the result's normal
// is sign-aligned with it. Returns 0 or 1 circles.
func EstimateSegmentFixedDepth(seg geometry.Segment2D, refNormal r3.Vec, p *camera.ProjectionParameters, depth float64) []geometry.Circle3D {
	if seg.Length() < degenerateTol || depth >= 0 || r3.Norm(refNormal) < degenerateTol {
		return nil
	}
	mid := p.DeviceToProjected(seg.P0).
		Add(p.DeviceToProjected(seg.P1)).Scale(0.5)
	half := p.DeviceToProjected(seg.P0).Distance(p.DeviceToProjected(seg.P1)) / 2

	c := geometry.NewCircle3D(
		p.BackProject(mid, depth),
		refNormal,
		half*math.Abs(depth)/p.Near,
	)
	return []geometry.Circle3D{c.AlignNormalTo(refNormal)}
}

// EstimateSegmentFixedRadius reconstructs a cross-section from its major
// axis alone given a known radius, solving for the depth instead.
// Returns 0 or 1 circles; the result carries exactly the supplied radius.
func EstimateSegmentFixedRadius(seg geometry.Segment2D, refNormal r3.Vec, p *camera.ProjectionParameters, radius float64) []geometry.Circle3D {
	if radius <= 0 || r3.Norm(refNormal) < degenerateTol {
		return nil
	}
	half := p.DeviceToProjected(seg.P0).Distance(p.DeviceToProjected(seg.P1)) / 2
	if half < degenerateTol {
		return nil
	}
	depth := -radius * p.Near / half
	mid := p.DeviceToProjected(seg.P0).
		Add(p.DeviceToProjected(seg.P1)).Scale(0.5)

	c := geometry.NewCircle3D(p.BackProject(mid, depth), refNormal, radius)
	return []geometry.Circle3D{c.AlignNormalTo(refNormal)}
}

func column(m *mat.Dense, j int) r3.Vec {
	return r3.Vec{X: m.At(0, j), Y: m.At(1, j), Z: m.At(2, j)}
}

func swapColumns(m *mat.Dense, i, j int) {
	for row := 0; row < 3; row++ {
		vi, vj := m.At(row, i), m.At(row, j)
		m.Set(row, i, vj)
		m.Set(row, j, vi)
	}
}

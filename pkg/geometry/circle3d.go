package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Circle3D is a planar circle in camera space: a center, a unit plane
// normal, and a radius. It is the unit of reconstruction for generalized
// cylinders; every cross-section is one of these.
type Circle3D struct {
	Center r3.Vec  `json:"center"`
	Normal r3.Vec  `json:"normal"`
	Radius float64 `json:"radius"`
}

// NewCircle3D creates a circle, normalizing the supplied normal.
func NewCircle3D(center, normal r3.Vec, radius float64) Circle3D {
	return Circle3D{Center: center, Normal: r3.Unit(normal), Radius: radius}
}

// OrientToViewer flips the normal, if necessary, so that it points toward
// the camera at the origin. Returns the (possibly flipped) circle.
func (c Circle3D) OrientToViewer() Circle3D {
	if r3.Dot(c.Normal, c.Center) > 0 {
		c.Normal = r3.Scale(-1, c.Normal)
	}
	return c
}

// AlignNormalTo flips the normal so that it agrees in sign with a
// reference direction. Used to keep cross-section orientations from
// reversing along a spine.
func (c Circle3D) AlignNormalTo(ref r3.Vec) Circle3D {
	if r3.Dot(c.Normal, ref) < 0 {
		c.Normal = r3.Scale(-1, c.Normal)
	}
	return c
}

// PlaneBasis returns two orthonormal vectors spanning the circle's plane.
func (c Circle3D) PlaneBasis() (r3.Vec, r3.Vec) {
	// Pick the world axis least aligned with the normal as a seed.
	seed := r3.Vec{X: 1}
	if math.Abs(c.Normal.X) > math.Abs(c.Normal.Y) {
		seed = r3.Vec{Y: 1}
	}
	u := r3.Unit(r3.Cross(c.Normal, seed))
	v := r3.Cross(c.Normal, u)
	return u, v
}

// PointAt returns the point on the circle at the given angle, measured
// within the plane basis returned by PlaneBasis.
func (c Circle3D) PointAt(theta float64) r3.Vec {
	u, v := c.PlaneBasis()
	p := r3.Add(
		r3.Scale(c.Radius*math.Cos(theta), u),
		r3.Scale(c.Radius*math.Sin(theta), v),
	)
	return r3.Add(c.Center, p)
}

// DualQuadric returns the 4x4 homogeneous dual (tangent-plane) quadric of
// the circle. A plane pi is tangent to the circle iff pi^T Q pi = 0. The
// matrix has rank 3; it is the disk quadric T diag(r^2, r^2, 0, -1) T^T
// where T maps the circle's local frame into camera space.
func (c Circle3D) DualQuadric() *mat.Dense {
	u, v := c.PlaneBasis()

	t := mat.NewDense(4, 4, []float64{
		u.X, v.X, c.Normal.X, c.Center.X,
		u.Y, v.Y, c.Normal.Y, c.Center.Y,
		u.Z, v.Z, c.Normal.Z, c.Center.Z,
		0, 0, 0, 1,
	})

	r2 := c.Radius * c.Radius
	d := mat.NewDiagDense(4, []float64{r2, r2, 0, -1})

	var td, q mat.Dense
	td.Mul(t, d)
	q.Mul(&td, t.T())
	return &q
}

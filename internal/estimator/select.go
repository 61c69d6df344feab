package estimator

import (
	"math"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/conic"
	"tube-modeller/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r3"
)

// SelectFirstCircle picks between the twin solutions for the base
// cross-section of a new cylinder. The candidate whose screen-projected
// normal points away from the operator-drawn minor-axis guide point is
// preferred; this matches the clockwise/counterclockwise sense in which
// the operator drew the ellipse.
//
// The index refers to the supplied slice. A single-candidate slice
// trivially selects index 0.
func SelectFirstCircle(circles []geometry.Circle3D, e *conic.Ellipse2D, p *camera.ProjectionParameters) int {
	if len(circles) < 2 {
		return 0
	}

	ctr, ok1 := p.ProjectToScreen(circles[0].Center)
	tip, ok2 := p.ProjectToScreen(r3.Add(circles[0].Center, circles[0].Normal))
	if !ok1 || !ok2 {
		return 0
	}

	projNormal := tip.Sub(ctr)
	toCenter := ctr.Sub(e.Points[conic.PtMinor0])
	if projNormal.Dot(toCenter) < 0 {
		return 0
	}
	return 1
}

// SelectParallelCircle picks the candidate whose normal is most nearly
// parallel to the previous accepted section's normal (largest absolute
// dot product). Applied at every new section, it is what keeps the
// orientation of a cylinder continuous along its spine. The selected
// circle is invariant under permutation of the candidates.
func SelectParallelCircle(circles []geometry.Circle3D, refNormal r3.Vec) int {
	if len(circles) < 2 {
		return 0
	}
	a := math.Abs(r3.Dot(refNormal, circles[0].Normal))
	b := math.Abs(r3.Dot(refNormal, circles[1].Normal))
	if a >= b {
		return 0
	}
	return 1
}

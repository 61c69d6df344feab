// Package raycast snaps candidate profile endpoints to image evidence by
// casting short rays against a binary foreground mask or a
// gradient-magnitude image.
package raycast

import (
	"math"

	"tube-modeller/internal/conic"
	"tube-modeller/pkg/geometry"
)

// DefaultTruncation limits ray length to this fraction of the
// endpoint-to-endpoint distance of the profile being refined.
const DefaultTruncation = 0.35

// Sampler walks the pixels along a ray and reports the first qualifying
// edge hit.
type Sampler interface {
	// SampleAlongRay samples from p0 toward p1 and returns whether an
	// edge was hit, where, and the sampled value at the hit.
	SampleAlongRay(p0, p1 geometry.Point2D) (hit bool, at geometry.Point2D, value float64)
}

// PixelImage is the minimal access raycast needs to an image: scalar
// values on an integer grid.
type PixelImage interface {
	ValueAt(x, y int) float64
	Bounds() geometry.Rect
}

// BinarySampler casts against a binary foreground mask. A hit is the
// first sample whose foreground membership differs from the ray origin's,
// i.e. the first boundary crossing.
type BinarySampler struct {
	Image     PixelImage
	Threshold float64 // values above are foreground
}

// SampleAlongRay implements Sampler.
func (s *BinarySampler) SampleAlongRay(p0, p1 geometry.Point2D) (bool, geometry.Point2D, float64) {
	origin := s.foreground(p0)
	var (
		found bool
		at    geometry.Point2D
		val   float64
	)
	walkRay(p0, p1, func(pt geometry.Point2D) bool {
		v := s.Image.ValueAt(int(pt.X), int(pt.Y))
		if (v > s.Threshold) != origin {
			found, at, val = true, pt, v
			return false
		}
		return true
	})
	return found, at, val
}

func (s *BinarySampler) foreground(p geometry.Point2D) bool {
	return s.Image.ValueAt(int(p.X), int(p.Y)) > s.Threshold
}

// GradientSampler casts against a gradient-magnitude image. A hit
// requires the sampled magnitude to exceed the magnitude at the ray
// origin, not merely to be the first nonzero sample; this keeps the
// profile from snapping onto weaker pre-existing texture.
type GradientSampler struct {
	Image PixelImage
}

// SampleAlongRay implements Sampler.
func (s *GradientSampler) SampleAlongRay(p0, p1 geometry.Point2D) (bool, geometry.Point2D, float64) {
	ref := s.Image.ValueAt(int(p0.X), int(p0.Y))
	var (
		found bool
		at    geometry.Point2D
		val   float64
	)
	walkRay(p0, p1, func(pt geometry.Point2D) bool {
		v := s.Image.ValueAt(int(pt.X), int(pt.Y))
		if v > ref {
			found, at, val = true, pt, v
			return false
		}
		return true
	})
	return found, at, val
}

// walkRay visits integer-spaced samples from p0 to p1, skipping the
// origin sample. The visit function returns false to stop.
func walkRay(p0, p1 geometry.Point2D, visit func(geometry.Point2D) bool) {
	d := p1.Sub(p0)
	steps := int(math.Ceil(math.Max(math.Abs(d.X), math.Abs(d.Y))))
	if steps == 0 {
		return
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		if !visit(geometry.Point2D{X: p0.X + d.X*t, Y: p0.Y + d.Y*t}) {
			return
		}
	}
}

// Refiner applies image-guided refinement to candidate profiles.
type Refiner struct {
	Sampler    Sampler
	Bounds     geometry.Rect
	Truncation float64 // fraction of the major-axis length, DefaultTruncation if zero
}

// RefineProfile snaps the profile's major-axis endpoints toward image
// edges. From each endpoint two rays are cast, one toward the profile
// center and one away, truncated and clipped to the image bounds. An
// inward hit wins over an outward one. When an endpoint moves, its
// partner is repositioned as the mirror of the movement, which keeps the
// profile center fixed. With no hits the profile is left unmodified.
func (r *Refiner) RefineProfile(profile *conic.Ellipse2D) {
	if r.Sampler == nil {
		return
	}
	factor := r.Truncation
	if factor == 0 {
		factor = DefaultTruncation
	}

	p0 := profile.Points[conic.PtMajor0]
	p1 := profile.Points[conic.PtMajor1]
	dir := p1.Sub(p0).Scale(factor)

	// Inward is +dir for p0 and -dir for p1.
	p0Hit, ok0 := r.castPair(p0, dir)
	p1Hit, ok1 := r.castPair(p1, geometry.Point2D{X: -dir.X, Y: -dir.Y})

	switch {
	case ok0:
		// p1 mirrors p0's movement through the fixed partner; if p1 also
		// hit, its own evidence is still subordinate to keeping the
		// center fixed.
		delta := p0.Sub(p0Hit)
		profile.Points[conic.PtMajor1] = p1.Add(delta)
		profile.Points[conic.PtMajor0] = p0Hit
	case ok1:
		delta := p1.Sub(p1Hit)
		profile.Points[conic.PtMajor0] = p0.Add(delta)
		profile.Points[conic.PtMajor1] = p1Hit
	default:
		return
	}

	profile.SemiMajor = profile.Points[conic.PtMajor0].Distance(profile.Center)
	profile.RecomputeAlgebraic()
}

// castPair casts the inward then outward ray from an endpoint and returns
// the preferred hit.
func (r *Refiner) castPair(from, inward geometry.Point2D) (geometry.Point2D, bool) {
	if in, ok := r.castOne(from, from.Add(inward)); ok {
		return in, true
	}
	return r.castOne(from, from.Sub(inward))
}

func (r *Refiner) castOne(from, to geometry.Point2D) (geometry.Point2D, bool) {
	seg, ok := geometry.NewSegment2D(from, to).ClipToRect(r.Bounds)
	if !ok {
		return geometry.Point2D{}, false
	}
	hit, at, _ := r.Sampler.SampleAlongRay(seg.P0, seg.P1)
	return at, hit
}

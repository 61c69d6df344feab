package geometry

// Segment2D is a line segment between two endpoints. In the modeller it
// usually represents the projected major axis of a cross-section profile.
type Segment2D struct {
	P0 Point2D `json:"p0"`
	P1 Point2D `json:"p1"`
}

// NewSegment2D creates a segment from two endpoints.
func NewSegment2D(p0, p1 Point2D) Segment2D {
	return Segment2D{P0: p0, P1: p1}
}

// Midpoint returns the segment midpoint.
func (s Segment2D) Midpoint() Point2D {
	return Point2D{X: (s.P0.X + s.P1.X) / 2, Y: (s.P0.Y + s.P1.Y) / 2}
}

// Length returns the segment length.
func (s Segment2D) Length() float64 {
	return s.P0.Distance(s.P1)
}

// HalfLength returns half the segment length.
func (s Segment2D) HalfLength() float64 {
	return s.Length() / 2
}

// Direction returns the unit vector from P0 to P1.
func (s Segment2D) Direction() Point2D {
	return s.P1.Sub(s.P0).Normalize()
}

// Translate returns the segment shifted by a vector.
func (s Segment2D) Translate(v Point2D) Segment2D {
	return Segment2D{P0: s.P0.Add(v), P1: s.P1.Add(v)}
}

// RotateAboutMidpoint returns the segment rotated about its midpoint.
func (s Segment2D) RotateAboutMidpoint(radians float64) Segment2D {
	m := s.Midpoint()
	return Segment2D{
		P0: s.P0.RotateAbout(m, radians),
		P1: s.P1.RotateAbout(m, radians),
	}
}

// ClipToRect clips the segment to a rectangle using the Liang-Barsky
// algorithm. Returns the clipped segment and false when the segment lies
// entirely outside the rectangle.
func (s Segment2D) ClipToRect(r Rect) (Segment2D, bool) {
	dx := s.P1.X - s.P0.X
	dy := s.P1.Y - s.P0.Y

	t0, t1 := 0.0, 1.0
	p := [4]float64{-dx, dx, -dy, dy}
	q := [4]float64{
		s.P0.X - r.X,
		r.X + r.Width - s.P0.X,
		s.P0.Y - r.Y,
		r.Y + r.Height - s.P0.Y,
	}

	for i := 0; i < 4; i++ {
		if p[i] == 0 {
			if q[i] < 0 {
				return Segment2D{}, false
			}
			continue
		}
		t := q[i] / p[i]
		if p[i] < 0 {
			if t > t1 {
				return Segment2D{}, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return Segment2D{}, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}

	return Segment2D{
		P0: Point2D{X: s.P0.X + t0*dx, Y: s.P0.Y + t0*dy},
		P1: Point2D{X: s.P0.X + t1*dx, Y: s.P0.Y + t1*dy},
	}, true
}

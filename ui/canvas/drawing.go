// Package canvas provides drawing primitives for the image canvas.
package canvas

import (
	"image"
	"image/color"
	"math"

	"tube-modeller/internal/conic"
	"tube-modeller/internal/cylinder"
	"tube-modeller/pkg/geometry"
)

// ellipseSegments is the number of chords used to approximate an ellipse
// outline.
const ellipseSegments = 64

// draw renders the overlay onto the output image at the given zoom.
func (o *SceneOverlay) draw(output *image.RGBA, zoom float64) {
	for _, g := range o.components {
		o.drawComponent(output, g, zoom)
	}

	if o.axisStart != nil && o.axisEnd != nil {
		drawLine(output,
			int(o.axisStart.X*zoom), int(o.axisStart.Y*zoom),
			int(o.axisEnd.X*zoom), int(o.axisEnd.Y*zoom),
			colorAxis, 2)
	}
	if o.axisStart != nil {
		drawMarker(output, int(o.axisStart.X*zoom), int(o.axisStart.Y*zoom), colorAxis)
	}

	if o.baseEllipse != nil {
		drawEllipse(output, o.baseEllipse, zoom, colorEllipse, 2)
	}
	if o.dynamic != nil {
		drawEllipse(output, o.dynamic, zoom, colorDynamic, 1)
	}

	for i := 1; i < len(o.spinePoints); i++ {
		p0, p1 := o.spinePoints[i-1], o.spinePoints[i]
		drawLine(output,
			int(p0.X*zoom), int(p0.Y*zoom),
			int(p1.X*zoom), int(p1.Y*zoom),
			colorSpine, 1)
	}
	for _, p := range o.spinePoints {
		drawMarker(output, int(p.X*zoom), int(p.Y*zoom), colorSpine)
	}
	if o.candidate != nil {
		drawMarker(output, int(o.candidate.X*zoom), int(o.candidate.Y*zoom), colorDynamic)
	}
}

// drawComponent draws a committed cylinder as its projected section
// outlines plus the projected spine.
func (o *SceneOverlay) drawComponent(output *image.RGBA, g *cylinder.GeneralizedCylinder, zoom float64) {
	if o.params == nil {
		return
	}

	for _, section := range g.Sections() {
		e, err := conic.ProjectCircleToDevice(section, o.params)
		if err != nil {
			continue
		}
		switch g.Style() {
		case cylinder.StylePoints:
			drawMarker(output, int(e.Center.X*zoom), int(e.Center.Y*zoom), colorCylinder)
		default:
			drawEllipse(output, e, zoom, colorCylinder, 1)
		}
	}

	if g.Style() == cylinder.StylePoints {
		return
	}

	var prev geometry.Point2D
	havePrev := false
	for _, v := range g.Spine() {
		pt, ok := o.params.ProjectToScreen(v)
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			drawLine(output,
				int(prev.X*zoom), int(prev.Y*zoom),
				int(pt.X*zoom), int(pt.Y*zoom),
				colorCylinder, 1)
		}
		prev = pt
		havePrev = true
	}
}

// drawEllipse draws an ellipse outline as a closed chain of chords.
func drawEllipse(output *image.RGBA, e *conic.Ellipse2D, zoom float64, col color.RGBA, thickness int) {
	cosR := math.Cos(e.Rotation)
	sinR := math.Sin(e.Rotation)

	point := func(t float64) (int, int) {
		x := e.SemiMajor * math.Cos(t)
		y := e.SemiMinor * math.Sin(t)
		px := e.Center.X + x*cosR - y*sinR
		py := e.Center.Y + x*sinR + y*cosR
		return int(px * zoom), int(py * zoom)
	}

	px0, py0 := point(0)
	for i := 1; i <= ellipseSegments; i++ {
		t := 2 * math.Pi * float64(i) / ellipseSegments
		px1, py1 := point(t)
		drawLine(output, px0, py0, px1, py1, col, thickness)
		px0, py0 = px1, py1
	}
}

// drawMarker draws a small cross centered at the given pixel.
func drawMarker(output *image.RGBA, cx, cy int, col color.RGBA) {
	const arm = 4
	drawLine(output, cx-arm, cy, cx+arm, cy, col, 1)
	drawLine(output, cx, cy-arm, cx, cy+arm, col, 1)
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					output.Set(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

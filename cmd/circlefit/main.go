// Command circlefit back-projects an image ellipse into 3D circles and
// prints the solutions.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/conic"
	"tube-modeller/internal/estimator"
	"tube-modeller/pkg/geometry"
)

func main() {
	cx := flag.Float64("cx", 0, "Ellipse center X in device pixels")
	cy := flag.Float64("cy", 0, "Ellipse center Y in device pixels")
	major := flag.Float64("a", 0, "Semi-major axis in device pixels")
	minor := flag.Float64("b", 0, "Semi-minor axis in device pixels")
	rot := flag.Float64("rot", 0, "Major-axis rotation in degrees")

	near := flag.Float64("near", 1, "Near plane distance")
	far := flag.Float64("far", 100, "Far plane distance")
	fovy := flag.Float64("fovy", 45, "Vertical field of view in degrees")
	width := flag.Float64("width", 800, "Viewport width in pixels")
	height := flag.Float64("height", 600, "Viewport height in pixels")

	strategy := flag.String("strategy", "depth", "Constraint strategy: depth, radius, unit, or ortho")
	depth := flag.Float64("depth", 0, "Center depth for the depth strategy (default: midpoint of near/far)")
	radius := flag.Float64("radius", 1, "Circle radius for the radius strategy")
	flag.Parse()

	if *major <= 0 || *minor <= 0 {
		fmt.Println("Usage: circlefit -cx <px> -cy <px> -a <px> -b <px> [-rot deg] [-strategy depth|radius|unit|ortho]")
		os.Exit(1)
	}

	params, err := camera.NewProjectionParameters(*near, *far, *fovy, *width, *height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid camera parameters: %v\n", err)
		os.Exit(1)
	}

	e := conic.NewEllipse2D(
		geometry.Point2D{X: *cx, Y: *cy},
		*major, *minor, *rot*math.Pi/180)
	if e.IsDegenerate() {
		fmt.Fprintln(os.Stderr, "Degenerate ellipse")
		os.Exit(1)
	}

	z := *depth
	if z == 0 {
		z = params.DefaultDepth()
	}

	fmt.Printf("Ellipse: center (%.1f, %.1f), axes %.1f x %.1f, rotation %.1f deg\n",
		*cx, *cy, *major, *minor, *rot)
	fmt.Printf("Camera: near %.2f far %.2f fovy %.1f viewport %.0fx%.0f\n",
		*near, *far, *fovy, *width, *height)

	var circles []geometry.Circle3D
	switch *strategy {
	case "radius":
		fmt.Printf("Strategy: fixed radius %.3f\n\n", *radius)
		circles = estimator.EstimateFixedRadius(e, params, *radius)
	case "unit":
		fmt.Printf("Strategy: unit radius\n\n")
		circles = estimator.EstimateUnitRadius(e, params)
	case "ortho":
		fmt.Printf("Strategy: orthographic, rescaled to depth %.3f\n\n", z)
		c, ok := estimator.EstimateOrthographic(e, params)
		if ok {
			circles = []geometry.Circle3D{estimator.RescalePerspective(c, z, params.Near)}
		}
	case "depth":
		fmt.Printf("Strategy: fixed depth %.3f\n\n", z)
		circles = estimator.EstimateFixedDepth(e, params, z)
	default:
		fmt.Fprintf(os.Stderr, "Unknown strategy %q\n", *strategy)
		os.Exit(1)
	}

	if len(circles) == 0 {
		fmt.Println("No solutions")
		os.Exit(1)
	}

	fmt.Printf("%d solution(s):\n", len(circles))
	for i, c := range circles {
		fmt.Printf("  [%d] center (%9.4f, %9.4f, %9.4f)  normal (%7.4f, %7.4f, %7.4f)  radius %.4f\n",
			i, c.Center.X, c.Center.Y, c.Center.Z,
			c.Normal.X, c.Normal.Y, c.Normal.Z, c.Radius)

		// Round-trip check: reproject the circle and compare.
		re, err := conic.ProjectCircleToDevice(c, params)
		if err != nil {
			fmt.Printf("      reprojection failed: %v\n", err)
			continue
		}
		fmt.Printf("      reprojects to center (%.2f, %.2f), axes %.2f x %.2f\n",
			re.Center.X, re.Center.Y, re.SemiMajor, re.SemiMinor)
	}
}

package image

import (
	"fmt"
	"image"

	"tube-modeller/pkg/geometry"

	"gocv.io/x/gocv"
)

// ScalarImage is a dense grid of scalar pixel values, the form in which
// ray casting consumes masks and gradient images.
type ScalarImage struct {
	W, H int
	Data []float64
}

// NewScalarImage allocates a zeroed scalar image.
func NewScalarImage(w, h int) *ScalarImage {
	return &ScalarImage{W: w, H: h, Data: make([]float64, w*h)}
}

// NewScalarImageFromGray converts any image to a scalar image using
// luminance.
func NewScalarImageFromGray(img image.Image) *ScalarImage {
	bounds := img.Bounds()
	s := NewScalarImage(bounds.Dx(), bounds.Dy())
	for y := 0; y < s.H; y++ {
		for x := 0; x < s.W; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			s.Data[y*s.W+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
		}
	}
	return s
}

// ValueAt returns the value at a pixel, zero outside the grid.
func (s *ScalarImage) ValueAt(x, y int) float64 {
	if x < 0 || x >= s.W || y < 0 || y >= s.H {
		return 0
	}
	return s.Data[y*s.W+x]
}

// Set writes the value at a pixel, ignoring out-of-grid writes.
func (s *ScalarImage) Set(x, y int, v float64) {
	if x < 0 || x >= s.W || y < 0 || y >= s.H {
		return
	}
	s.Data[y*s.W+x] = v
}

// Bounds returns the pixel bounds as a geometry rectangle.
func (s *ScalarImage) Bounds() geometry.Rect {
	return geometry.NewRect(0, 0, float64(s.W-1), float64(s.H-1))
}

// GradientMagnitude computes the Sobel gradient magnitude of an image.
func GradientMagnitude(img image.Image) (*ScalarImage, error) {
	mat, err := toGrayMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()

	gocv.Sobel(mat, &gx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(mat, &gy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gx, gy, &mag)

	rows, cols := mag.Rows(), mag.Cols()
	out := NewScalarImage(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Data[y*cols+x] = mag.GetDoubleAt(y, x)
		}
	}
	return out, nil
}

// toGrayMat converts a Go image to a single-channel 8-bit Mat.
func toGrayMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			mat.SetUCharAt(y, x, uint8(lum))
		}
	}
	return mat, nil
}

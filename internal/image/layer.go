// Package image provides image loading for modelling sessions: the base
// photograph, its optional binary foreground companion, and a cached
// gradient-magnitude image computed on demand.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"tube-modeller/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

// Layer holds the images backing one modelling session. The base image is
// what the operator sees; the binary companion (if present) is a
// foreground mask used by ray-cast refinement; the gradient image is the
// fallback when no companion exists.
type Layer struct {
	Path  string
	Image image.Image

	Binary   *ScalarImage // nil when no companion mask exists
	gradient *ScalarImage // computed lazily, see EnsureGradient
}

// Load loads the base image and, when present, its binary companion. A
// missing companion is not an error; refinement falls back to the
// gradient image.
func Load(path string) (*Layer, error) {
	img, err := decode(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	layer := &Layer{Path: path, Image: img}

	maskPath := companionPath(path)
	if mask, err := decode(maskPath); err == nil {
		layer.Binary = NewScalarImageFromGray(mask)
		log.Printf("loaded binary companion %s", maskPath)
	} else {
		log.Printf("no binary companion for %s", path)
	}

	return layer, nil
}

// Width returns the base image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the base image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Rect returns the image bounds as a geometry rectangle.
func (l *Layer) Rect() geometry.Rect {
	return geometry.NewRect(0, 0, float64(l.Width()-1), float64(l.Height()-1))
}

// EnsureGradient returns the cached gradient-magnitude image, computing
// it from the base image on first use.
func (l *Layer) EnsureGradient() (*ScalarImage, error) {
	if l.gradient != nil {
		return l.gradient, nil
	}
	if l.Image == nil {
		return nil, fmt.Errorf("layer has no base image")
	}
	g, err := GradientMagnitude(l.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to compute gradient image: %w", err)
	}
	l.gradient = g
	return g, nil
}

// companionPath derives the binary-mask path from the base image path:
// image.png -> image_mask.png.
func companionPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_mask" + ext
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks whether the path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// Package canvas provides overlay types for the image canvas.
package canvas

import (
	"image/color"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/conic"
	"tube-modeller/internal/cylinder"
	"tube-modeller/pkg/geometry"
)

var (
	colorAxis     = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	colorEllipse  = color.RGBA{R: 0, G: 220, B: 80, A: 255}
	colorDynamic  = color.RGBA{R: 0, G: 160, B: 255, A: 255}
	colorSpine    = color.RGBA{R: 255, G: 80, B: 80, A: 255}
	colorCylinder = color.RGBA{R: 200, G: 200, B: 220, A: 255}
)

// SceneOverlay holds the in-progress drawing state and the projected
// outlines of committed cylinders. It receives drawing feedback from the
// modeller and registers finished components for display.
type SceneOverlay struct {
	params *camera.ProjectionParameters

	axisStart   *geometry.Point2D
	axisEnd     *geometry.Point2D
	baseEllipse *conic.Ellipse2D
	dynamic     *conic.Ellipse2D
	spinePoints []geometry.Point2D
	candidate   *geometry.Point2D

	components []*cylinder.GeneralizedCylinder

	refresh func()
}

// NewSceneOverlay creates an overlay for the given projection.
func NewSceneOverlay(params *camera.ProjectionParameters) *SceneOverlay {
	return &SceneOverlay{params: params}
}

// OnChange sets a callback fired whenever the overlay content changes.
func (o *SceneOverlay) OnChange(callback func()) {
	o.refresh = callback
}

func (o *SceneOverlay) changed() {
	if o.refresh != nil {
		o.refresh()
	}
}

// InitializeMajorAxisDrawing starts the axis preview at the first endpoint.
func (o *SceneOverlay) InitializeMajorAxisDrawing(p geometry.Point2D) {
	o.axisStart = &p
	o.axisEnd = nil
	o.changed()
}

// UpdateMajorAxisPoint moves the trailing axis endpoint with the pointer.
func (o *SceneOverlay) UpdateMajorAxisPoint(p geometry.Point2D) {
	o.axisEnd = &p
	o.changed()
}

// InitializeMinorAxisDrawing freezes the axis and starts the ellipse preview.
func (o *SceneOverlay) InitializeMinorAxisDrawing(p geometry.Point2D) {
	o.axisEnd = &p
	o.changed()
}

// UpdateBaseEllipse updates the forming base ellipse.
func (o *SceneOverlay) UpdateBaseEllipse(e *conic.Ellipse2D) {
	o.baseEllipse = e.Clone()
	o.changed()
}

// InitializeSpineDrawing locks the base ellipse and starts the spine trail.
func (o *SceneOverlay) InitializeSpineDrawing(e *conic.Ellipse2D) {
	o.baseEllipse = e.Clone()
	o.axisStart = nil
	o.axisEnd = nil
	o.spinePoints = o.spinePoints[:0]
	o.changed()
}

// AddSpinePoint appends a committed spine sample.
func (o *SceneOverlay) AddSpinePoint(p geometry.Point2D) {
	o.spinePoints = append(o.spinePoints, p)
	o.candidate = nil
	o.changed()
}

// SpinePointCandidate previews the pointer position as the next sample.
func (o *SceneOverlay) SpinePointCandidate(p geometry.Point2D) {
	o.candidate = &p
	o.changed()
}

// UpdateDynamicEllipse updates the profile following the pointer.
func (o *SceneOverlay) UpdateDynamicEllipse(e *conic.Ellipse2D) {
	o.dynamic = e.Clone()
	o.changed()
}

// Reset clears all in-progress drawing state. Committed components stay.
func (o *SceneOverlay) Reset() {
	o.axisStart = nil
	o.axisEnd = nil
	o.baseEllipse = nil
	o.dynamic = nil
	o.spinePoints = o.spinePoints[:0]
	o.candidate = nil
	o.changed()
}

// AddSelectableNode registers a cylinder for display. The same cylinder
// grows in place as sections are committed, so registering it once is
// enough.
func (o *SceneOverlay) AddSelectableNode(g *cylinder.GeneralizedCylinder, id uint) {
	for _, c := range o.components {
		if c.ComponentID() == id {
			return
		}
	}
	o.components = append(o.components, g)
	o.changed()
}

// Clear removes every registered component and all drawing state.
func (o *SceneOverlay) Clear() {
	o.components = nil
	o.Reset()
}

// Components returns the registered cylinders.
func (o *SceneOverlay) Components() []*cylinder.GeneralizedCylinder {
	out := make([]*cylinder.GeneralizedCylinder, len(o.components))
	copy(out, o.components)
	return out
}

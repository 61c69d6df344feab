// Package cylinder implements the generalized-cylinder model: an ordered
// sequence of 3D circular cross-sections along a spine.
package cylinder

import (
	"fmt"

	"tube-modeller/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r3"
)

// RenderStyle tags how a cylinder should be displayed by the external
// rendering layer.
type RenderStyle int

const (
	StyleTriangleStrip RenderStyle = iota
	StyleWireframe
	StylePoints
)

func (s RenderStyle) String() string {
	switch s {
	case StyleTriangleStrip:
		return "triangle-strip"
	case StyleWireframe:
		return "wireframe"
	case StylePoints:
		return "points"
	default:
		return "unknown"
	}
}

// componentIDSource assigns component identifiers. Single writer: the
// interaction model is strictly synchronous, so no locking is needed.
// IDs are never reused, even after deletion.
var componentIDSource uint = 0

// NextComponentID returns the next process-wide component identifier.
func NextComponentID() uint {
	componentIDSource++
	return componentIDSource
}

// ResetComponentIDs restarts the identifier sequence. Only meant to be
// called when an explicitly new modelling session begins.
func ResetComponentIDs() {
	componentIDSource = 0
}

// GeneralizedCylinder is one modelled component: a non-empty ordered
// sequence of circular cross-sections. Sections are appended at the tail
// in spine traversal order.
type GeneralizedCylinder struct {
	id       uint
	style    RenderStyle
	sections []geometry.Circle3D

	// cached derived geometry, rebuilt by Update
	spine []r3.Vec
}

// NewGeneralizedCylinder creates a cylinder from its base cross-section.
func NewGeneralizedCylinder(id uint, first geometry.Circle3D) *GeneralizedCylinder {
	g := &GeneralizedCylinder{
		id:       id,
		sections: []geometry.Circle3D{first},
	}
	g.Update()
	return g
}

// ComponentID returns the unique component identifier.
func (g *GeneralizedCylinder) ComponentID() uint {
	return g.id
}

// Style returns the rendering-style tag.
func (g *GeneralizedCylinder) Style() RenderStyle {
	return g.style
}

// SetStyle sets the rendering-style tag.
func (g *GeneralizedCylinder) SetStyle(s RenderStyle) {
	g.style = s
}

// AddPlanarSection appends a cross-section at the tail and refreshes the
// cached derived geometry.
func (g *GeneralizedCylinder) AddPlanarSection(c geometry.Circle3D) {
	g.sections = append(g.sections, c)
	g.Update()
}

// DeleteLastSection removes the tail section. Removing the only section
// is rejected; a single-section component should be deleted wholesale
// instead.
func (g *GeneralizedCylinder) DeleteLastSection() error {
	if len(g.sections) <= 1 {
		return fmt.Errorf("component %d has a single section; delete the component instead", g.id)
	}
	g.sections = g.sections[:len(g.sections)-1]
	g.Update()
	return nil
}

// ReplaceSection overwrites an existing section in place. Used when the
// first section is retroactively corrected once the spine direction is
// known. Callers must follow up with Recalculate.
func (g *GeneralizedCylinder) ReplaceSection(i int, c geometry.Circle3D) error {
	if i < 0 || i >= len(g.sections) {
		return fmt.Errorf("section index %d out of range (have %d)", i, len(g.sections))
	}
	g.sections[i] = c
	return nil
}

// Recalculate re-derives cached state after an in-place section edit.
func (g *GeneralizedCylinder) Recalculate() {
	g.Update()
}

// Update recomputes cached derived geometry. The spine polyline is the
// only derived state maintained here; silhouette guides belong to the
// rendering layer, which specializes on top of Sections.
func (g *GeneralizedCylinder) Update() {
	g.spine = g.spine[:0]
	for _, s := range g.sections {
		g.spine = append(g.spine, s.Center)
	}
}

// SectionCount returns the number of cross-sections.
func (g *GeneralizedCylinder) SectionCount() int {
	return len(g.sections)
}

// Sections returns a copy of the ordered cross-section sequence.
func (g *GeneralizedCylinder) Sections() []geometry.Circle3D {
	out := make([]geometry.Circle3D, len(g.sections))
	copy(out, g.sections)
	return out
}

// LastSection returns the tail cross-section.
func (g *GeneralizedCylinder) LastSection() geometry.Circle3D {
	return g.sections[len(g.sections)-1]
}

// FirstSection returns the base cross-section.
func (g *GeneralizedCylinder) FirstSection() geometry.Circle3D {
	return g.sections[0]
}

// Spine returns a copy of the cached spine polyline.
func (g *GeneralizedCylinder) Spine() []r3.Vec {
	out := make([]r3.Vec, len(g.spine))
	copy(out, g.spine)
	return out
}

package modeller

import (
	"tube-modeller/internal/conic"
	"tube-modeller/internal/cylinder"
	"tube-modeller/pkg/geometry"
)

// DrawingMode is the interaction state of the modeller. The mode advances
// with left clicks and cycles back to Mode0 when a cylinder is finished
// or cancelled.
type DrawingMode int

const (
	// Mode0 is idle, awaiting the first click.
	Mode0 DrawingMode = iota
	// Mode1 is major-axis drawing: the first endpoint is down, the
	// second follows the pointer.
	Mode1
	// Mode2 is minor-axis drawing: the base ellipse is forming.
	Mode2
	// Mode3 is spine drawing: cross-sections are committed along the
	// pointer path.
	Mode3
)

func (m DrawingMode) String() string {
	switch m {
	case Mode0:
		return "mode_0"
	case Mode1:
		return "mode_1"
	case Mode2:
		return "mode_2"
	case Mode3:
		return "mode_3"
	default:
		return "invalid"
	}
}

// SpineMode selects how spine samples are committed in Mode3.
type SpineMode int

const (
	// PiecewiseLinear commits a cross-section per left click; a right
	// click commits and ends the cylinder.
	PiecewiseLinear SpineMode = iota
	// Continuous commits automatically when the pointer travels beyond a
	// distance threshold; a left click ends the cylinder.
	Continuous
)

// SpineConstraint restricts how the dynamic profile follows the pointer.
type SpineConstraint int

const (
	// ConstraintNone lets the profile rotate with the bend of the spine.
	ConstraintNone SpineConstraint = iota
	// StraightPlanar translates the profile without rotation.
	StraightPlanar
)

// UIHelper receives drawing feedback as the interaction advances. All
// methods are optional hooks for a display layer; the modeller functions
// with a nil helper.
type UIHelper interface {
	InitializeMajorAxisDrawing(p geometry.Point2D)
	UpdateMajorAxisPoint(p geometry.Point2D)
	InitializeMinorAxisDrawing(p geometry.Point2D)
	UpdateBaseEllipse(e *conic.Ellipse2D)
	InitializeSpineDrawing(e *conic.Ellipse2D)
	AddSpinePoint(p geometry.Point2D)
	SpinePointCandidate(p geometry.Point2D)
	UpdateDynamicEllipse(e *conic.Ellipse2D)
	Reset()
}

// DisplaySink registers in-progress components with the external scene
// layer, keyed by component id.
type DisplaySink interface {
	AddSelectableNode(g *cylinder.GeneralizedCylinder, id uint)
}

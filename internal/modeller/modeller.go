// Package modeller drives generalized-cylinder reconstruction from
// pointer events: a finite-state click protocol builds a base ellipse,
// then walks a spine, estimating one 3D cross-section per sample.
package modeller

import (
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/conic"
	"tube-modeller/internal/cylinder"
	"tube-modeller/internal/estimator"
	"tube-modeller/internal/raycast"
	"tube-modeller/internal/solver"
	"tube-modeller/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r3"
)

// continuousThresholdSq is the squared pointer travel (device units)
// beyond which continuous spine mode auto-commits a cross-section.
const continuousThresholdSq = 100.0

// Modeller is the interaction state machine. It is strictly synchronous:
// each pointer event is processed to completion before the next one, and
// all state here is owned by the event thread.
type Modeller struct {
	params *camera.ProjectionParameters
	solver *solver.ModelSolver

	display DisplaySink      // optional
	ui      UIHelper         // optional
	refiner *raycast.Refiner // optional ray-cast snapping

	mode            DrawingMode
	spineMode       SpineMode
	spineConstraint SpineConstraint
	style           cylinder.RenderStyle

	constraint      estimator.Constraint // reconstruction strategy
	fixedRadius     float64              // radius for the FixedRadius strategy
	segmentProfiles bool                 // estimate later sections from the major axis only
	anchorFirst     bool                 // retro-correct the first section from the spine tangent
	anchored        bool

	leftClick  bool
	rightClick bool
	mouse      geometry.Point2D
	vertices   []geometry.Point2D

	ellipse        *conic.Ellipse2D // base ellipse under construction
	lastProfile    *conic.Ellipse2D // last committed profile
	dynamicProfile *conic.Ellipse2D // preview profile, scratch state

	firstCircle geometry.Circle3D // orientation anchor for the cylinder
	lastCircle  geometry.Circle3D
	gcyl        *cylinder.GeneralizedCylinder
}

// New creates a modeller for one session.
func New(params *camera.ProjectionParameters) *Modeller {
	return &Modeller{
		params:      params,
		solver:      solver.NewModelSolver(),
		constraint:  estimator.FixedDepth,
		fixedRadius: 1,
		ellipse:     conic.NewEllipse2D(geometry.Point2D{}, 0, 0, 0),
	}
}

// Solver returns the registry of completed components.
func (m *Modeller) Solver() *solver.ModelSolver {
	return m.solver
}

// SetDisplaySink sets the scene-layer sink for new components.
func (m *Modeller) SetDisplaySink(d DisplaySink) { m.display = d }

// SetUIHelper sets the drawing-feedback hook.
func (m *Modeller) SetUIHelper(u UIHelper) { m.ui = u }

// SetRefiner enables image-guided profile refinement.
func (m *Modeller) SetRefiner(r *raycast.Refiner) { m.refiner = r }

// SetSpineMode selects piecewise-linear or continuous spine drawing.
func (m *Modeller) SetSpineMode(s SpineMode) { m.spineMode = s }

// SetSpineConstraint selects the spine bending constraint.
func (m *Modeller) SetSpineConstraint(c SpineConstraint) { m.spineConstraint = c }

// SetRenderStyle tags new components with a rendering style.
func (m *Modeller) SetRenderStyle(s cylinder.RenderStyle) { m.style = s }

// SetConstraint selects the reconstruction strategy for new sections.
func (m *Modeller) SetConstraint(c estimator.Constraint, fixedRadius float64) {
	m.constraint = c
	if fixedRadius > 0 {
		m.fixedRadius = fixedRadius
	}
}

// SetSegmentProfiles toggles major-axis-only estimation for sections
// after the base ellipse.
func (m *Modeller) SetSegmentProfiles(on bool) { m.segmentProfiles = on }

// SetAnchorFirstSection toggles retroactive correction of the first
// section under the spine orthogonality constraint.
func (m *Modeller) SetAnchorFirstSection(on bool) { m.anchorFirst = on }

// Mode returns the current drawing mode.
func (m *Modeller) Mode() DrawingMode { return m.mode }

// CurrentCylinder returns the cylinder under construction, nil outside
// Mode3.
func (m *Modeller) CurrentCylinder() *cylinder.GeneralizedCylinder { return m.gcyl }

// BaseEllipse returns the base ellipse state.
func (m *Modeller) BaseEllipse() *conic.Ellipse2D { return m.ellipse }

// DynamicProfile returns the current preview profile, nil when none.
func (m *Modeller) DynamicProfile() *conic.Ellipse2D { return m.dynamicProfile }

// VertexCount returns the number of accumulated click vertices.
func (m *Modeller) VertexCount() int { return len(m.vertices) }

// OnLeftClick feeds a left click at device coordinates.
func (m *Modeller) OnLeftClick(x, y float64) {
	m.leftClick = true
	m.mouse = geometry.Point2D{X: x, Y: y}
	m.vertices = append(m.vertices, m.mouse)
	m.modelUpdate()
}

// OnRightClick feeds a right click at device coordinates. Right clicks
// are meaningful only during spine drawing and are ignored elsewhere.
func (m *Modeller) OnRightClick(x, y float64) {
	if m.mode != Mode3 {
		return
	}
	m.rightClick = true
	m.mouse = geometry.Point2D{X: x, Y: y}
	m.vertices = append(m.vertices, m.mouse)
	m.modelUpdate()
}

// OnMouseMove feeds a pointer move at device coordinates. Moves update
// live previews only and never commit model state directly; in
// continuous spine mode they may auto-commit past the travel threshold.
func (m *Modeller) OnMouseMove(x, y float64) {
	if m.mode == Mode0 {
		return
	}
	m.mouse = geometry.Point2D{X: x, Y: y}
	m.modelUpdate()
}

// Cancel discards the cylinder under construction and resets the
// interaction to idle. Completed components are unaffected.
func (m *Modeller) Cancel() {
	if m.gcyl != nil {
		log.Printf("cancelled component %d", m.gcyl.ComponentID())
	}
	m.reset()
}

// modelUpdate advances the state machine for the latest event.
func (m *Modeller) modelUpdate() {
	switch m.mode {
	case Mode0:
		if m.leftClick {
			m.leftClick = false
			m.uiInitMajorAxis(m.mouse)
			m.mode = Mode1
		}

	case Mode1:
		if m.leftClick {
			// Second click fixes the major axis.
			m.leftClick = false
			m.ellipse.UpdateMajorAxis(m.vertices[0], m.vertices[1])
			m.uiInitMinorAxis(m.mouse)
			m.mode = Mode2
		} else {
			m.uiUpdateMajorAxisPoint(m.mouse)
		}

	case Mode2:
		m.calculateEllipse()
		if m.leftClick {
			m.leftClick = false
			if m.initializeSpineDrawing() {
				m.uiInitSpine(m.ellipse)
				m.mode = Mode3
			} else {
				// Estimation failed: drop the click so the operator can
				// retry from unchanged state.
				m.vertices = m.vertices[:len(m.vertices)-1]
			}
		}

	case Mode3:
		switch m.spineMode {
		case Continuous:
			m.updateContinuousSpine()
		case PiecewiseLinear:
			m.updatePiecewiseSpine()
		}
	}
}

// updatePiecewiseSpine handles Mode3 in piecewise-linear spine mode.
func (m *Modeller) updatePiecewiseSpine() {
	m.generateDynamicProfile()

	switch {
	case m.rightClick:
		// Right click commits the final section and ends the component.
		m.rightClick = false
		m.uiAddSpinePoint(m.mouse)
		if m.commitDynamicProfile() {
			m.finishComponent()
		}
	case m.leftClick:
		m.leftClick = false
		m.uiAddSpinePoint(m.mouse)
		m.commitDynamicProfile()
	default:
		m.uiSpineCandidate(m.mouse)
		m.uiUpdateDynamicEllipse(m.dynamicProfile)
	}
}

// updateContinuousSpine handles Mode3 in continuous spine mode.
func (m *Modeller) updateContinuousSpine() {
	if m.leftClick {
		// The click point is the last sample; commit it and finish.
		m.leftClick = false
		m.generateDynamicProfile()
		if m.commitDynamicProfile() {
			m.finishComponent()
		}
		return
	}

	// Auto-commit once the pointer travels far enough from the last
	// committed sample point.
	travel := m.mouse.Sub(m.lastProfile.Points[conic.PtMinor0])
	if travel.LengthSq() > continuousThresholdSq {
		m.generateDynamicProfile()
		m.commitDynamicProfile()
	}
}

// initializeSpineDrawing finalizes the base ellipse, estimates its 3D
// circle and creates the cylinder. Returns false when the conic is too
// degenerate to back-project.
func (m *Modeller) initializeSpineDrawing() bool {
	// Replace the raw click with its projection on the minor-axis guide.
	m.vertices[len(m.vertices)-1] = m.ellipse.Points[conic.PtMinor0]

	circles := m.estimateProfileCircles(m.ellipse)
	if len(circles) == 0 {
		log.Printf("base ellipse back-projection failed (degenerate conic)")
		return false
	}

	selected := circles[estimator.SelectFirstCircle(circles, m.ellipse, m.params)]
	m.firstCircle = selected
	m.lastCircle = selected

	m.gcyl = cylinder.NewGeneralizedCylinder(cylinder.NextComponentID(), selected)
	m.gcyl.SetStyle(m.style)
	m.anchored = false
	if m.display != nil {
		m.display.AddSelectableNode(m.gcyl, m.gcyl.ComponentID())
	}

	m.lastProfile = m.ellipse.Clone()
	return true
}

// calculateEllipse updates the base ellipse from the pointer position in
// Mode2. The pointer is projected onto the minor-axis guide segment (the
// perpendicular diameter of the circle over the major axis); positions
// projecting outside the guide leave the ellipse untouched.
func (m *Modeller) calculateEllipse() {
	mj := m.ellipse.Points[conic.PtMajor1].Sub(m.ellipse.Points[conic.PtMajor0])
	mn := mj.Perp().Normalize()

	g0 := m.ellipse.Center.Sub(mn.Scale(m.ellipse.SemiMajor))
	g1 := m.ellipse.Center.Add(mn.Scale(m.ellipse.SemiMajor))

	v1 := m.mouse.Sub(g0)
	v2 := g1.Sub(g0)

	ratio := v1.Dot(v2) / v2.Dot(v2)
	if ratio < 0 || ratio > 1 {
		return
	}

	proj := g0.Add(v2.Normalize().Scale(2 * ratio * m.ellipse.SemiMajor))
	m.ellipse.UpdateMinorAxis(proj)
	m.uiUpdateBaseEllipse(m.ellipse)
}

// generateDynamicProfile recomputes the preview profile from the last
// committed profile and the pointer position: a rotation following the
// spine bend (unless the straight-planar constraint is active) plus a
// translation that puts the profile's leading sample point under the
// pointer, optionally refined against the image.
func (m *Modeller) generateDynamicProfile() {
	m.dynamicProfile = m.lastProfile.Clone()

	lead := m.lastProfile.Points[conic.PtMinor0]
	v1 := m.mouse.Sub(lead)

	if m.spineConstraint != StraightPlanar {
		v2 := m.lastProfile.Points[conic.PtMinor1].Sub(lead).Normalize()
		if v1.Length() > 0 && v2.Length() > 0 {
			cosAngle := v1.Dot(v2) / v1.Length()
			angle := math.Acos(math.Max(-1, math.Min(1, cosAngle)))

			sign := 1.0
			if angle > math.Pi/2 {
				angle = math.Pi - angle
				sign = -1
			}

			switch orientation := v2.Cross(v1); {
			case orientation > 0:
				m.dynamicProfile.Rotate(sign * angle)
			case orientation < 0:
				m.dynamicProfile.Rotate(-sign * angle)
			}
		}
		m.dynamicProfile.Translate(m.mouse.Sub(m.dynamicProfile.Points[conic.PtMinor0]))
	} else {
		m.dynamicProfile.Translate(v1)
	}

	if m.refiner != nil {
		m.refiner.RefineProfile(m.dynamicProfile)
	}
}

// commitDynamicProfile estimates the 3D circle of the preview profile and
// appends it to the cylinder. On estimation failure the committed state
// is left unchanged so the operator can retry; the return reports
// whether a section was appended.
func (m *Modeller) commitDynamicProfile() bool {
	circles := m.estimateSectionCircles(m.dynamicProfile)
	if len(circles) == 0 {
		log.Printf("cross-section back-projection failed; sample ignored")
		return false
	}

	selected := circles[estimator.SelectParallelCircle(circles, m.lastCircle.Normal)]
	selected = selected.AlignNormalTo(m.lastCircle.Normal)

	m.lastProfile = m.dynamicProfile.Clone()
	m.lastCircle = selected
	m.gcyl.AddPlanarSection(selected)

	if m.anchorFirst && !m.anchored {
		m.anchorFirstSection()
	}
	return true
}

// anchorFirstSection retroactively replaces the first cross-section with
// one whose normal is orthogonal to the initial spine tangent, now that
// the tangent is known from the first committed sample.
func (m *Modeller) anchorFirstSection() {
	m.anchored = true
	pair := estimator.EstimateOrthogonal(m.ellipse, m.mouse, m.params, m.params.DefaultDepth())
	if len(pair) == 0 {
		log.Printf("orthogonality anchor failed; keeping initial first section")
		return
	}
	anchor := pair[estimator.SelectParallelCircle(pair, m.firstCircle.Normal)]
	anchor = anchor.AlignNormalTo(m.firstCircle.Normal)
	if err := m.gcyl.ReplaceSection(0, anchor); err != nil {
		log.Printf("orthogonality anchor: %v", err)
		return
	}
	m.gcyl.Recalculate()
	m.firstCircle = anchor
}

// finishComponent hands the cylinder to the solver and resets the
// interaction for the next component.
func (m *Modeller) finishComponent() {
	m.solver.AddComponent(m.gcyl)
	m.reset()
}

// estimateProfileCircles back-projects a full conic profile with the
// selected strategy.
func (m *Modeller) estimateProfileCircles(profile *conic.Ellipse2D) []geometry.Circle3D {
	depth := m.params.DefaultDepth()

	switch m.constraint {
	case estimator.FixedRadius:
		return estimator.EstimateFixedRadius(profile, m.params, m.fixedRadius)
	case estimator.UnitRadius:
		return estimator.EstimateUnitRadius(profile, m.params)
	case estimator.Orthographic:
		c, ok := estimator.EstimateOrthographic(profile, m.params)
		if !ok {
			return nil
		}
		return []geometry.Circle3D{estimator.RescalePerspective(c, depth, m.params.Near)}
	default:
		return estimator.EstimateFixedDepth(profile, m.params, depth)
	}
}

// estimateSectionCircles back-projects a later cross-section, optionally
// from its major axis alone.
func (m *Modeller) estimateSectionCircles(profile *conic.Ellipse2D) []geometry.Circle3D {
	if !m.segmentProfiles {
		return m.estimateProfileCircles(profile)
	}
	seg := profile.MajorAxis()
	if m.constraint == estimator.FixedRadius || m.constraint == estimator.UnitRadius {
		radius := m.fixedRadius
		if m.constraint == estimator.UnitRadius {
			radius = 1
		}
		return estimator.EstimateSegmentFixedRadius(seg, m.lastCircle.Normal, m.params, radius)
	}
	return estimator.EstimateSegmentFixedDepth(seg, m.lastCircle.Normal, m.params, m.params.DefaultDepth())
}

// reset returns the machine to idle, clearing all per-component state.
func (m *Modeller) reset() {
	m.mode = Mode0
	m.leftClick = false
	m.rightClick = false
	m.vertices = m.vertices[:0]
	m.ellipse = conic.NewEllipse2D(geometry.Point2D{}, 0, 0, 0)
	m.lastProfile = nil
	m.dynamicProfile = nil
	m.gcyl = nil
	m.anchored = false
	m.firstCircle = geometry.Circle3D{}
	m.lastCircle = geometry.Circle3D{}
	m.uiReset()
}

// SaveModel writes a plain-text dump of all completed components.
// Saving with nothing modelled is an invalid operation.
func (m *Modeller) SaveModel(path string) error {
	comps := m.solver.Components()
	if len(comps) == 0 {
		return fmt.Errorf("no valid component to save")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "components %d\n", len(comps))
	for _, g := range comps {
		fmt.Fprintf(&b, "component %d style %s sections %d\n",
			g.ComponentID(), g.Style(), g.SectionCount())
		for _, s := range g.Sections() {
			fmt.Fprintf(&b, "  center %.6f %.6f %.6f normal %.6f %.6f %.6f radius %.6f\n",
				s.Center.X, s.Center.Y, s.Center.Z,
				s.Normal.X, s.Normal.Y, s.Normal.Z, s.Radius)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

// SpineTangent returns the unit 3D tangent between the last two spine
// samples of the cylinder under construction, used by consumers deriving
// per-section frames. False when fewer than two sections exist.
func (m *Modeller) SpineTangent() (r3.Vec, bool) {
	if m.gcyl == nil || m.gcyl.SectionCount() < 2 {
		return r3.Vec{}, false
	}
	spine := m.gcyl.Spine()
	t := r3.Sub(spine[len(spine)-1], spine[len(spine)-2])
	if r3.Norm(t) == 0 {
		return r3.Vec{}, false
	}
	return r3.Unit(t), true
}

// ui helper wrappers, nil-safe

func (m *Modeller) uiInitMajorAxis(p geometry.Point2D) {
	if m.ui != nil {
		m.ui.InitializeMajorAxisDrawing(p)
	}
}

func (m *Modeller) uiUpdateMajorAxisPoint(p geometry.Point2D) {
	if m.ui != nil {
		m.ui.UpdateMajorAxisPoint(p)
	}
}

func (m *Modeller) uiInitMinorAxis(p geometry.Point2D) {
	if m.ui != nil {
		m.ui.InitializeMinorAxisDrawing(p)
	}
}

func (m *Modeller) uiUpdateBaseEllipse(e *conic.Ellipse2D) {
	if m.ui != nil {
		m.ui.UpdateBaseEllipse(e)
	}
}

func (m *Modeller) uiInitSpine(e *conic.Ellipse2D) {
	if m.ui != nil {
		m.ui.InitializeSpineDrawing(e)
	}
}

func (m *Modeller) uiAddSpinePoint(p geometry.Point2D) {
	if m.ui != nil {
		m.ui.AddSpinePoint(p)
	}
}

func (m *Modeller) uiSpineCandidate(p geometry.Point2D) {
	if m.ui != nil {
		m.ui.SpinePointCandidate(p)
	}
}

func (m *Modeller) uiUpdateDynamicEllipse(e *conic.Ellipse2D) {
	if m.ui != nil {
		m.ui.UpdateDynamicEllipse(e)
	}
}

func (m *Modeller) uiReset() {
	if m.ui != nil {
		m.ui.Reset()
	}
}

package modeller

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/conic"
	"tube-modeller/internal/cylinder"
	"tube-modeller/internal/estimator"
	"tube-modeller/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/spatial/r3"
)

// Component identifiers come from package-global state in cylinder, so
// none of these tests run in parallel.

// uiRecorder records the order of drawing-feedback calls.
type uiRecorder struct {
	calls []string
}

func (u *uiRecorder) record(name string) { u.calls = append(u.calls, name) }

func (u *uiRecorder) InitializeMajorAxisDrawing(geometry.Point2D) { u.record("initMajor") }
func (u *uiRecorder) UpdateMajorAxisPoint(geometry.Point2D)       { u.record("updateMajor") }
func (u *uiRecorder) InitializeMinorAxisDrawing(geometry.Point2D) { u.record("initMinor") }
func (u *uiRecorder) UpdateBaseEllipse(*conic.Ellipse2D)          { u.record("updateBase") }
func (u *uiRecorder) InitializeSpineDrawing(*conic.Ellipse2D)     { u.record("initSpine") }
func (u *uiRecorder) AddSpinePoint(geometry.Point2D)              { u.record("addSpinePoint") }
func (u *uiRecorder) SpinePointCandidate(geometry.Point2D)        { u.record("candidate") }
func (u *uiRecorder) UpdateDynamicEllipse(*conic.Ellipse2D)       { u.record("updateDynamic") }
func (u *uiRecorder) Reset()                                      { u.record("reset") }

func (u *uiRecorder) count(name string) int {
	n := 0
	for _, c := range u.calls {
		if c == name {
			n++
		}
	}
	return n
}

// displayRecorder records component registrations.
type displayRecorder struct {
	ids []uint
}

func (d *displayRecorder) AddSelectableNode(g *cylinder.GeneralizedCylinder, id uint) {
	d.ids = append(d.ids, id)
}

func newTestModeller(t *testing.T) (*Modeller, *uiRecorder, *displayRecorder) {
	t.Helper()
	cylinder.ResetComponentIDs()
	p, err := camera.NewProjectionParameters(1, 100, 45, 800, 600)
	require.NoError(t, err)

	m := New(p)
	ui := &uiRecorder{}
	disp := &displayRecorder{}
	m.SetUIHelper(ui)
	m.SetDisplaySink(disp)
	return m, ui, disp
}

// drawBase clicks out a horizontal base ellipse centered on the viewport,
// major radius 50, minor radius 30, leaving the modeller in spine drawing
// with the last sample point at (400, 270).
func drawBase(t *testing.T, m *Modeller) {
	t.Helper()
	m.OnLeftClick(350, 300)
	m.OnLeftClick(450, 300)
	m.OnLeftClick(400, 270)
	require.Equal(t, Mode3, m.Mode())
}

func TestModeProgression(t *testing.T) {
	m, ui, disp := newTestModeller(t)
	assert.Equal(t, Mode0, m.Mode())

	m.OnLeftClick(350, 300)
	assert.Equal(t, Mode1, m.Mode())
	assert.Equal(t, 1, m.VertexCount())

	m.OnMouseMove(420, 305)
	assert.Equal(t, Mode1, m.Mode())
	assert.Equal(t, 1, ui.count("updateMajor"))

	m.OnLeftClick(450, 300)
	assert.Equal(t, Mode2, m.Mode())

	e := m.BaseEllipse()
	assert.Equal(t, geometry.Point2D{X: 400, Y: 300}, e.Center)
	assert.InDelta(t, 50, e.SemiMajor, 1e-12)
	assert.InDelta(t, 0, e.Rotation, 1e-12)

	m.OnLeftClick(400, 270)
	assert.Equal(t, Mode3, m.Mode())
	require.NotNil(t, m.CurrentCylinder())
	assert.Equal(t, 1, m.CurrentCylinder().SectionCount())
	assert.Equal(t, []uint{m.CurrentCylinder().ComponentID()}, disp.ids)
	assert.Equal(t, 1, ui.count("initSpine"))
}

func TestMinorAxisFollowsGuideProjection(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.OnLeftClick(350, 300)
	m.OnLeftClick(450, 300)

	// The pointer is projected onto the perpendicular guide through the
	// center; at a fifth of the way along it the minor radius is 30.
	m.OnMouseMove(400, 270)
	e := m.BaseEllipse()
	assert.InDelta(t, 30, e.SemiMinor, 1e-12)
	assert.Equal(t, geometry.Point2D{X: 400, Y: 270}, e.Points[conic.PtMinor0])

	// Positions projecting outside the guide leave the ellipse alone.
	m.OnMouseMove(400, 400)
	assert.InDelta(t, 30, m.BaseEllipse().SemiMinor, 1e-12)
	assert.Equal(t, geometry.Point2D{X: 400, Y: 270}, m.BaseEllipse().Points[conic.PtMinor0])
}

func TestDegenerateBaseEllipseKeepsMode2(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.OnLeftClick(350, 300)
	m.OnLeftClick(450, 300)

	// Clicking on the guide midpoint collapses the minor axis; the
	// back-projection fails and the click is dropped.
	m.OnLeftClick(400, 300)
	assert.Equal(t, Mode2, m.Mode())
	assert.Equal(t, 2, m.VertexCount())
	assert.Nil(t, m.CurrentCylinder())
}

func TestPiecewiseSpine(t *testing.T) {
	m, ui, _ := newTestModeller(t)
	drawBase(t, m)

	// A move previews without committing.
	m.OnMouseMove(400, 250)
	assert.Equal(t, 1, m.CurrentCylinder().SectionCount())
	assert.NotNil(t, m.DynamicProfile())
	assert.GreaterOrEqual(t, ui.count("updateDynamic"), 1)
	assert.GreaterOrEqual(t, ui.count("candidate"), 1)

	// Left click commits one section per click.
	m.OnLeftClick(400, 200)
	assert.Equal(t, 2, m.CurrentCylinder().SectionCount())
	assert.Equal(t, Mode3, m.Mode())

	// Right click commits the final section and finishes the component.
	m.OnRightClick(400, 150)
	assert.Equal(t, Mode0, m.Mode())
	assert.Nil(t, m.CurrentCylinder())
	assert.Equal(t, 0, m.VertexCount())

	comps := m.Solver().Components()
	require.Len(t, comps, 1)
	assert.Equal(t, 3, comps[0].SectionCount())
	assert.Equal(t, 1, ui.count("reset"))
}

func TestContinuousSpineAutoCommit(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.SetSpineMode(Continuous)
	drawBase(t, m)

	// Travel is measured from the last committed sample at (400, 270).
	m.OnMouseMove(400, 265)
	assert.Equal(t, 1, m.CurrentCylinder().SectionCount())

	// The threshold is strict: landing exactly on it does not commit.
	m.OnMouseMove(400, 260)
	assert.Equal(t, 1, m.CurrentCylinder().SectionCount())

	m.OnMouseMove(400, 255)
	assert.Equal(t, 2, m.CurrentCylinder().SectionCount())

	// Left click commits the final sample and finishes.
	m.OnLeftClick(400, 240)
	assert.Equal(t, Mode0, m.Mode())
	comps := m.Solver().Components()
	require.Len(t, comps, 1)
	assert.Equal(t, 3, comps[0].SectionCount())
}

func TestRightClickIgnoredOutsideSpineDrawing(t *testing.T) {
	m, _, _ := newTestModeller(t)

	m.OnRightClick(100, 100)
	assert.Equal(t, Mode0, m.Mode())
	assert.Equal(t, 0, m.VertexCount())

	m.OnLeftClick(350, 300)
	m.OnRightClick(100, 100)
	assert.Equal(t, Mode1, m.Mode())
	assert.Equal(t, 1, m.VertexCount())
}

func TestCancelDiscardsWorkInProgress(t *testing.T) {
	m, ui, _ := newTestModeller(t)
	drawBase(t, m)
	m.OnLeftClick(400, 200)

	m.Cancel()
	assert.Equal(t, Mode0, m.Mode())
	assert.Nil(t, m.CurrentCylinder())
	assert.Equal(t, 0, m.Solver().ComponentCount())
	assert.Equal(t, 1, ui.count("reset"))

	// The machine accepts a fresh component afterwards.
	drawBase(t, m)
	m.OnRightClick(400, 200)
	assert.Equal(t, 1, m.Solver().ComponentCount())
}

func TestDynamicProfileRotatesWithSpineBend(t *testing.T) {
	m, _, _ := newTestModeller(t)
	drawBase(t, m)

	// A diagonal move bends the spine 45 degrees and the preview profile
	// rotates with it.
	m.OnMouseMove(450, 220)
	require.NotNil(t, m.DynamicProfile())
	assert.InDelta(t, math.Pi/4, m.DynamicProfile().Rotation, 1e-9)
	lead := m.DynamicProfile().Points[conic.PtMinor0]
	assert.InDelta(t, 450, lead.X, 1e-9)
	assert.InDelta(t, 220, lead.Y, 1e-9)
}

func TestStraightPlanarConstraintTranslatesOnly(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.SetSpineConstraint(StraightPlanar)
	drawBase(t, m)

	m.OnMouseMove(450, 220)
	require.NotNil(t, m.DynamicProfile())
	assert.InDelta(t, 0, m.DynamicProfile().Rotation, 1e-12)
}

func TestFixedRadiusStrategy(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.SetConstraint(estimator.FixedRadius, 2)
	drawBase(t, m)

	assert.Equal(t, 2.0, m.CurrentCylinder().FirstSection().Radius)

	m.OnRightClick(400, 200)
	comps := m.Solver().Components()
	require.Len(t, comps, 1)
	for _, s := range comps[0].Sections() {
		assert.Equal(t, 2.0, s.Radius)
	}
}

func TestSegmentProfileEstimation(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.SetSegmentProfiles(true)
	drawBase(t, m)

	first := m.CurrentCylinder().FirstSection()
	m.OnLeftClick(400, 200)
	require.Equal(t, 2, m.CurrentCylinder().SectionCount())

	last := m.CurrentCylinder().LastSection()
	assert.Greater(t, last.Radius, 0.0)
	// Section orientation never flips along the spine.
	assert.Greater(t, r3.Dot(first.Normal, last.Normal), 0.0)
}

func TestAnchorFirstSection(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.SetAnchorFirstSection(true)
	drawBase(t, m)

	m.OnLeftClick(400, 200)
	require.Equal(t, 2, m.CurrentCylinder().SectionCount())

	// The first section is retroactively made orthogonal to the initial
	// spine tangent, which here runs straight up the view.
	n := m.CurrentCylinder().FirstSection().Normal
	assert.InDelta(t, 0, n.Y, 1e-9)
	assert.InDelta(t, 1, math.Abs(n.Z), 1e-6)
}

func TestRenderStyleTagsNewComponents(t *testing.T) {
	m, _, _ := newTestModeller(t)
	m.SetRenderStyle(cylinder.StyleWireframe)
	drawBase(t, m)

	assert.Equal(t, cylinder.StyleWireframe, m.CurrentCylinder().Style())
}

func TestSpineTangent(t *testing.T) {
	m, _, _ := newTestModeller(t)

	_, ok := m.SpineTangent()
	assert.False(t, ok)

	drawBase(t, m)
	_, ok = m.SpineTangent()
	assert.False(t, ok)

	m.OnLeftClick(400, 200)
	tangent, ok := m.SpineTangent()
	require.True(t, ok)
	assert.InDelta(t, 1, r3.Norm(tangent), 1e-12)
}

func TestSaveModel(t *testing.T) {
	m, _, _ := newTestModeller(t)

	// Saving with nothing modelled is rejected.
	path := filepath.Join(t.TempDir(), "model.txt")
	assert.Error(t, m.SaveModel(path))

	drawBase(t, m)
	m.OnRightClick(400, 200)
	require.NoError(t, m.SaveModel(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "components 1")
	assert.Contains(t, string(data), "sections 2")
	assert.Contains(t, string(data), "radius")
}

func TestComponentsGetDistinctIDs(t *testing.T) {
	m, _, disp := newTestModeller(t)

	drawBase(t, m)
	m.OnRightClick(400, 200)
	drawBase(t, m)
	m.OnRightClick(400, 200)

	require.Len(t, disp.ids, 2)
	assert.NotEqual(t, disp.ids[0], disp.ids[1])
}

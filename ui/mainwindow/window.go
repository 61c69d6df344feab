// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"

	"tube-modeller/internal/camera"
	"tube-modeller/internal/cylinder"
	"tube-modeller/internal/estimator"
	tubeimage "tube-modeller/internal/image"
	"tube-modeller/internal/modeller"
	"tube-modeller/internal/raycast"
	"tube-modeller/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const prefKeyLastDir = "lastDirectory"

// Config carries the camera parameters used when an image is opened. The
// viewport size comes from the image itself.
type Config struct {
	Near float64
	Far  float64
	FOVY float64
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app fyne.App
	cfg Config

	canvas    *canvas.ModellingCanvas
	overlay   *canvas.SceneOverlay
	modeller  *modeller.Modeller
	params    *camera.ProjectionParameters
	layer     *tubeimage.Layer
	statusBar *widget.Label

	refineEnabled bool
}

// New creates a new main window.
func New(fyneApp fyne.App, cfg Config) *MainWindow {
	win := fyneApp.NewWindow("Tube Modeller")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		cfg:    cfg,
	}

	mw.setupUI()
	mw.setupMenus()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewModellingCanvas()
	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar, // top
		nil,     // bottom
		nil,     // left
		nil,     // right
		mw.canvas.Container(), // center
	)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		canvasArea,                        // center
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1024, 768))
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", func() {
		mw.canvas.ZoomOut()
	})
	zoomInBtn := widget.NewButton("+", func() {
		mw.canvas.ZoomIn()
	})
	fitBtn := widget.NewButton("Fit", func() {
		mw.canvas.SetFitToWindow(!mw.canvas.FitToWindowEnabled())
	})
	actualBtn := widget.NewButton("1:1", func() {
		mw.canvas.SetFitToWindow(false)
		mw.canvas.SetZoom(1.0)
	})

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		actualBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Model...", mw.onSaveModel),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Cancel Drawing", mw.onCancelDrawing),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete All Components", mw.onDeleteAll),
	)

	drawMenu := fyne.NewMenu("Draw",
		fyne.NewMenuItem("Piecewise Spine", func() {
			mw.setSpineMode(modeller.PiecewiseLinear, "piecewise")
		}),
		fyne.NewMenuItem("Continuous Spine", func() {
			mw.setSpineMode(modeller.Continuous, "continuous")
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Free Sections", func() {
			mw.setSpineConstraint(modeller.ConstraintNone, "free sections")
		}),
		fyne.NewMenuItem("Straight Planar Sections", func() {
			mw.setSpineConstraint(modeller.StraightPlanar, "straight planar sections")
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Fixed Depth Strategy", func() {
			mw.setConstraint(estimator.FixedDepth, 0)
		}),
		fyne.NewMenuItem("Unit Radius Strategy", func() {
			mw.setConstraint(estimator.UnitRadius, 0)
		}),
		fyne.NewMenuItem("Orthographic Strategy", func() {
			mw.setConstraint(estimator.Orthographic, 0)
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Toggle Image Refinement", mw.onToggleRefinement),
	)

	styleMenu := fyne.NewMenu("Style",
		fyne.NewMenuItem("Triangle Strip", func() {
			mw.setRenderStyle(cylinder.StyleTriangleStrip)
		}),
		fyne.NewMenuItem("Wireframe", func() {
			mw.setRenderStyle(cylinder.StyleWireframe)
		}),
		fyne.NewMenuItem("Points", func() {
			mw.setRenderStyle(cylinder.StylePoints)
		}),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.canvas.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.canvas.ZoomOut),
		fyne.NewMenuItem("Fit to Window", func() { mw.canvas.SetFitToWindow(true) }),
		fyne.NewMenuItem("Actual Size", func() {
			mw.canvas.SetFitToWindow(false)
			mw.canvas.SetZoom(1.0)
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, drawMenu, styleMenu, viewMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// OpenImage loads a photograph and starts a modelling session over it.
func (mw *MainWindow) OpenImage(path string) error {
	layer, err := tubeimage.Load(path)
	if err != nil {
		return err
	}

	params, err := camera.NewProjectionParameters(
		mw.cfg.Near, mw.cfg.Far, mw.cfg.FOVY,
		float64(layer.Width()), float64(layer.Height()))
	if err != nil {
		return err
	}

	mw.layer = layer
	mw.params = params
	mw.canvas.SetLayer(layer)

	mw.overlay = canvas.NewSceneOverlay(params)
	mw.overlay.OnChange(mw.canvas.Refresh)
	mw.canvas.SetOverlay(mw.overlay)

	mw.modeller = modeller.New(params)
	mw.modeller.SetUIHelper(mw.overlay)
	mw.modeller.SetDisplaySink(mw.overlay)
	if mw.refineEnabled {
		mw.applyRefiner()
	}

	mw.canvas.OnLeftClick(func(x, y float64) {
		mw.modeller.OnLeftClick(x, y)
		mw.updateModeStatus()
	})
	mw.canvas.OnRightClick(func(x, y float64) {
		mw.modeller.OnRightClick(x, y)
		mw.updateModeStatus()
	})
	mw.canvas.OnMouseMove(func(x, y float64) {
		mw.modeller.OnMouseMove(x, y)
	})

	mw.SetTitle("Tube Modeller - " + filepath.Base(path))
	mw.updateStatus("Image loaded: " + path)
	return nil
}

// applyRefiner wires image-guided refinement from the loaded layer,
// preferring the binary companion over the gradient fallback.
func (mw *MainWindow) applyRefiner() {
	if mw.layer == nil || mw.modeller == nil {
		return
	}

	var sampler raycast.Sampler
	if mw.layer.Binary != nil {
		sampler = &raycast.BinarySampler{Image: mw.layer.Binary, Threshold: 0.5}
	} else {
		gradient, err := mw.layer.EnsureGradient()
		if err != nil {
			mw.updateStatus("Refinement unavailable: " + err.Error())
			mw.refineEnabled = false
			return
		}
		sampler = &raycast.GradientSampler{Image: gradient}
	}

	mw.modeller.SetRefiner(&raycast.Refiner{
		Sampler: sampler,
		Bounds:  mw.layer.Rect(),
	})
}

// updateModeStatus reflects the drawing mode and model size in the
// status bar.
func (mw *MainWindow) updateModeStatus() {
	if mw.modeller == nil {
		return
	}
	mw.updateStatus(fmt.Sprintf("%s | components: %d",
		mw.modeller.Mode(), mw.modeller.Solver().ComponentCount()))
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// Menu action handlers

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.OpenImage(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(tubeimage.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveModel() {
	if mw.modeller == nil {
		mw.updateStatus("No model to save")
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		mw.saveLastDir(path)
		if err := mw.modeller.SaveModel(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Model saved: " + path)
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onCancelDrawing() {
	if mw.modeller == nil {
		return
	}
	mw.modeller.Cancel()
	mw.updateModeStatus()
}

func (mw *MainWindow) onDeleteAll() {
	if mw.modeller == nil {
		return
	}
	mw.modeller.Cancel()
	mw.modeller.Solver().DeleteAllComponents()
	mw.overlay.Clear()
	mw.updateModeStatus()
}

func (mw *MainWindow) onToggleRefinement() {
	mw.refineEnabled = !mw.refineEnabled
	if mw.modeller == nil {
		return
	}
	if mw.refineEnabled {
		mw.applyRefiner()
		mw.updateStatus("Image refinement on")
	} else {
		mw.modeller.SetRefiner(nil)
		mw.updateStatus("Image refinement off")
	}
}

func (mw *MainWindow) setSpineMode(s modeller.SpineMode, label string) {
	if mw.modeller == nil {
		return
	}
	mw.modeller.SetSpineMode(s)
	mw.updateStatus("Spine mode: " + label)
}

func (mw *MainWindow) setSpineConstraint(c modeller.SpineConstraint, label string) {
	if mw.modeller == nil {
		return
	}
	mw.modeller.SetSpineConstraint(c)
	mw.updateStatus("Spine constraint: " + label)
}

func (mw *MainWindow) setConstraint(c estimator.Constraint, fixedRadius float64) {
	if mw.modeller == nil {
		return
	}
	mw.modeller.SetConstraint(c, fixedRadius)
	mw.updateStatus("Strategy: " + c.String())
}

func (mw *MainWindow) setRenderStyle(s cylinder.RenderStyle) {
	if mw.modeller == nil {
		return
	}
	mw.modeller.SetRenderStyle(s)
	mw.updateStatus("Render style: " + s.String())
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About",
		"Tube Modeller\n\nInteractive reconstruction of generalized cylinders\nfrom a single photograph.",
		mw.Window)
}

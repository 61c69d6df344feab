// Package canvas provides an image canvas with zoom and modelling overlays.
package canvas

import (
	"image"
	"image/color"

	tubeimage "tube-modeller/internal/image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

// ModellingCanvas displays the source photograph and draws the modelling
// overlay on top of it. Pointer events are reported in image pixel
// coordinates regardless of zoom.
type ModellingCanvas struct {
	widget.BaseWidget

	layer   *tubeimage.Layer
	overlay *SceneOverlay

	raster *fynecanvas.Raster
	zoom   float64

	scroll  *zoomScroll
	content *pointerContent
	imgSize fyne.Size

	fitToWindow    bool
	lastScrollSize fyne.Size

	onZoomChange func(zoom float64)
	onLeftClick  func(x, y float64)
	onRightClick func(x, y float64)
	onMouseMove  func(x, y float64)
}

// zoomScroll wraps a scroll container but intercepts the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ModellingCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *ModellingCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// pointerContent wraps the raster to handle mouse events.
type pointerContent struct {
	widget.BaseWidget
	canvas *ModellingCanvas
	raster *fynecanvas.Raster
}

var _ desktop.Hoverable = (*pointerContent)(nil)

func newPointerContent(mc *ModellingCanvas, raster *fynecanvas.Raster) *pointerContent {
	pc := &pointerContent{
		canvas: mc,
		raster: raster,
	}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *pointerContent) CreateRenderer() fyne.WidgetRenderer {
	return &pointerContentRenderer{content: pc}
}

func (pc *pointerContent) MinSize() fyne.Size {
	return pc.raster.MinSize()
}

func (pc *pointerContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		pc.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		pc.canvas.ZoomOut()
	}
}

// imageCoords converts a widget-relative event position to image pixel
// coordinates. ok is false when the event falls outside the widget.
func (pc *pointerContent) imageCoords(pos fyne.Position) (x, y float64, ok bool) {
	// Workaround for Fyne bug: reject events outside widget bounds
	size := pc.Size()
	if pos.X < 0 || pos.Y < 0 || pos.X > size.Width || pos.Y > size.Height {
		return 0, 0, false
	}

	offset := pc.canvas.scroll.Offset()
	canvasX := float64(pos.X + offset.X)
	canvasY := float64(pos.Y + offset.Y)
	return canvasX / pc.canvas.zoom, canvasY / pc.canvas.zoom, true
}

// Tapped handles left-click events.
func (pc *pointerContent) Tapped(ev *fyne.PointEvent) {
	if pc.canvas.onLeftClick == nil {
		return
	}
	if x, y, ok := pc.imageCoords(ev.Position); ok {
		pc.canvas.onLeftClick(x, y)
	}
}

// TappedSecondary handles right-click events.
func (pc *pointerContent) TappedSecondary(ev *fyne.PointEvent) {
	if pc.canvas.onRightClick == nil {
		return
	}
	if x, y, ok := pc.imageCoords(ev.Position); ok {
		pc.canvas.onRightClick(x, y)
	}
}

func (pc *pointerContent) MouseIn(ev *desktop.MouseEvent) {}

func (pc *pointerContent) MouseMoved(ev *desktop.MouseEvent) {
	if pc.canvas.onMouseMove == nil {
		return
	}
	if x, y, ok := pc.imageCoords(ev.Position); ok {
		pc.canvas.onMouseMove(x, y)
	}
}

func (pc *pointerContent) MouseOut() {}

type pointerContentRenderer struct {
	content *pointerContent
}

func (r *pointerContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *pointerContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *pointerContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *pointerContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *pointerContentRenderer) Destroy() {}

// NewModellingCanvas creates a new canvas.
func NewModellingCanvas() *ModellingCanvas {
	mc := &ModellingCanvas{
		zoom:    1.0,
		imgSize: fyne.NewSize(400, 300),
	}

	mc.raster = fynecanvas.NewRaster(mc.draw)
	mc.raster.ScaleMode = fynecanvas.ImageScalePixels
	mc.raster.SetMinSize(mc.imgSize)

	mc.content = newPointerContent(mc, mc.raster)
	mc.scroll = newZoomScroll(mc.content, mc)

	mc.ExtendBaseWidget(mc)
	return mc
}

// Container returns the canvas container for embedding in layouts.
func (mc *ModellingCanvas) Container() fyne.CanvasObject {
	return mc.scroll
}

// SetLayer sets the photograph layer to display.
func (mc *ModellingCanvas) SetLayer(layer *tubeimage.Layer) {
	mc.layer = layer
	mc.updateContentSize()
}

// Layer returns the current photograph layer.
func (mc *ModellingCanvas) Layer() *tubeimage.Layer {
	return mc.layer
}

// SetOverlay attaches the modelling overlay drawn above the photograph.
func (mc *ModellingCanvas) SetOverlay(overlay *SceneOverlay) {
	mc.overlay = overlay
	mc.Refresh()
}

// Overlay returns the attached modelling overlay.
func (mc *ModellingCanvas) Overlay() *SceneOverlay {
	return mc.overlay
}

// SetZoom sets the zoom level.
func (mc *ModellingCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	mc.zoom = zoom
	mc.updateContentSize()

	if mc.onZoomChange != nil {
		mc.onZoomChange(zoom)
	}
}

// Zoom returns the current zoom level.
func (mc *ModellingCanvas) Zoom() float64 {
	return mc.zoom
}

// ZoomIn increases the zoom level.
func (mc *ModellingCanvas) ZoomIn() {
	mc.SetZoom(mc.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (mc *ModellingCanvas) ZoomOut() {
	mc.SetZoom(mc.zoom / zoomStep)
}

// FitToWindow adjusts zoom to fit the image in the visible area.
func (mc *ModellingCanvas) FitToWindow() {
	bounds := mc.layerBounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}

	viewSize := mc.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(bounds.Dx())
	zoomY := float64(viewSize.Height) / float64(bounds.Dy())

	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}

	mc.SetZoom(zoom * 0.95)
}

// SetFitToWindow enables or disables auto-fit on resize.
func (mc *ModellingCanvas) SetFitToWindow(fit bool) {
	mc.fitToWindow = fit
	if fit {
		mc.FitToWindow()
	}
}

// FitToWindowEnabled reports the current fit-to-window state.
func (mc *ModellingCanvas) FitToWindowEnabled() bool {
	return mc.fitToWindow
}

// CheckResize checks if the scroll container was resized and auto-fits
// if enabled.
func (mc *ModellingCanvas) CheckResize(size fyne.Size) {
	if !mc.fitToWindow {
		return
	}
	if size.Width > 0 && size.Height > 0 && size != mc.lastScrollSize {
		mc.lastScrollSize = size
		mc.FitToWindow()
	}
}

// OnZoomChange sets a callback for zoom changes.
func (mc *ModellingCanvas) OnZoomChange(callback func(zoom float64)) {
	mc.onZoomChange = callback
}

// OnLeftClick sets a callback for left-click events.
// Coordinates are in image space (not zoomed).
func (mc *ModellingCanvas) OnLeftClick(callback func(x, y float64)) {
	mc.onLeftClick = callback
}

// OnRightClick sets a callback for right-click events.
// Coordinates are in image space (not zoomed).
func (mc *ModellingCanvas) OnRightClick(callback func(x, y float64)) {
	mc.onRightClick = callback
}

// OnMouseMove sets a callback for pointer motion.
// Coordinates are in image space (not zoomed).
func (mc *ModellingCanvas) OnMouseMove(callback func(x, y float64)) {
	mc.onMouseMove = callback
}

// Refresh refreshes the canvas display.
func (mc *ModellingCanvas) Refresh() {
	mc.raster.Refresh()
}

// layerBounds returns the bounds of the photograph layer.
func (mc *ModellingCanvas) layerBounds() image.Rectangle {
	if mc.layer == nil || mc.layer.Image == nil {
		return image.Rectangle{}
	}
	b := mc.layer.Image.Bounds()
	return image.Rect(0, 0, b.Dx(), b.Dy())
}

// updateContentSize updates the content size based on image and zoom.
func (mc *ModellingCanvas) updateContentSize() {
	bounds := mc.layerBounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		mc.imgSize = fyne.NewSize(400, 300)
	} else {
		width := float32(float64(bounds.Dx()) * mc.zoom)
		height := float32(float64(bounds.Dy()) * mc.zoom)
		mc.imgSize = fyne.NewSize(width, height)
	}

	mc.raster.SetMinSize(mc.imgSize)
	mc.raster.Resize(mc.imgSize)
	if mc.content != nil {
		mc.content.Resize(mc.imgSize)
		mc.content.Refresh()
	}
	mc.raster.Refresh()
	if mc.scroll != nil {
		mc.scroll.Refresh()
	}
}

// draw is the raster drawing function.
func (mc *ModellingCanvas) draw(w, h int) image.Image {
	currentSize := fyne.NewSize(float32(w), float32(h))
	if mc.fitToWindow && currentSize != mc.lastScrollSize && w > 0 && h > 0 {
		mc.lastScrollSize = currentSize
		// Schedule fit after this draw completes
		go func() {
			mc.FitToWindow()
		}()
	}

	output := image.NewRGBA(image.Rect(0, 0, w, h))

	// Black background
	for i := 3; i < len(output.Pix); i += 4 {
		output.Pix[i] = 255
	}

	mc.compositeLayer(output, w, h)

	if mc.overlay != nil {
		mc.overlay.draw(output, mc.zoom)
	}

	return output
}

// compositeLayer draws the photograph onto the output at the current zoom.
func (mc *ModellingCanvas) compositeLayer(output *image.RGBA, w, h int) {
	if mc.layer == nil || mc.layer.Image == nil {
		return
	}
	src := mc.layer.Image
	srcBounds := src.Bounds()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcX := int(float64(x)/mc.zoom) + srcBounds.Min.X
			srcY := int(float64(y)/mc.zoom) + srcBounds.Min.Y
			if srcX < srcBounds.Min.X || srcX >= srcBounds.Max.X ||
				srcY < srcBounds.Min.Y || srcY >= srcBounds.Max.Y {
				continue
			}
			sr, sg, sb, _ := src.At(srcX, srcY).RGBA()
			output.Set(x, y, color.RGBA{uint8(sr >> 8), uint8(sg >> 8), uint8(sb >> 8), 255})
		}
	}
}

// ImageToCanvas converts image coordinates to canvas coordinates.
func (mc *ModellingCanvas) ImageToCanvas(imgX, imgY float64) (canvasX, canvasY float64) {
	canvasX = imgX * mc.zoom
	canvasY = imgY * mc.zoom
	return
}

// CanvasToImage converts canvas coordinates to image coordinates.
func (mc *ModellingCanvas) CanvasToImage(canvasX, canvasY float64) (imgX, imgY float64) {
	imgX = canvasX / mc.zoom
	imgY = canvasY / mc.zoom
	return
}

// CreateRenderer implements fyne.Widget.
func (mc *ModellingCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &modellingCanvasRenderer{canvas: mc}
}

type modellingCanvasRenderer struct {
	canvas *ModellingCanvas
}

func (r *modellingCanvasRenderer) Layout(size fyne.Size) {
	if r.canvas.scroll != nil {
		r.canvas.scroll.Resize(size)
	} else if r.canvas.content != nil {
		r.canvas.content.Resize(size)
	}
	r.canvas.CheckResize(size)
}

func (r *modellingCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *modellingCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *modellingCanvasRenderer) Objects() []fyne.CanvasObject {
	if r.canvas.scroll != nil {
		return []fyne.CanvasObject{r.canvas.scroll}
	}
	return []fyne.CanvasObject{r.canvas.content}
}

func (r *modellingCanvasRenderer) Destroy() {}

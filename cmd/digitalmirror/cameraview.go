package main

import (
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/liptakmatyas/digital-mirror/internal/view"
)

// Scroll events arrive as a burst with no explicit end; the gesture is
// considered over once this long passes without another event.
const scrollSettleDelay = 300 * time.Millisecond

// CameraView shows the rendered frame and translates pointer gestures
// into machine events: press-and-hold freezes, double-tap locks, drags
// and scrolls pan. In stroke mode the pointer paints mask strokes
// instead and the machine is left alone.
type CameraView struct {
	widget.BaseWidget

	machine *view.Machine
	img     *canvas.Image
	minSize fyne.Size

	mu          sync.Mutex
	frameW      int
	frameH      int
	scrollTimer *time.Timer

	strokeMode bool
	stroke     []image.Point
	onStroke   func(path []image.Point)
}

var _ fyne.Widget = &CameraView{}
var _ desktop.Mouseable = &CameraView{}
var _ fyne.Draggable = &CameraView{}
var _ fyne.Scrollable = &CameraView{}
var _ fyne.DoubleTappable = &CameraView{}

func NewCameraView(machine *view.Machine, minSize fyne.Size) *CameraView {
	cv := &CameraView{
		machine: machine,
		minSize: minSize,
	}
	cv.ExtendBaseWidget(cv)
	cv.img = &canvas.Image{}
	cv.img.FillMode = canvas.ImageFillContain
	return cv
}

func (cv *CameraView) CreateRenderer() fyne.WidgetRenderer {
	return &cameraViewRenderer{cv: cv}
}

func (cv *CameraView) MinSize() fyne.Size {
	return cv.minSize
}

// Update replaces the displayed image. Called from the display loop.
func (cv *CameraView) Update(img image.Image) {
	cv.mu.Lock()
	if img != nil {
		b := img.Bounds()
		cv.frameW = b.Dx()
		cv.frameH = b.Dy()
	}
	cv.mu.Unlock()

	cv.img.Image = img
	cv.img.Refresh()
}

// SetStrokeMode routes pointer input to mask painting instead of the
// freeze/pan gestures.
func (cv *CameraView) SetStrokeMode(enabled bool) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	cv.strokeMode = enabled
	cv.stroke = nil
}

// SetStrokeHandler registers the callback that receives completed
// stroke segments in frame coordinates.
func (cv *CameraView) SetStrokeHandler(fn func(path []image.Point)) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	cv.onStroke = fn
}

func (cv *CameraView) MouseDown(ev *desktop.MouseEvent) {
	cv.mu.Lock()
	if cv.strokeMode {
		if pt, ok := cv.toFrameLocked(ev.Position); ok {
			cv.stroke = []image.Point{pt}
		}
		cv.mu.Unlock()
		return
	}
	cv.mu.Unlock()

	cv.machine.HoldPress()
}

func (cv *CameraView) MouseUp(_ *desktop.MouseEvent) {
	if cv.flushStroke() {
		return
	}
	cv.machine.Release()
}

func (cv *CameraView) DoubleTapped(_ *fyne.PointEvent) {
	cv.mu.Lock()
	strokeMode := cv.strokeMode
	cv.mu.Unlock()

	if strokeMode {
		return
	}
	cv.machine.DoubleTap()
}

func (cv *CameraView) Dragged(ev *fyne.DragEvent) {
	cv.mu.Lock()
	if cv.strokeMode {
		if pt, ok := cv.toFrameLocked(ev.Position); ok {
			cv.stroke = append(cv.stroke, pt)
		}
		cv.mu.Unlock()
		return
	}
	scale := cv.frameScaleLocked()
	cv.mu.Unlock()

	if scale <= 0 {
		return
	}

	cv.machine.DragStart()
	cv.machine.Drag(float64(ev.Dragged.DX)/scale, float64(ev.Dragged.DY)/scale)
}

func (cv *CameraView) DragEnd() {
	if cv.flushStroke() {
		return
	}
	cv.machine.DragEnd()
}

func (cv *CameraView) Scrolled(ev *fyne.ScrollEvent) {
	cv.mu.Lock()
	if cv.strokeMode {
		cv.mu.Unlock()
		return
	}
	scale := cv.frameScaleLocked()

	if cv.scrollTimer != nil {
		cv.scrollTimer.Stop()
	}
	cv.scrollTimer = time.AfterFunc(scrollSettleDelay, cv.machine.ScrollEnd)
	cv.mu.Unlock()

	if scale <= 0 {
		return
	}
	cv.machine.Scroll(float64(ev.Scrolled.DX)/scale, float64(ev.Scrolled.DY)/scale)
}

// flushStroke delivers the in-progress stroke to the handler. Reports
// whether stroke mode consumed the event.
func (cv *CameraView) flushStroke() bool {
	cv.mu.Lock()
	if !cv.strokeMode {
		cv.mu.Unlock()
		return false
	}
	path := cv.stroke
	cv.stroke = nil
	fn := cv.onStroke
	cv.mu.Unlock()

	if fn != nil && len(path) > 0 {
		fn(path)
	}
	return true
}

// frameScaleLocked is the displayed-to-frame pixel ratio under
// ImageFillContain. Zero when no frame has been shown yet.
func (cv *CameraView) frameScaleLocked() float64 {
	if cv.frameW <= 0 || cv.frameH <= 0 {
		return 0
	}

	size := cv.Size()
	sx := float64(size.Width) / float64(cv.frameW)
	sy := float64(size.Height) / float64(cv.frameH)
	if sy < sx {
		return sy
	}
	return sx
}

// toFrameLocked maps a widget position to frame pixel coordinates,
// accounting for the letterbox around a contained image.
func (cv *CameraView) toFrameLocked(pos fyne.Position) (image.Point, bool) {
	scale := cv.frameScaleLocked()
	if scale <= 0 {
		return image.Point{}, false
	}

	size := cv.Size()
	offX := (float64(size.Width) - float64(cv.frameW)*scale) / 2
	offY := (float64(size.Height) - float64(cv.frameH)*scale) / 2

	x := int((float64(pos.X) - offX) / scale)
	y := int((float64(pos.Y) - offY) / scale)
	if x < 0 || y < 0 || x >= cv.frameW || y >= cv.frameH {
		return image.Point{}, false
	}
	return image.Pt(x, y), true
}

type cameraViewRenderer struct {
	cv *CameraView
}

func (r *cameraViewRenderer) MinSize() fyne.Size {
	return r.cv.MinSize()
}

func (r *cameraViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.cv.img}
}

func (r *cameraViewRenderer) Refresh() {
	r.cv.img.Refresh()
}

func (r *cameraViewRenderer) Layout(size fyne.Size) {
	r.cv.img.Resize(size)
}

func (r *cameraViewRenderer) Destroy() {
	r.cv.img = nil
}

package main

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/segment"
	"github.com/liptakmatyas/digital-mirror/internal/sticker"
	"github.com/liptakmatyas/digital-mirror/internal/view"
)

// strokeRadius is the mask brush radius in frame pixels.
const strokeRadius = 16

// stickerController owns the sticker editing session: one frozen frame,
// its generated mask, the stroke edits and the final export. At most one
// session is active; entering again replaces the previous one.
type stickerController struct {
	window   fyne.Window
	view     *CameraView
	machine  *view.Machine
	engine   *segment.Engine
	exporter *sticker.Exporter
	cfg      sticker.Config
	log      *logrus.Logger

	bar *fyne.Container

	mu      sync.Mutex
	doc     *sticker.Document
	preview image.Image
	mode    segment.StrokeMode
}

func newStickerController(window fyne.Window, cameraView *CameraView, machine *view.Machine, engine *segment.Engine, exporter *sticker.Exporter, cfg sticker.Config, log *logrus.Logger) *stickerController {
	c := &stickerController{
		window:   window,
		view:     cameraView,
		machine:  machine,
		engine:   engine,
		exporter: exporter,
		cfg:      cfg,
		log:      log,
	}

	brushRadio := widget.NewRadioGroup([]string{"Erase", "Keep"}, func(selected string) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if selected == "Keep" {
			c.mode = segment.Keep
		} else {
			c.mode = segment.Erase
		}
	})
	brushRadio.Horizontal = true
	brushRadio.SetSelected("Erase")

	c.bar = container.New(layout.NewHBoxLayout(),
		widget.NewLabel("Brush"),
		brushRadio,
		layout.NewSpacer(),
		widget.NewButton("Export", c.Export),
		widget.NewButton("Cancel", c.Cancel),
	)
	c.bar.Hide()

	cameraView.SetStrokeHandler(c.applyStroke)

	return c
}

// Bar is the editing control strip; hidden outside sticker mode.
func (c *stickerController) Bar() *fyne.Container {
	return c.bar
}

// Preview returns the editing image when a session is active. The
// display loop shows it instead of the camera output.
func (c *stickerController) Preview() (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.preview, c.preview != nil
}

// Enter starts a sticker session from the currently frozen frame. The
// segmentation runs in the background; any session still in flight is
// cancelled first.
func (c *stickerController) Enter() {
	segFrame := c.machine.HeldFrame()
	if segFrame == nil {
		dialog.ShowInformation("Sticker",
			"Freeze a frame first: press and hold, or double-tap to lock.", c.window)
		return
	}

	c.Cancel()

	docFrame := segFrame.Clone()
	results := c.engine.Request(segFrame)

	go func() {
		res, ok := <-results
		if !ok {
			// Superseded by a newer request.
			_ = docFrame.Close()
			return
		}
		if res.Err != nil {
			_ = docFrame.Close()
			c.log.WithError(res.Err).Warn("Sticker segmentation failed")
			dialog.ShowError(res.Err, c.window)
			return
		}

		c.mu.Lock()
		c.doc = sticker.NewDocument(docFrame, res.Mask, c.cfg)
		c.mu.Unlock()

		c.refreshPreview()
		c.view.SetStrokeMode(true)
		c.bar.Show()
	}()
}

// Export encodes the sticker and writes it wherever the user points the
// save dialog. A successful export ends the session.
func (c *stickerController) Export() {
	dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer func() { _ = wc.Close() }()

		c.mu.Lock()
		doc := c.doc
		c.mu.Unlock()
		if doc == nil {
			return
		}

		data, err := c.exporter.Export(doc)
		if err != nil {
			c.log.WithError(err).Warn("Sticker export failed")
			dialog.ShowError(err, c.window)
			return
		}

		if _, err := wc.Write(data); err != nil {
			dialog.ShowError(err, c.window)
			return
		}

		c.log.Infof("Sticker written to '%s' (%d bytes)", wc.URI().String(), len(data))
		c.exit()
	}, c.window)
}

// Cancel abandons the session, dropping the document and any in-flight
// segmentation.
func (c *stickerController) Cancel() {
	c.engine.CancelPending()
	c.exit()
}

func (c *stickerController) exit() {
	c.mu.Lock()
	if c.doc != nil {
		c.doc.Close()
		c.doc = nil
	}
	c.preview = nil
	c.mu.Unlock()

	c.view.SetStrokeMode(false)
	c.bar.Hide()
}

// applyStroke paints one pointer stroke into the mask and refreshes the
// preview. Wired as the view's stroke handler.
func (c *stickerController) applyStroke(path []image.Point) {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return
	}
	c.doc.Mask.ApplyStroke(path, strokeRadius, c.mode)
	c.mu.Unlock()

	c.refreshPreview()
}

// refreshPreview renders the editing view: the frozen frame dimmed,
// with the kept region at full brightness. It stays at frame resolution
// so pointer strokes map straight onto mask pixels.
func (c *stickerController) refreshPreview() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc == nil {
		return
	}

	dimmed := gocv.NewMat()
	defer dimmed.Close()

	frame := c.doc.Frame
	frame.Mat.ConvertToWithParams(&dimmed, frame.Mat.Type(), 0.35, 0)
	frame.Mat.CopyToWithMask(&dimmed, c.doc.Mask.Mat())

	img, err := dimmed.ToImage()
	if err != nil {
		c.log.WithError(err).Warn("Sticker preview conversion failed")
		return
	}
	c.preview = img
}

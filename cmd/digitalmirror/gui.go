package main

import (
	"context"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
	"github.com/liptakmatyas/digital-mirror/internal/pipeline"
	"github.com/liptakmatyas/digital-mirror/internal/render"
	"github.com/liptakmatyas/digital-mirror/internal/segment"
	"github.com/liptakmatyas/digital-mirror/internal/settings"
	"github.com/liptakmatyas/digital-mirror/internal/sticker"
	"github.com/liptakmatyas/digital-mirror/internal/view"
)

const displayInterval = 33 * time.Millisecond

func guiMain(parentCtx context.Context, args *CliArgs) error {
	// Create app.

	mirror := app.NewWithID("digital-mirror")
	mirror.SetIcon(theme.VisibilityIcon())

	store := settings.NewFyneStore(mirror.Preferences())

	sourceId := args.SourceId
	if sourceId == "" {
		sourceId = store.SelectedDevice()
		logger.Infof("No camera given, using last used '%s'", sourceId)
	}

	machine := view.NewMachine(settings.LoadViewState(store), logger)

	// Create app window.

	window := mirror.NewWindow("Digital Mirror")
	window.SetMaster()
	if w, h := store.WindowSize(); w > 0 && h > 0 {
		window.Resize(fyne.NewSize(float32(w), float32(h)))
	}

	// Create capture pipeline.

	slot := pipeline.NewSlot[camera.Item]()
	capture := camera.NewCaptureNode("CAPT", sourceId, logger)
	sink := camera.NewSlotSink("HOLD", capture.Stream(), slot)

	graph := pipeline.NewGraph("CAMERA", logger)
	graph.SetNodes(capture, sink)

	// Create sticker machinery.

	det, err := args.Detector()
	if err != nil {
		return err
	}
	engine := segment.NewEngine(det, segment.DefaultConfig(), logger)
	defer func() { _ = engine.Close() }()
	exporter := sticker.NewExporter(logger)

	// Create GUI components.

	cameraView := NewCameraView(machine, fyne.NewSize(960, 540))

	stickerCtl := newStickerController(window, cameraView, machine, engine, exporter, args.StickerConfig(), logger)

	initial := machine.View()

	zoomSlider := widget.NewSlider(view.MinZoom, view.MaxZoom)
	zoomSlider.Step = 0.1
	zoomSlider.Value = initial.Zoom
	zoomSlider.OnChanged = machine.SetZoom

	brightnessSlider := widget.NewSlider(view.MinBrightness, view.MaxBrightness)
	brightnessSlider.Step = 1
	brightnessSlider.Value = initial.Brightness
	brightnessSlider.OnChanged = machine.SetBrightness

	mirrorCheck := widget.NewCheck("Mirror", machine.SetMirrored)
	mirrorCheck.SetChecked(initial.Mirrored)

	stickerButton := widget.NewButton("Sticker", stickerCtl.Enter)

	controls := container.New(layout.NewHBoxLayout(),
		mirrorCheck,
		widget.NewLabel("Zoom"),
		zoomSlider,
		widget.NewLabel("Brightness"),
		brightnessSlider,
		layout.NewSpacer(),
		stickerButton,
	)

	window.SetContent(container.New(layout.NewVBoxLayout(),
		cameraView,
		controls,
		stickerCtl.Bar(),
	))

	window.SetCloseIntercept(func() {
		size := window.Canvas().Size()
		store.SetWindowSize(int(size.Width), int(size.Height))
		window.Close()
	})

	window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyM:
			mirrorCheck.SetChecked(!mirrorCheck.Checked)
		case fyne.KeyF:
			window.SetFullScreen(!window.FullScreen())
		case fyne.KeyEscape:
			window.SetFullScreen(false)
		case fyne.KeyQ:
			window.Close()
		case fyne.KeyLeft:
			machine.ArrowKey(view.ArrowLeft)
		case fyne.KeyRight:
			machine.ArrowKey(view.ArrowRight)
		case fyne.KeyUp:
			machine.ArrowKey(view.ArrowUp)
		case fyne.KeyDown:
			machine.ArrowKey(view.ArrowDown)
		case fyne.KeyPlus, fyne.KeyEqual:
			machine.PinchZoom(1.1)
			zoomSlider.SetValue(machine.View().Zoom)
		case fyne.KeyMinus:
			machine.PinchZoom(1 / 1.1)
			zoomSlider.SetValue(machine.View().Zoom)
		}
	})

	// Run background loops.

	ctx, cancelCtx := context.WithCancel(parentCtx)

	graph.Run(ctx)
	graphErr := make(chan error, 1)
	go func() {
		graphErr <- <-graph.Err()
		window.Close()
	}()

	displayDone := make(chan struct{})
	go func() {
		defer close(displayDone)
		displayLoop(ctx, slot, machine, stickerCtl, cameraView)
	}()

	// Start GUI.
	logger.Infof("Starting GUI application.")
	window.ShowAndRun()
	cancelCtx()
	logger.Tracef("GUI application stopped.")

	// Shutdown. The display loop must be joined before the machine shuts
	// down: Shutdown closes the frame the loop may still be rendering.
	<-displayDone
	stickerCtl.Cancel()
	settings.SaveViewState(store, machine.View())
	store.SetSelectedDevice(sourceId)
	machine.Shutdown()

	logger.Tracef("Waiting for the capture graph to stop...")
	err = <-graphErr
	if err != nil {
		logger.WithError(err).Error("Capture graph run failed.")
	}
	logger.Tracef("Capture graph stopped.")

	// The sink may have parked one last frame between the display loop's
	// drain and the graph teardown.
	if item, ok := slot.Take(); ok && item.Frame != nil {
		_ = item.Frame.Close()
	}

	logger.Infof("Shutdown complete.")
	return nil
}

// previewSource and frameDisplay are the display loop's two views of
// the GUI, narrow so the loop can be exercised without a window.
type previewSource interface {
	Preview() (image.Image, bool)
}

type frameDisplay interface {
	Update(img image.Image)
}

// displayLoop drives the screen at a fixed cadence: drain the latest
// capture item, advance the machine, render, hand the image to the
// display. The sticker preview, when active, replaces the camera output.
func displayLoop(ctx context.Context, slot *pipeline.Slot[camera.Item], machine *view.Machine, preview previewSource, display frameDisplay) {
	dst := gocv.NewMat()
	defer dst.Close()

	// A frame the producer parked after the final Take would otherwise
	// leak.
	defer func() {
		if item, ok := slot.Take(); ok && item.Frame != nil {
			_ = item.Frame.Close()
		}
	}()

	placeholder := noSignalImage(1280, 720)

	ticker := time.NewTicker(displayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if img, ok := preview.Preview(); ok {
			display.Update(img)
			continue
		}

		item, ok := slot.Take()
		frame, viewState, noSignal := machine.Observe(item, ok)

		if noSignal || frame == nil {
			display.Update(placeholder)
			continue
		}

		if err := render.Render(frame.Mat, viewState, &dst); err != nil {
			logger.WithError(err).Debug("Frame render failed")
			continue
		}

		img, err := dst.ToImage()
		if err != nil {
			logger.WithError(err).Debug("Frame conversion failed")
			continue
		}

		display.Update(img)
	}
}

// noSignalImage is the dark placeholder shown while no camera delivers.
func noSignalImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 24
		img.Pix[i+1] = 24
		img.Pix[i+2] = 24
		img.Pix[i+3] = 255
	}
	return img
}

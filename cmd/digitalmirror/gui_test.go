package main

import (
	"context"
	"image"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
	"github.com/liptakmatyas/digital-mirror/internal/pipeline"
	"github.com/liptakmatyas/digital-mirror/internal/view"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testFrame(w, h int) *camera.Frame {
	return &camera.Frame{
		Mat:  gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3),
		Time: time.Now(),
	}
}

type noPreview struct{}

func (noPreview) Preview() (image.Image, bool) { return nil, false }

type recordingDisplay struct {
	updates chan image.Image
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{updates: make(chan image.Image, 16)}
}

func (d *recordingDisplay) Update(img image.Image) {
	select {
	case d.updates <- img:
	default:
	}
}

func runDisplayLoop(ctx context.Context, slot *pipeline.Slot[camera.Item], machine *view.Machine, display frameDisplay) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		displayLoop(ctx, slot, machine, noPreview{}, display)
	}()
	return done
}

func TestDisplayLoopExitsBeforeMachineShutdown(t *testing.T) {
	slot := pipeline.NewSlot[camera.Item]()
	machine := view.NewMachine(view.DefaultViewState(), testLogger())
	display := newRecordingDisplay()

	ctx, cancel := context.WithCancel(context.Background())
	done := runDisplayLoop(ctx, slot, machine, display)

	slot.Put(camera.Item{Frame: testFrame(32, 24)})

	select {
	case <-display.updates:
	case <-time.After(2 * time.Second):
		t.Fatal("display loop never rendered the frame")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("display loop did not stop on cancel")
	}

	// Only now may the machine release its frames; the loop no longer
	// touches them.
	machine.Shutdown()
}

func TestDisplayLoopDrainsSlotOnExit(t *testing.T) {
	slot := pipeline.NewSlot[camera.Item]()
	machine := view.NewMachine(view.DefaultViewState(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slot.Put(camera.Item{Frame: testFrame(32, 24)})

	<-runDisplayLoop(ctx, slot, machine, newRecordingDisplay())

	_, ok := slot.Take()
	assert.False(t, ok, "frame left in the slot must be released, not leaked")

	machine.Shutdown()
}

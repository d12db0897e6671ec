package sticker

import (
	"image"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
	"github.com/liptakmatyas/digital-mirror/internal/segment"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// noisyFrame is deliberately incompressible so the quality loop has
// real work to do.
func noisyFrame(t *testing.T, w, h int) *camera.Frame {
	t.Helper()

	f := &camera.Frame{Mat: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Mat.SetUCharAt3(y, x, 0, uint8((x*92821+y*53987)%256))
			f.Mat.SetUCharAt3(y, x, 1, uint8((x*48271+y*69621)%256))
			f.Mat.SetUCharAt3(y, x, 2, uint8((x*16807+y*39916)%256))
		}
	}
	return f
}

func blobMask(w, h int) *segment.Mask {
	m := segment.NewMask(w, h)
	m.ApplyStroke([]image.Point{{X: w / 2, Y: h / 2}}, minInt(w, h)/3, segment.Keep)
	return m
}

func testDocument(t *testing.T, w, h int, cfg Config) *Document {
	t.Helper()

	doc := NewDocument(noisyFrame(t, w, h), blobMask(w, h), cfg)
	t.Cleanup(doc.Close)
	return doc
}

func TestCompositeShapeAndAlpha(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSize = 128

	doc := testDocument(t, 320, 240, cfg)

	e := NewExporter(testLogger())
	img, err := e.Composite(doc)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 128, img.Cols())
	assert.Equal(t, 128, img.Rows())
	assert.Equal(t, 4, img.Channels(), "sticker must carry an alpha channel")

	// Corners are far from the centered blob: fully transparent.
	assert.Zero(t, img.GetUCharAt3(0, 0, 3))
	// The blob center is opaque.
	assert.Equal(t, uint8(255), img.GetUCharAt3(64, 64, 3))
}

func TestExportFitsBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSize = 256
	cfg.ByteBudget = 64 * 1024

	doc := testDocument(t, 320, 240, cfg)

	data, err := NewExporter(testLogger()).Export(doc)
	require.NoError(t, err)

	assert.NotEmpty(t, data)
	assert.LessOrEqual(t, len(data), cfg.ByteBudget)
}

func TestExportTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSize = 256
	cfg.ByteBudget = 16 // absurd on purpose; nothing encodes this small

	doc := testDocument(t, 320, 240, cfg)

	data, err := NewExporter(testLogger()).Export(doc)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Nil(t, data, "a failed export must not hand out oversized bytes")
}

func TestExportRetryLoopIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSize = 128
	cfg.ByteBudget = 1
	cfg.MaxAttempts = 2

	doc := testDocument(t, 160, 120, cfg)

	_, err := NewExporter(testLogger()).Export(doc)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCompositeRejectsMismatchedMask(t *testing.T) {
	frame := noisyFrame(t, 320, 240)
	mask := blobMask(64, 64)

	doc := NewDocument(frame, mask, DefaultConfig())
	defer doc.Close()

	_, err := NewExporter(testLogger()).Composite(doc)
	assert.Error(t, err)
}

func TestCompositeRejectsEmptyMask(t *testing.T) {
	doc := NewDocument(noisyFrame(t, 64, 64), segment.NewMask(64, 64), DefaultConfig())
	defer doc.Close()

	_, err := NewExporter(testLogger()).Composite(doc)
	assert.ErrorIs(t, err, segment.ErrNoSubject)
}

func TestDocumentStaleness(t *testing.T) {
	doc := testDocument(t, 64, 64, DefaultConfig())

	assert.False(t, doc.Stale())

	doc.Mask.ApplyStroke([]image.Point{{X: 10, Y: 10}}, 3, segment.Erase)
	assert.True(t, doc.Stale())
}

func TestExportToFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSize = 128

	doc := testDocument(t, 160, 120, cfg)

	path := t.TempDir() + "/sticker.webp"
	require.NoError(t, NewExporter(testLogger()).ExportToFile(doc, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.LessOrEqual(t, int(info.Size()), cfg.ByteBudget)
}

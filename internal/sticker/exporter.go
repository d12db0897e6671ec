// Package sticker turns a frozen frame and its mask into an outlined,
// transparent cut-out encoded under a hard byte budget.
package sticker

import (
	"image"
	"image/color"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
	"github.com/liptakmatyas/digital-mirror/internal/segment"
)

var ErrTooLarge = errors.New("encoded sticker exceeds byte budget")

// WebP is the one lossy format OpenCV encodes with an alpha channel.
const webpFileExt gocv.FileExt = ".webp"

// Config holds the export knobs. Outline width and the quality descent
// are product constants kept configurable on purpose.
type Config struct {
	// TargetSize is the square output edge in pixels.
	TargetSize int
	// ByteBudget is the hard ceiling on the encoded size.
	ByteBudget int
	// OutlineWidth is the sticker border width in output pixels.
	OutlineWidth int
	// QualityStart/QualityMin/QualityStep drive the encode retry loop:
	// quality descends linearly until the budget is met.
	QualityStart int
	QualityMin   int
	QualityStep  int
	// MaxAttempts bounds the retry loop regardless of quality range.
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		TargetSize:   512,
		ByteBudget:   500 * 1024,
		OutlineWidth: 12,
		QualityStart: 90,
		QualityMin:   10,
		QualityStep:  10,
		MaxAttempts:  9,
	}
}

// Document pairs one frozen frame with its mask for export. It owns
// both; at most one Document is active at a time and it is closed on
// sticker-mode exit or successful export.
type Document struct {
	ID          uuid.UUID
	Frame       *camera.Frame
	Mask        *segment.Mask
	MaskVersion uint64
	Config      Config
}

// NewDocument takes ownership of frame and mask.
func NewDocument(frame *camera.Frame, mask *segment.Mask, cfg Config) *Document {
	return &Document{
		ID:          uuid.New(),
		Frame:       frame,
		Mask:        mask,
		MaskVersion: mask.Version(),
		Config:      cfg,
	}
}

// Stale reports whether the mask was edited after the document captured
// its version.
func (d *Document) Stale() bool {
	return d.Mask.Version() != d.MaskVersion
}

func (d *Document) Close() {
	if d.Frame != nil {
		_ = d.Frame.Close()
		d.Frame = nil
	}
	if d.Mask != nil {
		_ = d.Mask.Close()
		d.Mask = nil
	}
}

type Exporter struct {
	log *logrus.Logger
}

func NewExporter(log *logrus.Logger) *Exporter {
	return &Exporter{log: log}
}

// Composite renders the cut-out: subject pixels where the mask keeps
// them, a white outline ring around the mask edge, transparent
// elsewhere; square-cropped around the subject and resized to the
// target dimension. The caller owns the returned BGRA buffer.
func (e *Exporter) Composite(doc *Document) (gocv.Mat, error) {
	frame := doc.Frame
	mask := doc.Mask

	if frame == nil || frame.Empty() {
		return gocv.Mat{}, errors.New("document has no frame")
	}
	if mask == nil || mask.Width() != frame.Width() || mask.Height() != frame.Height() {
		return gocv.Mat{}, errors.New("mask resolution does not match frame")
	}
	if mask.Empty() {
		return gocv.Mat{}, errors.Wrap(segment.ErrNoSubject, "mask keeps no pixels")
	}

	w := frame.Width()
	h := frame.Height()
	maskMat := mask.Mat()

	// The outline width is specified in output pixels; scale the
	// dilation kernel up to source resolution.
	side := minInt(w, h)
	outlinePx := maxInt(3, doc.Config.OutlineWidth*side/doc.Config.TargetSize)
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(outlinePx, outlinePx))
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(maskMat, &dilated, kernel)

	outline := gocv.NewMat()
	defer outline.Close()
	gocv.Subtract(dilated, maskMat, &outline)

	canvas := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), h, w, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.CopyToWithMask(&canvas, outline)
	frame.Mat.CopyToWithMask(&canvas, maskMat)

	// Alpha is the dilated mask: opaque over subject and outline,
	// transparent everywhere else.
	channels := gocv.Split(canvas)
	bgra := gocv.NewMat()
	gocv.Merge(append(channels, dilated), &bgra)
	for _, ch := range channels {
		_ = ch.Close()
	}

	square := squareCrop(bgra, dilated, side)
	_ = bgra.Close()

	out := gocv.NewMat()
	gocv.Resize(square, &out, image.Pt(doc.Config.TargetSize, doc.Config.TargetSize), 0, 0, gocv.InterpolationArea)
	_ = square.Close()

	return out, nil
}

// Export encodes the composited sticker, walking the quality down until
// the result fits the byte budget. Fails with ErrTooLarge once the
// attempts are exhausted; it never returns bytes over budget.
func (e *Exporter) Export(doc *Document) ([]byte, error) {
	stickerImg, err := e.Composite(doc)
	if err != nil {
		return nil, err
	}
	defer stickerImg.Close()

	log := e.log.WithField("document", doc.ID)

	quality := doc.Config.QualityStart
	for attempt := 0; attempt < doc.Config.MaxAttempts && quality >= doc.Config.QualityMin; attempt++ {
		data, err := encodeWebP(stickerImg, quality)
		if err != nil {
			return nil, errors.Wrap(err, "webp encode failed")
		}

		if len(data) > 0 && len(data) <= doc.Config.ByteBudget {
			log.WithFields(logrus.Fields{
				"quality": quality,
				"bytes":   len(data),
			}).Debug("Sticker encoded")
			return data, nil
		}

		log.WithFields(logrus.Fields{
			"quality": quality,
			"bytes":   len(data),
			"budget":  doc.Config.ByteBudget,
		}).Debug("Sticker over budget, reducing quality")
		quality -= doc.Config.QualityStep
	}

	return nil, errors.Wrapf(ErrTooLarge, "budget %d bytes", doc.Config.ByteBudget)
}

// ExportToFile writes the encoded sticker to a caller-supplied path.
func (e *Exporter) ExportToFile(doc *Document, path string) error {
	data, err := e.Export(doc)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write sticker to '%s'", path)
	}

	e.log.WithField("document", doc.ID).Infof("Sticker written to '%s' (%d bytes)", path, len(data))
	return nil
}

func encodeWebP(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(webpFileExt, img, []int{gocv.IMWriteWebpQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// The buffer is native memory; copy before it goes away.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// squareCrop cuts a side×side window centered on the mask's centroid,
// clamped to the image bounds.
func squareCrop(img gocv.Mat, mask gocv.Mat, side int) gocv.Mat {
	w := img.Cols()
	h := img.Rows()

	cx := w / 2
	cy := h / 2
	if m := gocv.Moments(mask, true); m["m00"] > 0 {
		cx = int(m["m10"] / m["m00"])
		cy = int(m["m01"] / m["m00"])
	}

	x1 := clampInt(cx-side/2, 0, w-side)
	y1 := clampInt(cy-side/2, 0, h-side)

	region := img.Region(image.Rect(x1, y1, x1+side, y1+side))
	defer region.Close()

	out := gocv.NewMat()
	region.CopyTo(&out)
	return out
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

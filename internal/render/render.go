// Package render is the pure per-frame transform chain: mirror, zoom+pan
// crop, resample, brightness. No state is kept between calls.
package render

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/view"
)

const flipLeftRight = 1

// CropRect is the visible crop for a source of w×h at the given view:
// size = source/zoom, centered plus the pan offset, hard-clamped inside
// the source bounds. Pan can therefore never expose out-of-frame
// padding.
func CropRect(w, h int, v view.ViewState) image.Rectangle {
	if v.Zoom <= view.MinZoom {
		return image.Rect(0, 0, w, h)
	}

	cropW := int(float64(w) / v.Zoom)
	cropH := int(float64(h) / v.Zoom)
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}

	panX := int(v.PanX * float64(w) / 2)
	panY := int(v.PanY * float64(h) / 2)

	x1 := (w-cropW)/2 - panX
	y1 := (h-cropH)/2 - panY

	x1 = clampInt(x1, 0, w-cropW)
	y1 = clampInt(y1, 0, h-cropH)

	return image.Rect(x1, y1, x1+cropW, y1+cropH)
}

// Render applies the view transforms to src and writes the result into
// dst at the source resolution. src is not modified.
func Render(src gocv.Mat, v view.ViewState, dst *gocv.Mat) error {
	if src.Empty() {
		return errors.New("cannot render empty frame")
	}

	w := src.Cols()
	h := src.Rows()

	work := gocv.NewMat()
	defer work.Close()

	if v.Mirrored {
		gocv.Flip(src, &work, flipLeftRight)
	} else {
		src.CopyTo(&work)
	}

	crop := CropRect(w, h, v)
	if crop.Dx() < w || crop.Dy() < h {
		region := work.Region(crop)
		// Resize into a fresh buffer: region aliases work's pixels, so
		// an in-place resize would read rows it already overwrote.
		zoomed := gocv.NewMat()
		// Bilinear keeps the 5x zoom usable; nearest-neighbor aliases.
		gocv.Resize(region, &zoomed, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
		if err := region.Close(); err != nil {
			_ = zoomed.Close()
			return errors.Wrap(err, "failed to close crop region")
		}
		if err := work.Close(); err != nil {
			_ = zoomed.Close()
			return errors.Wrap(err, "failed to release intermediate frame")
		}
		work = zoomed
	}

	// Saturating add; pixel values never wrap around.
	work.ConvertToWithParams(dst, work.Type(), 1.0, float32(v.Brightness))

	return nil
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

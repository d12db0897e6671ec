package segment

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// StrokeMode selects whether a stroke adds to or removes from the mask.
// Erase is the zero value: refining false positives away is the common
// edit.
type StrokeMode int

const (
	Erase StrokeMode = iota
	Keep
)

// Mask is a per-pixel opacity buffer aligned to its source frame's
// resolution. Edits bump the version counter so exporters can detect
// staleness.
type Mask struct {
	buf     gocv.Mat
	version uint64
}

func NewMask(w, h int) *Mask {
	return &Mask{
		buf: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1),
	}
}

// maskFromMat wraps an existing single-channel buffer; the Mask takes
// ownership.
func maskFromMat(buf gocv.Mat) *Mask {
	return &Mask{buf: buf}
}

func (m *Mask) Mat() gocv.Mat {
	return m.buf
}

func (m *Mask) Width() int {
	return m.buf.Cols()
}

func (m *Mask) Height() int {
	return m.buf.Rows()
}

func (m *Mask) Version() uint64 {
	return m.version
}

// Empty reports whether no pixel is kept.
func (m *Mask) Empty() bool {
	return gocv.CountNonZero(m.buf) == 0
}

// ApplyStroke paints the stroke path onto the opacity buffer with the
// given brush radius. Keep paints full opacity, Erase paints zero.
// Repeating an identical stroke is a no-op on the pixels (the version
// still advances); the mask never changes size.
func (m *Mask) ApplyStroke(path []image.Point, radius int, mode StrokeMode) {
	if len(path) == 0 {
		return
	}
	if radius < 1 {
		radius = 1
	}

	value := uint8(0)
	if mode == Keep {
		value = 255
	}
	brush := color.RGBA{R: value, G: value, B: value, A: value}

	gocv.Circle(&m.buf, path[0], radius, brush, -1)
	for i := 1; i < len(path); i++ {
		gocv.Line(&m.buf, path[i-1], path[i], brush, 2*radius)
		gocv.Circle(&m.buf, path[i], radius, brush, -1)
	}

	m.version++
}

func (m *Mask) Clone() *Mask {
	n := NewMask(m.Width(), m.Height())
	m.buf.CopyTo(&n.buf)
	n.version = m.version
	return n
}

func (m *Mask) Close() error {
	return m.buf.Close()
}

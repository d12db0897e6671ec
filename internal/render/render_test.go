package render

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/view"
)

// gradientMat builds a frame with per-pixel distinct values so content
// comparisons are meaningful.
func gradientMat(t *testing.T, w, h int) gocv.Mat {
	t.Helper()

	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetUCharAt3(y, x, 0, uint8((x*7+y*13)%256))
			m.SetUCharAt3(y, x, 1, uint8((x*3+y*5)%256))
			m.SetUCharAt3(y, x, 2, uint8((x+y)%256))
		}
	}
	return m
}

func TestCropRectStaysInBoundsSweep(t *testing.T) {
	const w, h = 1280, 720

	for zoom := view.MinZoom; zoom <= view.MaxZoom; zoom += 0.25 {
		for pan := -2.0; pan <= 2.0; pan += 0.125 {
			v := view.ViewState{Zoom: zoom, PanX: pan, PanY: -pan}
			r := CropRect(w, h, v)

			assert.GreaterOrEqual(t, r.Min.X, 0)
			assert.GreaterOrEqual(t, r.Min.Y, 0)
			assert.LessOrEqual(t, r.Max.X, w)
			assert.LessOrEqual(t, r.Max.Y, h)
			assert.Positive(t, r.Dx())
			assert.Positive(t, r.Dy())
		}
	}
}

func TestCropRectIdentityAtZoomOne(t *testing.T) {
	r := CropRect(640, 480, view.ViewState{Zoom: 1.0, PanX: 0.7})
	assert.Equal(t, image.Rect(0, 0, 640, 480), r)
}

func TestRenderIdentityTransform(t *testing.T) {
	src := gradientMat(t, 64, 48)
	dst := gocv.NewMat()
	defer dst.Close()

	v := view.ViewState{Mirrored: false, Zoom: 1.0}
	require.NoError(t, Render(src, v, &dst))

	assert.True(t, bytes.Equal(src.ToBytes(), dst.ToBytes()),
		"zoom 1, no pan, no mirror, zero brightness must be the identity")
}

func TestRenderMirrorInvolution(t *testing.T) {
	src := gradientMat(t, 64, 48)

	once := gocv.NewMat()
	defer once.Close()
	twice := gocv.NewMat()
	defer twice.Close()

	v := view.ViewState{Mirrored: true, Zoom: 1.0}
	require.NoError(t, Render(src, v, &once))
	require.NoError(t, Render(once, v, &twice))

	assert.False(t, bytes.Equal(src.ToBytes(), once.ToBytes()))
	assert.True(t, bytes.Equal(src.ToBytes(), twice.ToBytes()),
		"mirroring twice must return the original frame")
}

func TestRenderKeepsResolutionWhenZoomed(t *testing.T) {
	src := gradientMat(t, 64, 48)
	dst := gocv.NewMat()
	defer dst.Close()

	v := view.ViewState{Zoom: 4.0, PanX: 0.3, PanY: -0.6}
	v.Clamp()
	require.NoError(t, Render(src, v, &dst))

	assert.Equal(t, 64, dst.Cols())
	assert.Equal(t, 48, dst.Rows())
}

func TestRenderZoomMatchesResizeOfDetachedCrop(t *testing.T) {
	src := gradientMat(t, 64, 48)
	dst := gocv.NewMat()
	defer dst.Close()

	v := view.ViewState{Zoom: 2.0}
	require.NoError(t, Render(src, v, &dst))

	// Expected: the same crop resized from an independent copy, so the
	// resize can never read pixels the output already overwrote.
	crop := CropRect(64, 48, v)
	region := src.Region(crop)
	detached := gocv.NewMat()
	region.CopyTo(&detached)
	require.NoError(t, region.Close())
	defer detached.Close()

	want := gocv.NewMat()
	defer want.Close()
	gocv.Resize(detached, &want, image.Pt(64, 48), 0, 0, gocv.InterpolationLinear)

	assert.True(t, bytes.Equal(want.ToBytes(), dst.ToBytes()),
		"zoomed frame must match a resize of an independent crop copy")
}

func TestRenderBrightnessSaturates(t *testing.T) {
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(250, 250, 250, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer white.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	v := view.ViewState{Zoom: 1.0, Brightness: 100}
	require.NoError(t, Render(white, v, &dst))

	data := dst.ToBytes()
	for _, b := range data {
		assert.Equal(t, uint8(255), b, "brightness gain must clamp, not wrap")
	}
}

func TestRenderDarkensWithoutWraparound(t *testing.T) {
	dark := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 10, 10, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer dark.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	v := view.ViewState{Zoom: 1.0, Brightness: -50}
	require.NoError(t, Render(dark, v, &dst))

	for _, b := range dst.ToBytes() {
		assert.Equal(t, uint8(0), b)
	}
}

func TestRenderEmptyFrameFails(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	err := Render(empty, view.ViewState{Zoom: 1.0}, &dst)
	assert.Error(t, err)
}

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampZoomBounds(t *testing.T) {
	v := ViewState{Zoom: 7.5}
	v.Clamp()
	assert.Equal(t, MaxZoom, v.Zoom)

	v.Zoom = 0.25
	v.Clamp()
	assert.Equal(t, MinZoom, v.Zoom)
}

func TestClampPanPinnedAtZoomOne(t *testing.T) {
	v := ViewState{Zoom: 1.0, PanX: 0.4, PanY: -0.9}
	v.Clamp()

	assert.Zero(t, v.PanX)
	assert.Zero(t, v.PanY)
}

func TestClampPanBoundsFollowZoom(t *testing.T) {
	v := ViewState{Zoom: 2.0, PanX: 10, PanY: -10}
	v.Clamp()

	assert.InDelta(t, 0.5, v.PanX, 1e-9)
	assert.InDelta(t, -0.5, v.PanY, 1e-9)

	// Zooming back out re-clamps the pan.
	v.Zoom = 1.25
	v.Clamp()
	assert.InDelta(t, 0.2, v.PanX, 1e-9)
	assert.InDelta(t, -0.2, v.PanY, 1e-9)
}

func TestClampBrightness(t *testing.T) {
	v := ViewState{Zoom: 1.0, Brightness: 300}
	v.Clamp()
	assert.Equal(t, MaxBrightness, v.Brightness)

	v.Brightness = -300
	v.Clamp()
	assert.Equal(t, MinBrightness, v.Brightness)
}

func TestMaxPanSweep(t *testing.T) {
	for zoom := MinZoom; zoom <= MaxZoom; zoom += 0.1 {
		v := ViewState{Zoom: zoom}
		maxPan := v.MaxPan()

		assert.GreaterOrEqual(t, maxPan, 0.0)
		assert.Less(t, maxPan, 1.0)

		// At max pan the crop edge touches the source edge exactly:
		// center offset + half crop == half source.
		offset := maxPan / 2
		halfCrop := 1 / (2 * zoom)
		assert.InDelta(t, 0.5, offset+halfCrop, 1e-9)
	}
}

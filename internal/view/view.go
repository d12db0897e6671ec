// Package view owns the mirror/zoom/pan/brightness state and the
// live/frozen/panning interaction machine that mediates input events
// into pipeline parameters.
package view

const (
	MinZoom = 1.0
	MaxZoom = 5.0

	MinBrightness = -50.0
	MaxBrightness = 100.0

	// ArrowPanStep is the pan increment per arrow key press, as a
	// fraction of the source frame.
	ArrowPanStep = 0.05
)

// ViewState is the per-frame transform configuration. Pan offsets are
// fractions of the source frame size; the visible crop therefore stays
// inside the source for any pan within ±(1 − 1/Zoom).
type ViewState struct {
	Mirrored   bool
	Zoom       float64
	PanX       float64
	PanY       float64
	Brightness float64
}

func DefaultViewState() ViewState {
	return ViewState{
		Mirrored: true,
		Zoom:     MinZoom,
	}
}

// MaxPan is the pan clamp boundary at the current zoom. At zoom 1 the
// crop is the whole source and panning is pinned to zero.
func (v ViewState) MaxPan() float64 {
	if v.Zoom <= MinZoom {
		return 0
	}
	return 1 - 1/v.Zoom
}

// Clamp silently corrects out-of-range values; continuous input drives
// them out of range all the time and that is never an error.
func (v *ViewState) Clamp() {
	v.Zoom = clamp(v.Zoom, MinZoom, MaxZoom)
	v.Brightness = clamp(v.Brightness, MinBrightness, MaxBrightness)

	maxPan := v.MaxPan()
	v.PanX = clamp(v.PanX, -maxPan, maxPan)
	v.PanY = clamp(v.PanY, -maxPan, maxPan)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

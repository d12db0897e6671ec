// Package settings persists the handful of items the core needs across
// runs. The backing format belongs to fyne; the core only sees the
// accessors.
package settings

import (
	"fyne.io/fyne/v2"

	"github.com/liptakmatyas/digital-mirror/internal/view"
)

const (
	keyDevice       = "camera.device"
	keyMirrored     = "view.mirrored"
	keyZoom         = "view.zoom"
	keyBrightness   = "view.brightness"
	keyWindowWidth  = "window.width"
	keyWindowHeight = "window.height"
)

// Store reads and writes the persisted user preferences.
type Store interface {
	SelectedDevice() string
	SetSelectedDevice(id string)

	Mirrored() bool
	SetMirrored(mirrored bool)

	Zoom() float64
	SetZoom(zoom float64)

	Brightness() float64
	SetBrightness(brightness float64)

	// WindowSize reports zeros until a size has been persisted.
	WindowSize() (w, h int)
	SetWindowSize(w, h int)
}

type fyneStore struct {
	prefs fyne.Preferences
}

var _ Store = &fyneStore{}

func NewFyneStore(prefs fyne.Preferences) Store {
	return &fyneStore{prefs: prefs}
}

func (s *fyneStore) SelectedDevice() string {
	return s.prefs.StringWithFallback(keyDevice, "0")
}

func (s *fyneStore) SetSelectedDevice(id string) {
	s.prefs.SetString(keyDevice, id)
}

func (s *fyneStore) Mirrored() bool {
	return s.prefs.BoolWithFallback(keyMirrored, true)
}

func (s *fyneStore) SetMirrored(mirrored bool) {
	s.prefs.SetBool(keyMirrored, mirrored)
}

func (s *fyneStore) Zoom() float64 {
	return s.prefs.FloatWithFallback(keyZoom, view.MinZoom)
}

func (s *fyneStore) SetZoom(zoom float64) {
	s.prefs.SetFloat(keyZoom, zoom)
}

func (s *fyneStore) Brightness() float64 {
	return s.prefs.FloatWithFallback(keyBrightness, 0)
}

func (s *fyneStore) SetBrightness(brightness float64) {
	s.prefs.SetFloat(keyBrightness, brightness)
}

func (s *fyneStore) WindowSize() (w, h int) {
	return s.prefs.IntWithFallback(keyWindowWidth, 0),
		s.prefs.IntWithFallback(keyWindowHeight, 0)
}

func (s *fyneStore) SetWindowSize(w, h int) {
	s.prefs.SetInt(keyWindowWidth, w)
	s.prefs.SetInt(keyWindowHeight, h)
}

// LoadViewState builds the startup ViewState from the store, clamping
// whatever was persisted.
func LoadViewState(s Store) view.ViewState {
	v := view.ViewState{
		Mirrored:   s.Mirrored(),
		Zoom:       s.Zoom(),
		Brightness: s.Brightness(),
	}
	v.Clamp()
	return v
}

// SaveViewState writes the persisted parts of the view back to the
// store at shutdown.
func SaveViewState(s Store, v view.ViewState) {
	s.SetMirrored(v.Mirrored)
	s.SetZoom(v.Zoom)
	s.SetBrightness(v.Brightness)
}

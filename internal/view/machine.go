package view

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
)

// Mode is the interaction mode. Panning is a sub-state of Frozen: same
// rendering, distinguished only for input routing.
type Mode int

const (
	Live Mode = iota
	Frozen
	Panning
)

func (m Mode) String() string {
	switch m {
	case Live:
		return "live"
	case Frozen:
		return "frozen"
	case Panning:
		return "panning"
	default:
		return "unknown"
	}
}

// Arrow is a pan direction from the arrow keys.
type Arrow int

const (
	ArrowLeft Arrow = iota
	ArrowRight
	ArrowUp
	ArrowDown
)

// Machine is the interaction state machine. It exclusively owns the
// ViewState and the held frame; all mutation goes through its event
// methods. Events arrive on the UI goroutine while frames arrive on the
// display loop, so everything is mutex-guarded.
//
// Frame lifetime rule: event methods never close a frame, they retire
// it; Observe, called only from the display loop, reaps retired frames.
// The display loop is therefore free to render the frame Observe
// returned until its next Observe call.
type Machine struct {
	mu       sync.Mutex
	log      *logrus.Logger
	view     ViewState
	mode     Mode
	locked   bool // frozen via double-tap, released only by another double-tap
	noSignal bool
	live     *camera.Frame
	held     *camera.Frame
	retired  []*camera.Frame
}

func NewMachine(initial ViewState, log *logrus.Logger) *Machine {
	initial.Clamp()
	return &Machine{
		log:  log,
		view: initial,
	}
}

func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Machine) View() ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Observe feeds the latest capture item (hasItem=false when the slot was
// empty) and returns the frame to render with the current ViewState.
// A nil frame with noSignal=true is the "no camera" display condition;
// the ViewState itself is never touched by capture errors, so a
// reconnect resumes exactly where the stream left off.
func (m *Machine) Observe(item camera.Item, hasItem bool) (frame *camera.Frame, view ViewState, noSignal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.retired {
		_ = f.Close()
	}
	m.retired = nil

	if hasItem {
		switch {
		case item.Err != nil:
			m.noSignal = true
			if item.Frame != nil {
				_ = item.Frame.Close()
			}

		case item.Frame != nil:
			m.noSignal = false
			if m.live != nil {
				_ = m.live.Close()
			}
			m.live = item.Frame
		}
	}

	if m.mode != Live && m.held != nil {
		return m.held, m.view, false
	}

	return m.live, m.view, m.noSignal
}

// HoldPress freezes the live frame for as long as the press is held.
// While lock-frozen it is a no-op; the subsequent drag events pan.
func (m *Machine) HoldPress() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != Live || m.locked || m.live == nil {
		return
	}

	m.held = m.live.Clone()
	m.setMode(Frozen)
}

// Release ends a hold-press freeze. Lock-frozen state survives; only a
// second double-tap releases it.
func (m *Machine) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == Live || m.locked {
		return
	}

	m.unfreeze()
}

// DoubleTap toggles the freeze lock. Locking captures the current frame
// (or adopts a hold-press freeze already in progress); unlocking returns
// to Live and resets the pan.
func (m *Machine) DoubleTap() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		m.locked = false
		m.unfreeze()
		return
	}

	if m.held == nil {
		if m.live == nil {
			return
		}
		m.held = m.live.Clone()
	}
	m.locked = true
	m.setMode(Frozen)
}

// DragStart begins a pan gesture on the frozen frame.
func (m *Machine) DragStart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != Frozen {
		return
	}
	m.setMode(Panning)
}

// Drag applies a pointer movement of (dx, dy) pixels. Deltas are scaled
// by the inverse zoom so panning feels the same at every zoom level.
func (m *Machine) Drag(dx, dy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != Panning || m.held == nil {
		return
	}

	w := float64(m.held.Width())
	h := float64(m.held.Height())
	if w <= 0 || h <= 0 {
		return
	}

	m.view.PanX += dx / w * 2 / m.view.Zoom
	m.view.PanY += dy / h * 2 / m.view.Zoom
	m.view.Clamp()
}

// DragEnd ends a pan gesture, dropping back to Frozen.
func (m *Machine) DragEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != Panning {
		return
	}
	m.setMode(Frozen)
}

// Scroll applies a two-finger scroll of (dx, dy) pixels while frozen.
// The caller reports the end of the scroll burst via ScrollEnd.
func (m *Machine) Scroll(dx, dy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if (m.mode != Frozen && m.mode != Panning) || m.held == nil {
		return
	}
	if m.view.Zoom <= MinZoom {
		return
	}

	m.setMode(Panning)

	w := float64(m.held.Width())
	h := float64(m.held.Height())
	if w <= 0 || h <= 0 {
		return
	}

	m.view.PanX += dx / w * 4
	m.view.PanY += dy / h * 4
	m.view.Clamp()
}

// ScrollEnd returns from a scroll-driven Panning to Frozen.
func (m *Machine) ScrollEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != Panning {
		return
	}
	m.setMode(Frozen)
}

// ArrowKey pans by a fixed step while frozen.
func (m *Machine) ArrowKey(dir Arrow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == Live {
		return
	}

	switch dir {
	case ArrowLeft:
		m.view.PanX += ArrowPanStep
	case ArrowRight:
		m.view.PanX -= ArrowPanStep
	case ArrowUp:
		m.view.PanY += ArrowPanStep
	case ArrowDown:
		m.view.PanY -= ArrowPanStep
	}
	m.view.Clamp()
}

// PinchZoom scales the zoom level by the gesture's scale factor. Legal
// in any mode; the pan is re-clamped against the new zoom.
func (m *Machine) PinchZoom(scale float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view.Zoom *= scale
	m.view.Clamp()
}

// SetZoom sets an absolute zoom level (slider, explicit control).
func (m *Machine) SetZoom(zoom float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view.Zoom = zoom
	m.view.Clamp()
}

func (m *Machine) SetBrightness(brightness float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view.Brightness = brightness
	m.view.Clamp()
}

func (m *Machine) SetMirrored(mirrored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view.Mirrored = mirrored
}

// ToggleMirror flips the mirror flag and reports the new value.
func (m *Machine) ToggleMirror() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view.Mirrored = !m.view.Mirrored
	return m.view.Mirrored
}

// HeldFrame clones the frozen frame for the segmentation path, or nil
// when not frozen.
func (m *Machine) HeldFrame() *camera.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == Live || m.held == nil {
		return nil
	}
	return m.held.Clone()
}

// Shutdown retires every frame the machine still owns; the frames are
// closed immediately since no display loop is running anymore.
func (m *Machine) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.retired {
		_ = f.Close()
	}
	m.retired = nil

	if m.held != nil {
		_ = m.held.Close()
		m.held = nil
	}
	if m.live != nil {
		_ = m.live.Close()
		m.live = nil
	}
}

// unfreeze returns to Live and resets the pan; callers hold the lock.
func (m *Machine) unfreeze() {
	if m.held != nil {
		m.retired = append(m.retired, m.held)
		m.held = nil
	}
	m.view.PanX = 0
	m.view.PanY = 0
	m.setMode(Live)
}

func (m *Machine) setMode(mode Mode) {
	if m.mode == mode {
		return
	}
	m.log.Tracef("Mode %s -> %s", m.mode, mode)
	m.mode = mode
}

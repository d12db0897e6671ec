package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrCaptureFailed     = errors.New("frame capture failed")
	ErrEndOfStream       = errors.New("end of camera stream")
)

const (
	defaultWidth  = 1280
	defaultHeight = 720
	defaultFPS    = 30
)

// Device is one enumerated capture device.
type Device struct {
	ID   string
	Name string
}

// Devices probes capture indices up to maxProbe and reports the ones
// that open. The list is built fresh on every call; devices come and go.
func Devices(maxProbe int) []Device {
	devices := make([]Device, 0, maxProbe)

	for i := 0; i < maxProbe; i++ {
		cap, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		opened := cap.IsOpened()
		_ = cap.Close()
		if !opened {
			continue
		}

		devices = append(devices, Device{
			ID:   fmt.Sprint(i),
			Name: fmt.Sprintf("Camera %d", i),
		})
	}

	return devices
}

// Source pulls frames from one capture device at its native cadence.
// There is no buffering beyond the single in-flight frame; staleness
// matters more than completeness.
type Source struct {
	mu       sync.Mutex
	sourceId string
	capture  *gocv.VideoCapture
	buffer   gocv.Mat
	sawFrame bool
}

// Open turns on the video capture. If the source is a (web) camera, the
// camera starts recording and its status LED should turn on.
func Open(sourceId string) (*Source, error) {
	capture, err := gocv.OpenVideoCapture(sourceId)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open '%s': %v", sourceId, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open '%s'", sourceId)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, defaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, defaultHeight)
	capture.Set(gocv.VideoCaptureFPS, defaultFPS)

	return &Source{
		sourceId: sourceId,
		capture:  capture,
		buffer:   gocv.NewMat(),
	}, nil
}

func (s *Source) ID() string {
	return s.sourceId
}

// Next reads the next frame and returns a caller-owned copy. A failed
// read on a stream that has produced frames is ErrEndOfStream (device
// gone); an empty frame is a transient ErrCaptureFailed.
func (s *Source) Next() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, ErrDeviceUnavailable
	}

	if ok := s.capture.Read(&s.buffer); !ok {
		if s.sawFrame {
			return nil, ErrEndOfStream
		}
		return nil, errors.Wrapf(ErrDeviceUnavailable, "source '%s' produced no frames", s.sourceId)
	}

	if s.buffer.Empty() {
		return nil, ErrCaptureFailed
	}

	s.sawFrame = true

	frame := &Frame{
		Mat:  gocv.NewMat(),
		Time: time.Now(),
	}
	s.buffer.CopyTo(&frame.Mat)
	return frame, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil
	}

	err := flattenErrors(
		errors.Wrap(s.capture.Close(), "capture teardown error"),
		errors.Wrap(s.buffer.Close(), "frame buffer teardown error"),
	)
	s.capture = nil
	return err
}

func flattenErrors(errs ...error) error {
	var finalErr error
	for _, err := range errs {
		if err == nil {
			continue
		}

		if finalErr != nil {
			finalErr = errors.Errorf("%v, %v", finalErr, err)
		} else {
			finalErr = err
		}
	}
	return finalErr
}

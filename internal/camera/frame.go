// Package camera wraps the capture device behind a pull-based frame
// source. The device handle is owned exclusively by a Source; everybody
// else sees Frames.
package camera

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured image buffer with its capture timestamp. It is
// read-only by convention once handed off; copy with Clone and release
// with Close.
type Frame struct {
	Mat  gocv.Mat
	Time time.Time
}

func NewFrame() *Frame {
	return &Frame{
		Mat:  gocv.NewMat(),
		Time: time.Now(),
	}
}

func (f *Frame) Width() int {
	return f.Mat.Cols()
}

func (f *Frame) Height() int {
	return f.Mat.Rows()
}

func (f *Frame) Empty() bool {
	return f.Mat.Empty()
}

// Clone deep-copies the pixel buffer.
func (f *Frame) Clone() *Frame {
	n := &Frame{
		Mat:  gocv.NewMat(),
		Time: f.Time,
	}
	f.Mat.CopyTo(&n.Mat)
	return n
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Item is what the capture loop publishes into the latest-frame slot:
// either a good frame or the capture error that interrupted the stream.
type Item struct {
	Frame *Frame
	Err   error
}

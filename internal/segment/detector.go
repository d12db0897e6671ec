// Package segment produces and refines the face masks behind sticker
// mode. Detection runs behind a small interface so the cascade and pigo
// backends are interchangeable.
package segment

import (
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	ErrUnavailable = errors.New("segmentation model unavailable")
	ErrNoSubject   = errors.New("no subject detected")
)

// Detector finds face regions in a frame.
type Detector interface {
	Detect(img gocv.Mat) ([]image.Rectangle, error)
	Close() error
}

// CascadeDetector runs an OpenCV Haar cascade.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
}

var _ Detector = &CascadeDetector{}

func NewCascadeDetector(classifierFile string) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if ok := classifier.Load(classifierFile); !ok {
		_ = classifier.Close()
		return nil, errors.Wrapf(ErrUnavailable, "failed to load classifier file '%s'", classifierFile)
	}

	return &CascadeDetector{classifier: classifier}, nil
}

func (d *CascadeDetector) Detect(img gocv.Mat) ([]image.Rectangle, error) {
	return d.classifier.DetectMultiScale(img), nil
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}

// PigoDetector runs the pure-Go pigo cascade; useful where OpenCV ships
// without the Haar data files.
type PigoDetector struct {
	classifier *pigo.Pigo
	quality    float32
}

var _ Detector = &PigoDetector{}

func NewPigoDetector(cascadeFile string) (*PigoDetector, error) {
	data, err := os.ReadFile(cascadeFile)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "failed to read cascade file '%s': %v", cascadeFile, err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "failed to unpack cascade file '%s': %v", cascadeFile, err)
	}

	return &PigoDetector{
		classifier: classifier,
		quality:    5.0,
	}, nil
}

func (d *PigoDetector) Detect(img gocv.Mat) ([]image.Rectangle, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	rows := gray.Rows()
	cols := gray.Cols()

	params := pigo.CascadeParams{
		MinSize:     minInt(rows, cols) / 10,
		MaxSize:     maxInt(rows, cols),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: gray.ToBytes(),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	rects := make([]image.Rectangle, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.quality {
			continue
		}
		half := det.Scale / 2
		rects = append(rects, image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half))
	}
	return rects, nil
}

func (d *PigoDetector) Close() error {
	return nil
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

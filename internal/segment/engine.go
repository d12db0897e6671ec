package segment

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
)

// Config holds the mask generation knobs. The head rectangle expansion
// emulates a head-and-hair region from a face detection hit.
type Config struct {
	// HeadExpandX widens the detected face rect on each side, as a
	// fraction of its width.
	HeadExpandX float64
	// HeadExpandTop and HeadExpandBottom grow the rect up (hair) and
	// down (chin/neck), as fractions of its height.
	HeadExpandTop    float64
	HeadExpandBottom float64
	// GrabCutIterations bounds the GrabCut refinement passes.
	GrabCutIterations int
}

func DefaultConfig() Config {
	return Config{
		HeadExpandX:       0.25,
		HeadExpandTop:     0.5,
		HeadExpandBottom:  0.25,
		GrabCutIterations: 3,
	}
}

// Result is the asynchronous outcome of one segmentation request.
type Result struct {
	ID   uuid.UUID
	Mask *Mask
	Err  error
}

// Engine produces face masks for frozen frames. Requests are the
// expensive, non-real-time path: each runs on its own goroutine, and a
// new request cancels whatever was still in flight. A cancelled request
// never delivers a partial mask.
type Engine struct {
	log *logrus.Logger
	det Detector
	cfg Config

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewEngine(det Detector, cfg Config, log *logrus.Logger) *Engine {
	return &Engine{
		log: log,
		det: det,
		cfg: cfg,
	}
}

// Segment produces a mask restricted to the face/head region of the
// frame. Fails with ErrUnavailable when no detector is loaded and
// ErrNoSubject when nothing is found.
func (e *Engine) Segment(ctx context.Context, frame *camera.Frame) (*Mask, error) {
	if e.det == nil {
		return nil, ErrUnavailable
	}
	if frame == nil || frame.Empty() {
		return nil, errors.New("cannot segment empty frame")
	}

	faces, err := e.det.Detect(frame.Mat)
	if err != nil {
		return nil, errors.Wrap(err, "face detection failed")
	}
	if len(faces) == 0 {
		return nil, ErrNoSubject
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := frame.Width()
	h := frame.Height()
	head := e.headRegion(largestRect(faces), w, h)

	fg, err := e.grabCutMask(ctx, frame.Mat, head)
	if err != nil {
		return nil, err
	}

	// Restrict to the head region; this is a face sticker, not a
	// full-body cut-out.
	region := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1)
	defer region.Close()
	gocv.Rectangle(&region, head, color.RGBA{255, 255, 255, 255}, -1)
	gocv.BitwiseAnd(fg, region, &fg)

	refineMask(&fg)

	// GrabCut can come back with nothing useful on flat scenes; fall
	// back to an elliptical head mask so the editor has something to
	// refine.
	if gocv.CountNonZero(fg) == 0 {
		center := image.Pt(head.Min.X+head.Dx()/2, head.Min.Y+head.Dy()/2)
		axes := image.Pt(head.Dx()/2, head.Dy()/2)
		gocv.Ellipse(&fg, center, axes, 0, 0, 360, color.RGBA{255, 255, 255, 255}, -1)
	}

	return maskFromMat(fg), nil
}

// Request starts an asynchronous segmentation of frame, cancelling any
// in-flight request. The engine takes ownership of the frame. The
// returned channel delivers exactly one Result, or is closed without one
// when the request got cancelled.
func (e *Engine) Request(frame *camera.Frame) <-chan Result {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	id := uuid.New()
	results := make(chan Result, 1)

	go func() {
		defer close(results)
		defer frame.Close()

		log := e.log.WithField("request", id)
		log.Debug("Segmentation started")

		mask, err := e.Segment(ctx, frame)

		if ctx.Err() != nil {
			// Cancelled: drop any partial mask on the floor.
			if mask != nil {
				_ = mask.Close()
			}
			log.Debug("Segmentation cancelled")
			return
		}

		if err != nil {
			log.WithError(err).Warn("Segmentation failed")
		} else {
			log.Debug("Segmentation done")
		}

		results <- Result{ID: id, Mask: mask, Err: err}
	}()

	return results
}

// CancelPending cancels the in-flight request, if any.
func (e *Engine) CancelPending() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) Close() error {
	e.CancelPending()
	if e.det == nil {
		return nil
	}
	return e.det.Close()
}

func (e *Engine) headRegion(face image.Rectangle, w, h int) image.Rectangle {
	dx := int(float64(face.Dx()) * e.cfg.HeadExpandX)
	top := int(float64(face.Dy()) * e.cfg.HeadExpandTop)
	bottom := int(float64(face.Dy()) * e.cfg.HeadExpandBottom)

	head := image.Rect(face.Min.X-dx, face.Min.Y-top, face.Max.X+dx, face.Max.Y+bottom)
	return head.Intersect(image.Rect(0, 0, w, h))
}

func (e *Engine) grabCutMask(ctx context.Context, img gocv.Mat, head image.Rectangle) (gocv.Mat, error) {
	gcMask := gocv.NewMatWithSize(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1)
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(img, &gcMask, head, &bgdModel, &fgdModel, e.cfg.GrabCutIterations, gocv.GCInitWithRect)

	if err := ctx.Err(); err != nil {
		_ = gcMask.Close()
		return gocv.Mat{}, err
	}

	// GCFgd and GCPrFgd are the odd labels; mask out the even
	// (background) ones and scale up to full opacity.
	ones := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 0, 0, 0), img.Rows(), img.Cols(), gocv.MatTypeCV8UC1)
	defer ones.Close()

	fg := gocv.NewMat()
	gocv.BitwiseAnd(gcMask, ones, &fg)
	_ = gcMask.Close()
	fg.MultiplyUChar(255)

	return fg, nil
}

// refineMask smooths the raw foreground labels: close small holes, then
// open away speckles.
func refineMask(mask *gocv.Mat) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	gocv.MorphologyEx(*mask, mask, gocv.MorphClose, kernel)
	gocv.MorphologyEx(*mask, mask, gocv.MorphOpen, kernel)
}

func largestRect(rects []image.Rectangle) image.Rectangle {
	largest := rects[0]
	for _, r := range rects[1:] {
		if r.Dx()*r.Dy() > largest.Dx()*largest.Dy() {
			largest = r
		}
	}
	return largest
}

package camera

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/liptakmatyas/digital-mirror/internal/pipeline"
)

const reopenBackoff = 500 * time.Millisecond

// CaptureNode pulls frames from a device at its native cadence. Capture
// errors do not kill the node: it degrades to publishing the error and
// keeps retrying the device, so a reconnect resumes the live view on the
// next good frame.
type CaptureNode struct {
	*pipeline.SourceNode[Item]
}

var _ pipeline.Node = &CaptureNode{}

func NewCaptureNode(name string, sourceId string, log *logrus.Logger) *CaptureNode {
	cn := &CaptureNode{
		SourceNode: pipeline.NewSourceNode[Item](name),
	}

	var source *Source

	cn.SetupFunc(func() error {
		var err error
		source, err = Open(sourceId)
		if err != nil {
			// Not fatal; the step keeps trying to open.
			log.WithError(err).Warnf("Camera '%s' not available yet", sourceId)
		}
		return nil
	})

	cn.TeardownFunc(func() error {
		if source == nil {
			return nil
		}
		return errors.Wrap(source.Close(), "capture source teardown error")
	})

	cn.StepFunc(func() (Item, error) {
		if source == nil {
			time.Sleep(reopenBackoff)

			var err error
			source, err = Open(sourceId)
			if err != nil {
				return Item{Err: err}, nil
			}
			log.Infof("Camera '%s' reopened", sourceId)
		}

		frame, err := source.Next()
		if err != nil {
			switch {
			case errors.Is(err, ErrEndOfStream), errors.Is(err, ErrDeviceUnavailable):
				log.WithError(err).Warnf("Camera '%s' disconnected", sourceId)
				_ = source.Close()
				source = nil
			default:
				log.WithError(err).Debug("Transient capture fault")
			}
			return Item{Err: err}, nil
		}

		return Item{Frame: frame}, nil
	})

	return cn
}

// NewSlotSink drains a capture stream into the latest-frame slot,
// releasing frames the consumer never got around to.
func NewSlotSink(name string, inChan <-chan Item, slot *pipeline.Slot[Item]) *pipeline.SinkNode[Item] {
	sink := pipeline.NewSinkNode(name, inChan)

	sink.StepFunc(func(item Item) error {
		old, dropped := slot.Put(item)
		if dropped && old.Frame != nil {
			return errors.Wrap(old.Frame.Close(), "failed to release dropped frame")
		}
		return nil
	})

	return sink
}

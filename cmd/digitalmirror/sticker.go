package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
	"github.com/liptakmatyas/digital-mirror/internal/segment"
	"github.com/liptakmatyas/digital-mirror/internal/sticker"
)

// stickerMain is the headless one-shot path: read an image, segment the
// face, export the sticker. No editing, no GUI.
func stickerMain(ctx context.Context, args *CliArgs) error {
	det, err := args.Detector()
	if err != nil {
		return err
	}
	if det == nil {
		return errors.New("sticker mode needs a face detector; pass --cascade or --pigo")
	}

	engine := segment.NewEngine(det, segment.DefaultConfig(), logger)
	defer func() { _ = engine.Close() }()

	img := gocv.IMRead(args.InputFile, gocv.IMReadColor)
	if img.Empty() {
		return errors.Errorf("failed to read image from '%s'", args.InputFile)
	}
	frame := &camera.Frame{Mat: img, Time: time.Now()}
	defer func() { _ = frame.Close() }()

	mask, err := engine.Segment(ctx, frame)
	if err != nil {
		return errors.Wrap(err, "segmentation failed")
	}

	doc := sticker.NewDocument(frame.Clone(), mask, args.StickerConfig())
	defer doc.Close()

	exporter := sticker.NewExporter(logger)
	return exporter.ExportToFile(doc, args.OutputFile)
}

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/liptakmatyas/digital-mirror/internal/camera"
	"github.com/liptakmatyas/digital-mirror/internal/segment"
	"github.com/liptakmatyas/digital-mirror/internal/sticker"
)

// CliArgs stores the parsed command line arguments.
type CliArgs struct {
	// SourceId identifies the camera for GoCV. It can be a device ID,
	// a file name, a URL, etc.
	// See https://pkg.go.dev/gocv.io/x/gocv#OpenVideoCapture
	SourceId string

	// CascadeFile points to an OpenCV Haar cascade for face detection.
	CascadeFile string

	// PigoFile points to a pigo binary cascade; used when no OpenCV
	// cascade is given.
	PigoFile string

	// InputFile and OutputFile are the one-shot sticker paths.
	InputFile  string
	OutputFile string

	// Sticker export overrides; zero means the default.
	ByteBudget   int
	TargetSize   int
	OutlineWidth int

	// LogLevelString can be used to override the default log level.
	LogLevelString string

	// logLevel is the numeric representation of the log level.
	logLevel logrus.Level
}

func (args *CliArgs) ValidateLogLevelString() error {
	l, err := logrus.ParseLevel(args.LogLevelString)
	if err != nil {
		return err
	}

	args.logLevel = l
	return nil
}

// Detector builds the configured face detector, or nil when neither
// cascade flag was given (sticker mode then reports unavailability).
func (args *CliArgs) Detector() (segment.Detector, error) {
	switch {
	case args.CascadeFile != "":
		return segment.NewCascadeDetector(args.CascadeFile)
	case args.PigoFile != "":
		return segment.NewPigoDetector(args.PigoFile)
	default:
		return nil, nil
	}
}

// StickerConfig applies the CLI overrides on top of the defaults.
func (args *CliArgs) StickerConfig() sticker.Config {
	cfg := sticker.DefaultConfig()
	if args.ByteBudget > 0 {
		cfg.ByteBudget = args.ByteBudget
	}
	if args.TargetSize > 0 {
		cfg.TargetSize = args.TargetSize
	}
	if args.OutlineWidth > 0 {
		cfg.OutlineWidth = args.OutlineWidth
	}
	return cfg
}

func detectorFlags(args *CliArgs) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cascade",
			Aliases:     []string{"c"},
			Usage:       "OpenCV classifier file; e.g., ./haarcascade_frontalface_default.xml",
			Destination: &args.CascadeFile,
		},
		&cli.StringFlag{
			Name:        "pigo",
			Usage:       "pigo cascade file; e.g., ./facefinder",
			Destination: &args.PigoFile,
		},
	}
}

func stickerFlags(args *CliArgs) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "budget",
			Usage:       "sticker byte budget",
			Destination: &args.ByteBudget,
		},
		&cli.IntFlag{
			Name:        "size",
			Usage:       "sticker edge length in pixels",
			Destination: &args.TargetSize,
		},
		&cli.IntFlag{
			Name:        "outline",
			Usage:       "sticker outline width in pixels",
			Destination: &args.OutlineWidth,
		},
	}
}

func main() {
	args := &CliArgs{
		LogLevelString: "INFO",
		logLevel:       logrus.InfoLevel,
	}

	app := &cli.App{
		Name:  "digitalmirror",
		Usage: "Camera mirror with freeze-frame, zoom/pan and sticker export",

		Before: func(c *cli.Context) error {
			err := args.ValidateLogLevelString()
			if err != nil {
				return err
			}

			initLogger(args.logLevel)
			return nil
		},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       fmt.Sprintf("log level: [%s]", logLevelNames()),
				Value:       args.LogLevelString,
				Destination: &args.LogLevelString,
			},
		},

		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the mirror GUI",

				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:        "source",
						Aliases:     []string{"s"},
						Usage:       "camera source; e.g., device ID, file name, URL, etc. (default: last used)",
						Destination: &args.SourceId,
					},
				}, append(detectorFlags(args), stickerFlags(args)...)...),

				Action: func(c *cli.Context) error {
					logger.Infof("Running with arguments: %+v", *args)
					return guiMain(c.Context, args)
				},
			},

			{
				Name:  "devices",
				Usage: "List available camera devices",

				Action: func(c *cli.Context) error {
					devices := camera.Devices(8)
					if len(devices) == 0 {
						fmt.Println("No cameras found")
						return nil
					}
					for _, d := range devices {
						fmt.Printf("%s\t%s\n", d.ID, d.Name)
					}
					return nil
				},
			},

			{
				Name:  "sticker",
				Usage: "Cut a face sticker out of an image file",

				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:        "in",
						Aliases:     []string{"i"},
						Usage:       "input image file",
						Required:    true,
						Destination: &args.InputFile,
					},
					&cli.StringFlag{
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "output sticker file",
						Required:    true,
						Destination: &args.OutputFile,
					},
				}, append(detectorFlags(args), stickerFlags(args)...)...),

				Action: func(c *cli.Context) error {
					logger.Infof("Running with arguments: %+v", *args)
					return stickerMain(c.Context, args)
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println("Application failed:", err.Error())
	}
}

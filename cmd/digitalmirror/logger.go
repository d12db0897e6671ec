package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// logger is shared by every command; initLogger runs before any of them.
var logger = logrus.New()

// logLevelNames is the accepted --log-level values, for the flag usage
// text.
func logLevelNames() string {
	names := make([]string, 0, len(logrus.AllLevels))
	for _, lvl := range logrus.AllLevels {
		names = append(names, strings.ToUpper(lvl.String()))
	}
	return strings.Join(names, "|")
}

func initLogger(lvl logrus.Level) {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		FullTimestamp:          true,
		TimestampFormat:        "15:04:05.000",
	})
}

// Deep Fryer - one image, every pixel transform side by side
// Author: Ervins Strauhmanis
// License: MIT
// Version: 1.0.0 - Parallel transforms + Presets + Metrics

package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

const (
	AppName    = "deep-fryer"
	AppID      = "io.github.deep-fryer"
	AppVersion = "1.0.0"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool, level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
		return logger, nil
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger, nil
}

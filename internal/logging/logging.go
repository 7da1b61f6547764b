// Package logging configures the process-wide logger.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/eugenetaranov/gantry/internal/config"
)

// LogFormat represents a supported logging format.
type LogFormat string

// Available log formats
const (
	LogFormatPlain LogFormat = "plain"
	LogFormatJSON  LogFormat = "json"
)

var (
	logger = logrus.StandardLogger()

	// ValidLogFormats contains all supported logging formats.
	ValidLogFormats = []LogFormat{LogFormatPlain, LogFormatJSON}
)

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Configure applies the logging configuration.
func Configure(cfg config.LoggingConfig) error {
	if err := SetFormat(cfg.Format); err != nil {
		return err
	}
	SetLevel(cfg.Level)
	if cfg.File != "" {
		if err := SetFile(cfg.File); err != nil {
			return err
		}
	}
	return nil
}

// IsValidFormat checks if the given format is supported.
func IsValidFormat(format string) bool {
	for _, valid := range ValidLogFormats {
		if string(valid) == format {
			return true
		}
	}
	return false
}

// SetFormat sets the log formatter.
func SetFormat(format string) error {
	if !IsValidFormat(format) {
		return fmt.Errorf("invalid log format %q. Valid formats are: %v", format, ValidLogFormats)
	}

	switch LogFormat(format) {
	case LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case LogFormatPlain:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SetLevel sets the logging level. Invalid levels fall back to info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}

// SetFile redirects log output to a file.
func SetFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	logger.SetOutput(file)
	return nil
}

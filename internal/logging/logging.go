// Package logging builds the logrus loggers used across the service.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger writing to stdout and, when file is set,
// to a size-rotated file as well.  Unknown levels fall back to info.
func New(level, file string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if file == "" {
		logger.SetOutput(os.Stdout)
		return logger
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, rotated(file, 10)))
	return logger
}

// NewBookingLogger returns a logger that appends one text line per
// booking event to a rotated file.
func NewBookingLogger(file string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(rotated(file, 1))
	return logger
}

func rotated(file string, maxSizeMB int) *lumberjack.Logger {
	_ = os.MkdirAll(filepath.Dir(file), 0o755)
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		LocalTime:  true,
	}
}

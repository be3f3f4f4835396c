// Package logging builds the logrus logger shared by both pkgmonitor tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects verbosity and an optional rotating log file.
type Options struct {
	Verbose bool

	// File, if non-empty, receives all log output instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New returns a text logger at Info level, or Debug level when verbose. When
// the log file directory cannot be created the logger falls back to stderr
// and says so.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: opts.File == ""})
	logger.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	output, err := buildOutput(opts)
	logger.SetOutput(output)
	if err != nil {
		logger.WithField("path", opts.File).Warn(err.Error())
	}
	return logger
}

func buildOutput(opts Options) (io.Writer, error) {
	if opts.File == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return os.Stderr, fmt.Errorf("log file unusable, logging to stderr: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
	}, nil
}

// Discard returns a logger that drops everything, for tests and library use.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

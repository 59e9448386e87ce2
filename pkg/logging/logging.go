package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileLogger returns a JSON logger that writes to both console and the file at path.
// Command-line tools pass os.Stderr so stdout stays reserved for command output.
// The caller owns the returned file and must close it on shutdown.
func FileLogger(level logrus.Level, path string, console io.Writer) (*os.File, *logrus.Logger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	out := io.Writer(f)
	if console != nil {
		out = io.MultiWriter(console, f)
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)
	return f, logger, nil
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

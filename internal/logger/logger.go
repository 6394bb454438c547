// Package logger provides structured slog loggers. All logs are written in
// JSON format, either to a rotated file under the data directory or to a
// stream for container schedulers that collect stdout.
//
// Log files are organized as:
//
//	<logDir>/system.log          current file
//	<logDir>/system-<ts>.log.gz  rotated backups
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for system.log.
const (
	maxSizeMB  = 20
	maxBackups = 5
	maxAgeDays = 30
)

// NewSystemLogger creates a JSON slog.Logger that writes to <logDir>/system.log
// with size-based rotation. The returned io.Closer releases the file.
func NewSystemLogger(logDir string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "system.log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return NewStreamLogger(w, level), w, nil
}

// NewStreamLogger creates a JSON slog.Logger writing to w.
func NewStreamLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

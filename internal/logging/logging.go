// Package logging configures the structured logger.
package logging

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a slog.Logger writing to a size-rotated file at path.
func New(path string) *slog.Logger {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(handler)
}

// Package logger configures the process-wide slog logger.  The dev
// environment gets human-readable text at debug level; everything else
// gets JSON at info level for log shippers.
package logger

import (
	"log/slog"
	"os"
)

// Setup builds the root logger for the given environment.
func Setup(env string) *slog.Logger {
	if env == "dev" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

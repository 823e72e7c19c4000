package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a logger for tests that writes to stdout at WARN.
// TEST_DEBUG=1 lowers it to DEBUG; TEST_DEBUG may also name a level such as
// "info". TEST_LOG_FORMAT=json switches to the JSON handler.
func NewTestLogger() *slog.Logger {
	level := slog.LevelWarn
	if v := os.Getenv("TEST_DEBUG"); v != "" {
		level = slog.LevelDebug
		if parsed, ok := ParseLevel(v); ok {
			level = parsed
		}
	}

	return NewLogger(Config{
		Level:  level,
		Format: os.Getenv("TEST_LOG_FORMAT"),
		Output: os.Stdout,
	})
}

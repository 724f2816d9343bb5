package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/mmcdole/switchtube/internal/config"
)

// SetupLogger initializes the slog logger.
// An empty file or "-" logs text to stderr, anything else appends JSON to the file.
func SetupLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	level := parseLogLevel(cfg.Level)

	if cfg.File == "" || cfg.File == "-" {
		return NewTextLogger(os.Stderr, level), nil
	}

	logPath, err := homedir.Expand(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to expand log path: %w", err)
	}

	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), nil
}

// NewTextLogger returns a human readable logger writing to w
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

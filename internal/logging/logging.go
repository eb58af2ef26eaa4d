// Package logging builds the process logger
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/anikino/internal/config"
)

// Setup returns a JSON logger writing to cfg.File, or to stderr when the
// file is "-" or empty. The returned closer releases the log file.
func Setup(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	if cfg.File == "" || cfg.File == "-" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nopCloser{}, nil
	}

	logPath, err := expandHome(cfg.File)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(slog.NewJSONHandler(logFile, opts)), logFile, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ParseLevel converts a config level name to slog.Level (default INFO)
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

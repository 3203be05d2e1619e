// Package plog configures probe's structured logging.
//
// By default logging is minimal and goes to stderr, controlled by the
// PROBE_LOG_LEVEL environment variable. --debug raises the level and
// additionally tees output to a rotating file under ~/.probe/logs/, so
// routine use stays quiet while troubleshooting a run still gets a full
// trail.
package plog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls how Setup builds the logger.
type Config struct {
	Level         string // debug, info, warn, error (default: warn)
	FilePath      string // empty means no file logging
	MaxSizeMB     int    // rotation threshold, default 10
	MaxFiles      int    // rotated files to keep, default 5
	WriteToStderr bool
}

// DefaultConfig reads PROBE_LOG_LEVEL (default "warn") and writes to
// stderr only, matching the "just works" default for routine use.
func DefaultConfig() Config {
	level := strings.ToLower(strings.TrimSpace(os.Getenv("PROBE_LOG_LEVEL")))
	if level == "" {
		level = "warn"
	}
	return Config{Level: level, WriteToStderr: true}
}

// DebugConfig returns a config suitable for --debug: debug level, tee'd to
// a rotating log file under dir.
func DebugConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = filepath.Join(dir, "probe.log")
	cfg.MaxSizeMB = 10
	cfg.MaxFiles = 5
	return cfg
}

func levelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Setup builds a slog.Logger from cfg and returns it plus a cleanup
// function that must be called (e.g. via defer) to flush and close any
// open log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	var cleanup func()

	if cfg.WriteToStderr || cfg.FilePath == "" {
		writers = append(writers, os.Stderr)
	}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, err
		}
		rw, err := newRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, rw)
		cleanup = func() { _ = rw.Close() }
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
		w = os.Stderr
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFromString(cfg.Level)})
	logger := slog.New(handler)

	if cleanup == nil {
		cleanup = func() {}
	}
	return logger, cleanup, nil
}

// DefaultDir returns ~/.probe/logs, falling back to a temp dir if the home
// directory can't be resolved.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".probe", "logs")
	}
	return filepath.Join(home, ".probe", "logs")
}

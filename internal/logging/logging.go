package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where and how debug logs are written.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the rotating log file's path.
	FilePath string
	// MaxSizeMB rotates the active file once it crosses this size (default: 10).
	MaxSizeMB int
	// MaxFiles bounds how many rotated files are kept (default: 5).
	MaxFiles int
	// WriteToStderr additionally mirrors every record to stderr (default: true).
	WriteToStderr bool
}

// DefaultConfig returns the info-level file+stderr configuration used
// when --debug is passed without further tuning.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig with the level raised to debug.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a JSON slog.Logger backed by a RotatingWriter (and,
// unless disabled, a stderr mirror), returning it alongside a cleanup
// func that flushes and closes the underlying file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var dest io.Writer = writer
	if cfg.WriteToStderr {
		dest = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(dest, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// SetupDefault builds a debug-level logger, installs it as slog's
// package default, and returns its cleanup func.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel maps a config level string to slog.Level, defaulting to
// info for anything unrecognized rather than erroring.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString is parseLevel exported for callers outside the package
// (the CLI's --debug flag handling).
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}

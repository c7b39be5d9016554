// Package logging configures the process-wide slog logger. Output is
// human-readable text on a TTY and JSON otherwise, overridable with
// LOG_FORMAT. LOG_LEVEL selects the minimum level (default info).
package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New builds a logger from the LOG_FORMAT and LOG_LEVEL environment
// variables, falling back to TTY detection for the format. Source
// locations are attached with paths shortened relative to the working
// directory so log lines stay readable in containers.
func New() *slog.Logger {
	format := os.Getenv("LOG_FORMAT")
	text := format == "text" || (format == "" && isTerminal(os.Stdout))

	wd, _ := os.Getwd()

	opts := &slog.HandlerOptions{
		Level:     levelFromEnv(os.Getenv("LOG_LEVEL")),
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.SourceKey {
				return a
			}
			if src, ok := a.Value.Any().(*slog.Source); ok {
				if rel, err := filepath.Rel(wd, src.File); err == nil {
					src.File = rel
				} else {
					src.File = filepath.Base(src.File)
				}
			}
			return a
		},
	}

	if text {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func levelFromEnv(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault builds a logger, installs it as the slog default, and
// returns it so main can pass it down explicitly.
func SetDefault() *slog.Logger {
	logger := New()
	slog.SetDefault(logger)
	return logger
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

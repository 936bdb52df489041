// Package logging builds the process logger from the pipeline's logging
// section and command-line flags.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New returns a logger writing to w in format ("json" or text). When file is
// non-nil every record is also written to it as JSON.
func New(w io.Writer, level, format string, file io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if file != nil {
		h = slogmulti.Fanout(h, slog.NewJSONHandler(file, opts))
	}
	return slog.New(h)
}

// Setup builds a stderr logger, optionally fanned out to a JSON log file
// opened for append, and installs it as the slog default. The returned
// function closes the file.
func Setup(level, format, file string) (*slog.Logger, func() error, error) {
	if file == "" {
		lg := New(os.Stderr, level, format, nil)
		slog.SetDefault(lg)
		return lg, func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", file, err)
	}
	lg := New(os.Stderr, level, format, f)
	slog.SetDefault(lg)
	return lg, f.Close, nil
}

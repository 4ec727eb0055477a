package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	FormatJSON = "json"
	FormatText = "text"

	textTimeFormat = "15:04:05"
)

// New builds the process logger. JSON goes to w as-is; text uses a
// human-friendly handler for local runs.
func New(w io.Writer, format string, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case FormatText:
		handler := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      textTimeFormat,
			Level:           log.Level(lvl),
		})

		return slog.New(handler), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func ParseLevel(level string) (slog.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return slog.LevelInfo, nil
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}

	return lvl, nil
}

// Elapsed is a log attribute helper for durations in milliseconds.
func Elapsed(start time.Time) slog.Attr {
	return slog.Int64("durationMs", time.Since(start).Milliseconds())
}

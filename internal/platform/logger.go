package platform

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogOptions selects the process logger's verbosity and output shape.
type LogOptions struct {
	Level  string // debug, info, warn, error; empty means info
	Format string // text or json; empty means text
}

// NewLogger builds a slog logger from textual options and installs it as
// the process default, so packages that fall back to slog.Default() pick
// it up.
func NewLogger(opts LogOptions, out io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.TrimSpace(strings.ToLower(opts.Format)) {
	case "", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", value)
	}
}

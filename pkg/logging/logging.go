// Package logging builds the process logger from the log configuration.
package logging

import (
	"io"
	"log/slog"

	"simtelemetry/pkg/config"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to console and, when cfg.File is set, to a
// rotated file. The closer flushes and closes that file.
func New(cfg config.LogConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}

	out := console
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, errors.Errorf("log format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

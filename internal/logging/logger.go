// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects level and output of the logger.
type Params struct {
	Level     string
	File      string
	MaxSizeMB int
	// ToStdout keeps writing to stdout when File is set.
	ToStdout bool
	JSON     bool
}

// New returns a logger for p and a closer for the rotated file, if any.
func New(p Params) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if p.File != "" {
		if !strings.HasSuffix(p.File, ".log") {
			p.File += ".log"
		}
		maxSize := p.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		lj := &lumberjack.Logger{
			Filename: p.File,
			MaxSize:  maxSize, // megabytes
			Compress: true,
		}
		closer = lj
		out = lj
		if p.ToStdout {
			out = io.MultiWriter(os.Stdout, lj)
		}
	}

	return NewWithWriter(out, p.Level, p.JSON), closer
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level. Unknown names yield info.
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

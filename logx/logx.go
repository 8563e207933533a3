// Package logx builds the slog loggers used across gocdp.
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where and how to log.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `json:"level" yaml:"level" toml:"level"`
	// Format is text or json. Empty means text.
	Format string `json:"format" yaml:"format" toml:"format"`
	// Output is stderr, stdout, or a file path. Empty means stderr.
	Output string `json:"output" yaml:"output" toml:"output"`

	// Rotation settings, used when Output is a file.
	MaxSizeMB  int  `json:"maxSizeMB" yaml:"maxSizeMB" toml:"max_size_mb"`
	MaxBackups int  `json:"maxBackups" yaml:"maxBackups" toml:"max_backups"`
	MaxAgeDays int  `json:"maxAgeDays" yaml:"maxAgeDays" toml:"max_age_days"`
	Compress   bool `json:"compress" yaml:"compress" toml:"compress"`
}

// NewDefaultLogger returns an info-level text logger writing to stderr.
func NewDefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New builds a logger from cfg. The returned closer releases the log file,
// if any, and is never nil.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w, closer = lj, lj
	}

	handler, err := newHandler(cfg.Format, w, level)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return slog.New(handler), closer, nil
}

func newHandler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Package logger wraps log/slog with the formats supported by the monitoring binary.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatText  = "text"
	FormatPlain = "plain"
)

var (
	globalMutex  sync.RWMutex
	globalLogger *slog.Logger
)

// Options describes how the process logger is built.
type Options struct {
	Format      string // json, text or plain (unknown -> text)
	Level       string // debug, info, warn, error (fatal/panic -> error)
	IncludeTime bool
	Output      io.Writer // defaults to os.Stdout
}

// L returns the process logger, falling back to an INFO text logger on stdout
// when Configure/Set has not run yet.
func L() *slog.Logger {
	globalMutex.RLock()
	current := globalLogger
	globalMutex.RUnlock()

	if current != nil {
		return current
	}

	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalLogger == nil {
		globalLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return globalLogger
}

// Set replaces the process logger (tests and custom wiring).
func Set(newLogger *slog.Logger) {
	globalMutex.Lock()
	globalLogger = newLogger
	globalMutex.Unlock()
}

// New builds a logger from options without installing it.
func New(options Options) *slog.Logger {
	output := options.Output
	if output == nil {
		output = os.Stdout
	}

	logLevel := ParseLevel(options.Level)

	var handler slog.Handler

	switch strings.ToLower(options.Format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: timeStripper(options.IncludeTime),
		})
	case FormatPlain:
		handler = newPlainTextHandler(output, logLevel, options.IncludeTime)
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: timeStripper(options.IncludeTime),
		})
	}

	return slog.New(handler)
}

// Configure builds a logger from options and installs it as the process logger.
func Configure(options Options) *slog.Logger {
	configured := New(options)
	Set(configured)

	return configured
}

// ValidFormat reports whether format is one of the supported output formats.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatText, FormatPlain:
		return true
	default:
		return false
	}
}

func timeStripper(includeTime bool) func([]string, slog.Attr) slog.Attr {
	if includeTime {
		return nil
	}

	return func(groups []string, attr slog.Attr) slog.Attr {
		if len(groups) == 0 && attr.Key == slog.TimeKey {
			return slog.Attr{}
		}

		return attr
	}
}

// ParseLevel converts a string level to slog.Level.
// Unknown inputs default to INFO; "fatal"/"panic" are treated as ERROR.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal", "panic":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package logger_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/leinardi/safemode-monitoring/internal/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"fatal":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for input, want := range cases {
		if got := logger.ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q): got %v want %v", input, got, want)
		}
	}
}

func TestPlainFormat(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer

	log := logger.New(logger.Options{Format: logger.FormatPlain, Level: "debug", Output: &output})
	log.With("component", "monitoring").
		WithGroup("http").
		Info("metrics served", "status", 200, "format", "text/plain; version=0.0.4")

	got := output.String()
	want := `level=INFO metrics served component=monitoring http.status=200 http.format="text/plain; version=0.0.4"` + "\n"

	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer

	log := logger.New(logger.Options{Format: logger.FormatText, Level: "warn", Output: &output})
	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(output.String(), "hidden") {
		t.Fatalf("info record leaked through warn level: %q", output.String())
	}

	if !strings.Contains(output.String(), "shown") {
		t.Fatalf("warn record missing: %q", output.String())
	}

	if strings.Contains(output.String(), "time=") {
		t.Fatalf("time attribute should be stripped: %q", output.String())
	}
}

func TestValidFormat(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "TEXT", "plain"} {
		if !logger.ValidFormat(format) {
			t.Fatalf("expected %q to be valid", format)
		}
	}

	if logger.ValidFormat("xml") {
		t.Fatal("xml must not be a valid format")
	}
}

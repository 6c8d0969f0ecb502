package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, false)
	logger.Info("store failed", "error", "boom")

	out := buf.String()
	if !strings.Contains(out, "err=boom") {
		t.Fatalf("expected err key in output, got %q", out)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug, true)
	logger.Debug("outcome", "state", "no_cookie")

	if !strings.Contains(buf.String(), `"state":"no_cookie"`) {
		t.Fatalf("expected JSON attribute, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	NewNop().Error("ignored", "error", "x")
}

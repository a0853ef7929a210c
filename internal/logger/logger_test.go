// Tests verify the custom [Handler] output format, level filtering, and
// attribute grouping.
package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo)
	log := slog.New(h)

	log.Info("rendered pages", "pages", "2")

	line := strings.TrimRight(buf.String(), "\n")

	if !strings.Contains(line, "[INFO]") {
		t.Errorf("expected [INFO] in output, got %q", line)
	}
	if !strings.Contains(line, "rendered pages") {
		t.Errorf("expected message in output, got %q", line)
	}
	if !strings.Contains(line, "| pages=2") {
		t.Errorf("expected pages=2 in output, got %q", line)
	}
	if !strings.HasSuffix(strings.Split(line, " [")[0], "Z") {
		t.Errorf("expected UTC timestamp ending with Z, got %q", line)
	}
}

func TestHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelWarn)
	log := slog.New(h)

	log.Debug("too quiet")
	log.Info("still too quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn level, got %q", buf.String())
	}

	log.Warn("loud enough")
	if !strings.Contains(buf.String(), "loud enough") {
		t.Errorf("expected warn message in output, got %q", buf.String())
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo)
	log := slog.New(h).With("chat_id", 99).WithGroup("telegram")

	log.Info("sent photo", "page", 1)

	line := buf.String()
	if !strings.Contains(line, "chat_id=99") {
		t.Errorf("expected pre-applied attr in output, got %q", line)
	}
	if !strings.Contains(line, "telegram.page=1") {
		t.Errorf("expected group-prefixed attr in output, got %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

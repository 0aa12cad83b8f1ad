package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"trace":   slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewWithWriterFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn").With("component", "orchestrator")
	logger.Info("stage started")
	logger.Warn("retrying stage", "attempt", 2)

	out := buf.String()
	if strings.Contains(out, "stage started") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "retrying stage") || !strings.Contains(out, "component=orchestrator") {
		t.Fatalf("unexpected output: %q", out)
	}
}

package slog

import (
	"bytes"
	"errors"
	stdslog "log/slog"
	"strings"
	"testing"

	keyvarango "github.com/TimMikeladze/keyv-arango"
)

func TestLoggerWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))}

	l.Warn("delete failed", keyvarango.Fields{"key": "k", "err": errors.New("boom")})
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `msg="delete failed"`) {
		t.Fatalf("unexpected output %q", out)
	}
	if i, j := strings.Index(out, "err=boom"), strings.Index(out, "key=k"); i < 0 || j < 0 || i > j {
		t.Fatalf("fields missing or unsorted in %q", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}
	l.Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered, got %q", buf.String())
	}
}

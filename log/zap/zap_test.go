package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	keyvarango "github.com/TimMikeladze/keyv-arango"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Error("provisioning failed", keyvarango.Fields{"err": errors.New("refused"), "namespace": "users"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "keyvarango" || e.Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["err"] != "refused" || ctx["namespace"] != "users" {
		t.Fatalf("unexpected fields %v", ctx)
	}
}

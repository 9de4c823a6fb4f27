package zap

import (
	"go.uber.org/zap"

	keyvarango "github.com/TimMikeladze/keyv-arango"
)

var _ keyvarango.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New wraps l under the "keyvarango" logger name.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("keyvarango")} }

func (z ZapLogger) Debug(msg string, f keyvarango.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f keyvarango.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f keyvarango.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f keyvarango.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f keyvarango.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}

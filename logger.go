package keyvarango

// Fields carries the structured context of a log line. The store uses the
// keys "key", "namespace", "reason", "cached" and "err".
type Fields map[string]any

// Logger receives the store's diagnostics: provisioning at Debug, write
// conflict retries at Debug, decode failures and suppressed deletes at
// Warn, provisioning failures at Error. Adapters live in log/logrus,
// log/zap and log/slog.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything; it is used when Options.Logger is nil.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

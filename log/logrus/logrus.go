package logrus

import (
	"github.com/sirupsen/logrus"

	keyvarango "github.com/TimMikeladze/keyv-arango"
)

var _ keyvarango.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l, tagging every entry with component=keyvarango.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "keyvarango")}
}

func (l LogrusLogger) Debug(msg string, f keyvarango.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f keyvarango.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f keyvarango.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f keyvarango.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}

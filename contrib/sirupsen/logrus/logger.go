package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/kleimkuhler/tracing/trace/tracer/logger"
)

// NewLogger adapts a logrus logger to the tracer's internal diagnostic
// logger, so the runtime's own errors surface in the application log.
func NewLogger(l *logrus.Logger) logger.Logger {
	return &logrusLogger{l: l}
}

type logrusLogger struct {
	l *logrus.Logger
}

func (l *logrusLogger) Debug(format string, args ...interface{}) {
	l.l.Debugf(format, args...)
}

func (l *logrusLogger) Info(format string, args ...interface{}) {
	l.l.Infof(format, args...)
}

func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.l.Errorf(format, args...)
}

// Package logger defines the minimal logging surface the tracing runtime
// reports its own diagnostics through. The default is a no-op; adapters
// for real logging backends live under contrib.
package logger

type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type NoopLogger struct{}

func (l *NoopLogger) Debug(format string, args ...interface{}) {}
func (l *NoopLogger) Info(format string, args ...interface{})  {}
func (l *NoopLogger) Error(format string, args ...interface{}) {}

// FuncLogger routes every level to a single printf-style function, which
// is handy for tests and examples.
type FuncLogger func(format string, args ...interface{})

func (f FuncLogger) Debug(format string, args ...interface{}) { f(format, args...) }
func (f FuncLogger) Info(format string, args ...interface{})  { f(format, args...) }
func (f FuncLogger) Error(format string, args ...interface{}) { f(format, args...) }

// Package corelog provides the small logging interface used throughout
// gbcore. It exists so that internal packages never depend on logrus
// directly, only on the interface, matching the teacher's pkg/log shape.
package corelog

import "github.com/sirupsen/logrus"

// Logger is the logging surface GBCore holds (set with WithLogger); the
// internal packages take no logger. It intentionally has no Fatal: the
// core never terminates the process on a bad ROM or register write, it
// logs and continues (see §7).
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type logrusLogger struct {
	l *logrus.Logger
}

// New returns a logrus-backed Logger at the given level, formatted the way
// the teacher's MMU configures its own logrus instance: no timestamps, no
// colour, stable field ordering.
func New(level logrus.Level) Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableSorting:   true,
		DisableQuote:     true,
	}
	return &logrusLogger{l: l}
}

func (g *logrusLogger) Infof(format string, args ...interface{})  { g.l.Infof(format, args...) }
func (g *logrusLogger) Warnf(format string, args ...interface{})  { g.l.Warnf(format, args...) }
func (g *logrusLogger) Errorf(format string, args ...interface{}) { g.l.Errorf(format, args...) }
func (g *logrusLogger) Debugf(format string, args ...interface{}) { g.l.Debugf(format, args...) }

type nullLogger struct{}

// NewNull returns a Logger that discards everything, for tests and
// embedders that don't want core log spam.
func NewNull() Logger { return nullLogger{} }

func (nullLogger) Infof(string, ...interface{})  {}
func (nullLogger) Warnf(string, ...interface{})  {}
func (nullLogger) Errorf(string, ...interface{}) {}
func (nullLogger) Debugf(string, ...interface{}) {}

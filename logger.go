package permits

import (
	"log"
)

// Logger interface is provided
// to allow you to customize the logging internally done
// by the limiters.
//
// The default implementation writes to the "log" standard module
// via log.Default(), tagging every line with its level.
//
// If you want to disable the default logger
// you can pass an instance of permits.NewNoOpLogger()
// in the limiter configuration.
type Logger interface {
	Debug(string)
	Info(string)
	Warning(string)
	Error(string)
}

type defaultLogger struct {
	out *log.Logger
}

func newDefaultLogger() Logger {
	return &defaultLogger{out: log.Default()}
}

func (l *defaultLogger) Debug(text string) {
	l.out.Printf("[permits] [debug] %v", text)
}
func (l *defaultLogger) Info(text string) {
	l.out.Printf("[permits] [info] %v", text)
}
func (l *defaultLogger) Warning(text string) {
	l.out.Printf("[permits] [WARNING] %v", text)
}
func (l *defaultLogger) Error(text string) {
	l.out.Printf("[permits] [ERROR] %v", text)
}

// NewNoOpLogger returns a Logger that discards every message,
// useful to keep a limiter silent.
func NewNoOpLogger() Logger {
	return discardLogger{}
}

type discardLogger struct{}

func (discardLogger) Debug(string)   {}
func (discardLogger) Info(string)    {}
func (discardLogger) Warning(string) {}
func (discardLogger) Error(string)   {}

package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger wraps Logger with test observation capabilities.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger for testing with full observation.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{
			zap:    zap.New(core),
			config: NewDefaultConfig(),
		},
		observed: observed,
	}
}

// Entries returns all observed log entries.
func (t *TestLogger) Entries() []observer.LoggedEntry {
	return t.observed.All()
}

// HasEntry reports whether an entry at the given level contains msg as a
// substring of its message.
func (t *TestLogger) HasEntry(level zapcore.Level, msg string) bool {
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}

// FieldValue returns the value of the named field on the first entry whose
// message contains msg, or nil if absent.
func (t *TestLogger) FieldValue(msg, field string) interface{} {
	for _, e := range t.observed.All() {
		if !strings.Contains(e.Message, msg) {
			continue
		}
		for _, f := range e.Context {
			if f.Key == field {
				return f.Interface
			}
		}
	}
	return nil
}

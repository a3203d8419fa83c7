package testutil

import (
	"strings"
	"sync"

	"plantly/internal/plantly"
)

// LogEntry is one call recorded by RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger keeps every log call for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ plantly.Logger = (*RecordingLogger)(nil)

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Entries returns the recorded calls at level, or all calls if level is "".
func (l *RecordingLogger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether a call at level had a message containing substr.
func (l *RecordingLogger) Contains(level, substr string) bool {
	for _, e := range l.Entries(level) {
		if strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

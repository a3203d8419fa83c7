package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// logFile is the log file name inside the configured log directory.
const logFile = "plantly.log"

// sink is one destination of plantlyHandler with its own minimum level.
type sink struct {
	w   io.Writer
	min slog.Level
}

// plantlyHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Each line is written to every sink whose level it reaches.
type plantlyHandler struct {
	sinks []sink
	opID  string
	attrs []slog.Attr
}

func (h *plantlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if level >= s.min {
			return true
		}
	}
	return false
}

func (h *plantlyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	line := b.String()
	for _, s := range h.sinks {
		if r.Level < s.min {
			continue
		}
		if _, err := io.WriteString(s.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (h *plantlyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &plantlyHandler{
		sinks: h.sinks,
		opID:  h.opID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *plantlyHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes every record to
// logDir/plantly.log and warnings and errors to console.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, opID string, console io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	sinks := []sink{{w: f, min: slog.LevelDebug}}
	if console != nil {
		sinks = append(sinks, sink{w: console, min: slog.LevelWarn})
	}
	return slog.New(&plantlyHandler{sinks: sinks, opID: opID}), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the plantly.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPlantlyHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "plant added",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tplant added\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "snapshot saved",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tsnapshot saved\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "plant watered",
			attrs:   []slog.Attr{slog.String("id", "plant-1"), slog.Int("every_days", 6)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tplant watered\tid=plant-1\tevery_days=6\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &plantlyHandler{sinks: []sink{{w: &buf, min: slog.LevelDebug}}, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestPlantlyHandler_SinkLevels(t *testing.T) {
	var file, console bytes.Buffer
	h := &plantlyHandler{
		sinks: []sink{{w: &file, min: slog.LevelDebug}, {w: &console, min: slog.LevelWarn}},
		opID:  "op-1",
	}
	logger := slog.New(h)

	logger.Info("plant added")
	logger.Warn("snapshot write failed, retrying")

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Errorf("file received %d lines, want 2", got)
	}
	if strings.Contains(console.String(), "plant added") {
		t.Error("console received an info line")
	}
	if !strings.Contains(console.String(), "retrying") {
		t.Error("console missing the warning")
	}
}

func TestPlantlyHandler_Enabled(t *testing.T) {
	h := &plantlyHandler{sinks: []sink{{w: &bytes.Buffer{}, min: slog.LevelWarn}}}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(INFO) = true, want false")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(ERROR) = false, want true")
	}
}

func TestPlantlyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &plantlyHandler{sinks: []sink{{w: &buf, min: slog.LevelDebug}}, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "store")}).(*plantlyHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "loaded", 0)
	r.AddAttrs(slog.Int("count", 3))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "component=store", "count=3"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "plantly.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "test-op\thello") {
		t.Errorf("log file = %q, want the info line", data)
	}
	if console.Len() != 0 {
		t.Errorf("console = %q, want empty", console.String())
	}
}

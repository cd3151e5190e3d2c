package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetWriter(t *testing.T) {
	if w, err := getWriter("stdout"); err != nil || w != os.Stdout {
		t.Errorf("getWriter(stdout) = %v, %v", w, err)
	}
	if w, err := getWriter("stderr"); err != nil || w != os.Stderr {
		t.Errorf("getWriter(stderr) = %v, %v", w, err)
	}
	if w, err := getWriter(""); err != nil || w != os.Stderr {
		t.Errorf("getWriter(empty) = %v, %v", w, err)
	}

	// File destination.
	path := filepath.Join(t.TempDir(), "hepmeter.log")
	w, err := getWriter(path)
	if err != nil {
		t.Fatalf("getWriter(file) error = %v", err)
	}
	if w == nil {
		t.Fatal("getWriter(file) returned nil writer")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := &logger{
		slogger: slog.New(slog.NewTextHandler(&buf, nil)),
	}

	l.Info("refresh complete", "month", "03.2024")

	out := buf.String()
	if !strings.Contains(out, "refresh complete") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "month=03.2024") {
		t.Errorf("output missing field: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := &logger{
		slogger: slog.New(slog.NewJSONHandler(&buf, nil)),
	}

	l.Warn("month skipped", "month", "01.2024")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["msg"] != "month skipped" {
		t.Errorf("msg = %v, want %q", record["msg"], "month skipped")
	}
	if record["month"] != "01.2024" {
		t.Errorf("month = %v, want %q", record["month"], "01.2024")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := &logger{
		slogger: slog.New(slog.NewTextHandler(&buf, nil)),
	}

	child := base.With("omm", "1234567")
	child.Info("fetch started")

	if !strings.Contains(buf.String(), "omm=1234567") {
		t.Errorf("With() field missing from output: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &logger{
		slogger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})),
	}

	l.Debug("should be dropped")
	l.Info("should be dropped too")
	l.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("filtered levels leaked into output: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing from output: %q", out)
	}
}

func TestNoop(t *testing.T) {
	// Must not panic and must accept all levels.
	l := Noop()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
	l.With("k", "v").Info("e")
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(false)
	l.out = &buf

	l.Info("loaded %d builds", 3)
	l.Debug("hidden %s", "detail")
	l.Error("failed: %v", "boom")

	got := buf.String()
	if !strings.Contains(got, "[INFO] loaded 3 builds") {
		t.Errorf("output missing info line: %q", got)
	}
	if !strings.Contains(got, "[ERROR] failed: boom") {
		t.Errorf("output missing error line: %q", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line written without debug enabled: %q", got)
	}

	buf.Reset()
	l = NewConsoleLogger(true)
	l.out = &buf
	l.Debug("shown %s", "detail")
	if !strings.Contains(buf.String(), "[DEBUG] shown detail") {
		t.Errorf("debug line missing: %q", buf.String())
	}
}

func TestLeveledConsoleLogger(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantError bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true, wantError: true},
		{level: "info", wantInfo: true, wantError: true},
		{level: "warn", wantError: true},
		{level: "error", wantError: true},
		{level: "fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := NewLeveledConsoleLogger(tt.level)
			if err != nil {
				t.Fatalf("NewLeveledConsoleLogger() error = %v", err)
			}
			var buf bytes.Buffer
			l.out = &buf

			l.Debug("d")
			l.Info("i")
			l.Error("e")

			got := buf.String()
			if strings.Contains(got, "[DEBUG] d") != tt.wantDebug {
				t.Errorf("debug written = %v, want %v", !tt.wantDebug, tt.wantDebug)
			}
			if strings.Contains(got, "[INFO] i") != tt.wantInfo {
				t.Errorf("info written = %v, want %v", !tt.wantInfo, tt.wantInfo)
			}
			if strings.Contains(got, "[ERROR] e") != tt.wantError {
				t.Errorf("error written = %v, want %v", !tt.wantError, tt.wantError)
			}
		})
	}

	if _, err := NewLeveledConsoleLogger("loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestStructuredLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewStructuredLogger(&buf, "info", "json")
	if err != nil {
		t.Fatalf("NewStructuredLogger() error = %v", err)
	}

	l.WithField("target", "vllm/ci@main").Info("refreshed %d jobs", 12)
	l.Debug("not at info level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "refreshed 12 jobs" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["target"] != "vllm/ci@main" {
		t.Errorf("target = %v", entry["target"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestNewStructuredLogger_Invalid(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewStructuredLogger(&buf, "loud", "text"); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := NewStructuredLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestSilentLogger(t *testing.T) {
	var l Logger = NewSilentLogger()
	l.Info("nothing")
	l.Error("nothing")
	l.Debug("nothing")
}

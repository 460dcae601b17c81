package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"jobhealth/src/broker"
	"jobhealth/src/config"
	"jobhealth/src/contracts"
	"jobhealth/src/logger"
	"jobhealth/src/provider"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromMap(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFromMap() error = %v", err)
	}
	return cfg
}

func sampleSnapshot() *contracts.DashboardSnapshot {
	return &contracts.DashboardSnapshot{
		Target:      contracts.Target{Org: "vllm", Pipeline: "ci", Branch: "main"},
		Generation:  2,
		TotalBuilds: 5,
		Jobs: []contracts.JobHealth{
			{Key: "unit", Name: "Unit", LastState: provider.JobFailed, Frequency: 5},
			{Key: "perf", Name: "Perf", LastState: provider.JobFailed, Frequency: 3, Optional: true},
			{Key: "lint", Name: "Lint", LastState: provider.JobPassed, Frequency: 5},
		},
		Summary: contracts.Summary{FailingRequired: 1, FailingOptional: 1, Passing: 1},
	}
}

func TestParseBuildArg(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name    string
		arg     string
		want    provider.BuildRef
		wantErr bool
	}{
		{
			name: "build number",
			arg:  "4821",
			want: provider.BuildRef{Provider: "buildkite", Org: "vllm", Pipeline: "ci", Number: 4821},
		},
		{
			name: "buildkite URL",
			arg:  "https://buildkite.com/acme/deploy/builds/12",
			want: provider.BuildRef{Provider: "buildkite", Org: "acme", Pipeline: "deploy", Number: 12},
		},
		{name: "negative number", arg: "-4", wantErr: true},
		{name: "not a URL", arg: "not-a-url", wantErr: true},
		{name: "wrong domain", arg: "https://example.com/builds/123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBuildArg(tt.arg, cfg)
			if tt.wantErr {
				if !errors.Is(err, provider.ErrInvalidURL) {
					t.Errorf("parseBuildArg() error = %v, want ErrInvalidURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBuildArg() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseBuildArg() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterSnapshot(t *testing.T) {
	snap := sampleSnapshot()

	if got := filterSnapshot(snap, false); got != snap {
		t.Error("filterSnapshot(false) should return the snapshot unchanged")
	}

	got := filterSnapshot(snap, true)
	if len(got.Jobs) != 1 || got.Jobs[0].Key != "unit" {
		t.Errorf("filtered jobs = %+v, want only unit", got.Jobs)
	}
	if len(snap.Jobs) != 3 {
		t.Error("filterSnapshot modified its input")
	}
	if got.Summary != snap.Summary {
		t.Error("filterSnapshot changed the summary")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, sampleSnapshot(), false); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("compact output should be one line, got %q", out)
	}

	var decoded contracts.DashboardSnapshot
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Generation != 2 || len(decoded.Jobs) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	writeSummary(&buf, sampleSnapshot())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "vllm/ci@main") || !strings.Contains(lines[0], "1 failing") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Perf (optional)") {
		t.Errorf("optional marker missing: %q", lines[2])
	}
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)

	l, err := newLogger(cfg, false)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if _, ok := l.(*logger.ConsoleLogger); !ok {
		t.Errorf("text format logger is %T, want *logger.ConsoleLogger", l)
	}

	cfg.LogLevel = "warn"
	if l, err = newLogger(cfg, false); err != nil {
		t.Fatalf("newLogger() at warn error = %v", err)
	}
	if _, ok := l.(*logger.ConsoleLogger); !ok {
		t.Errorf("warn level logger is %T, want *logger.ConsoleLogger", l)
	}

	cfg.LogLevel = "loud"
	if _, err = newLogger(cfg, false); err == nil {
		t.Error("newLogger() expected error for invalid level")
	}

	cfg.LogLevel = "info"
	cfg.LogFormat = "json"
	l, err = newLogger(cfg, true)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if _, ok := l.(*logger.StructuredLogger); !ok {
		t.Errorf("json format logger is %T, want *logger.StructuredLogger", l)
	}
}

func TestNewRuntime_NoBrokers(t *testing.T) {
	cfg := testConfig(t)

	rt, err := newRuntime(cfg, logger.NewSilentLogger())
	if err != nil {
		t.Fatalf("newRuntime() error = %v", err)
	}
	defer rt.Close()

	if _, ok := rt.broker.(*broker.InMemoryBroker); !ok || !rt.local {
		t.Errorf("broker = %T, local = %v; want in-memory broker", rt.broker, rt.local)
	}
	snap, err := rt.refresher.Refresh(t.Context(), refreshOptionsOf(cfg))
	if snap != nil || err != nil {
		t.Errorf("Refresh() without token = %v, %v; want nil, nil", snap, err)
	}
}

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandlerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(NewHandler(&out, &errOut, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("started", "addr", ":8080")
	logger.Warn("slow request")
	logger.Error("failed", "error", "boom")

	if strings.Contains(out.String(), "hidden") || strings.Contains(errOut.String(), "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out.String(), "msg=started") || !strings.Contains(out.String(), "msg=\"slow request\"") {
		t.Errorf("stdout missing info/warn records: %q", out.String())
	}
	if strings.Contains(out.String(), "failed") {
		t.Error("error record should not reach stdout")
	}
	if !strings.Contains(errOut.String(), "msg=failed") {
		t.Errorf("stderr missing error record: %q", errOut.String())
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(NewHandler(&out, &errOut, slog.LevelDebug)).With("component", "api").WithGroup("req")

	logger.Debug("sent", "endpoint", "Login")
	logger.Error("failed")

	if !strings.Contains(out.String(), "component=api") || !strings.Contains(out.String(), "req.endpoint=Login") {
		t.Errorf("unexpected stdout: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "component=api") {
		t.Errorf("unexpected stderr: %q", errOut.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupWritersFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "msds.log")
	var out, errOut bytes.Buffer
	cleanup, err := SetupWriters(&out, &errOut, path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("SetupWriters: %v", err)
	}

	slog.Info("to file")
	slog.Error("also to file")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") || !strings.Contains(string(data), "also to file") {
		t.Errorf("log file missing records: %q", data)
	}
}

func TestSetupWritersBadPath(t *testing.T) {
	_, err := SetupWriters(&bytes.Buffer{}, &bytes.Buffer{}, filepath.Join(t.TempDir(), "missing", "x.log"), slog.LevelInfo)
	if err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}

// internal/logging/logging_test.go
package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/signalnine/perfwatch/internal/config"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"warn", false, zapcore.WarnLevel},
		{"error", true, zapcore.DebugLevel},
		{"debug", false, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		log, err := New(config.LoggingConfig{Level: tt.level}, tt.verbose)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.level, err)
		}
		if !log.Core().Enabled(tt.want) {
			t.Errorf("level %q verbose=%v: %v not enabled", tt.level, tt.verbose, tt.want)
		}
		if tt.want > zapcore.DebugLevel && log.Core().Enabled(tt.want-1) {
			t.Errorf("level %q verbose=%v: %v should be disabled", tt.level, tt.verbose, tt.want-1)
		}
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "chatty"}, false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFileCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfwatch.log")
	log, err := New(config.LoggingConfig{Level: "info", File: path, MaxSizeMB: 1}, false)
	if err != nil {
		t.Fatal(err)
	}
	log.Named("agent").Info("cycle complete")
	log.Debug("filtered")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["message"] != "cycle complete" || entry["logger"] != "agent" || entry["level"] != "info" {
		t.Errorf("unexpected entry %v", entry)
	}
}

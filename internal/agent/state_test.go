// internal/agent/state_test.go
package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateReadWrite(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "nested", lastCleanupFile)

	// Missing file reads as zero time
	ts, err := ReadTimestamp(statePath)
	if err != nil {
		t.Fatalf("ReadTimestamp (missing file) error: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time for missing file, got %v", ts)
	}

	now := time.Date(2026, 2, 3, 12, 30, 0, 0, time.UTC)
	if err := WriteTimestamp(statePath, now); err != nil {
		t.Fatalf("WriteTimestamp error: %v", err)
	}

	ts, err = ReadTimestamp(statePath)
	if err != nil {
		t.Fatalf("ReadTimestamp error: %v", err)
	}
	if !ts.Equal(now) {
		t.Errorf("ReadTimestamp = %v, want %v", ts, now)
	}

	// Overwrite leaves no temp files behind
	if err := WriteTimestamp(statePath, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Dir(statePath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("state dir has %d entries, want 1", len(entries))
	}
}

func TestStateCorruptFile(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, lastCleanupFile)

	if err := os.WriteFile(statePath, []byte("not a timestamp"), 0644); err != nil {
		t.Fatal(err)
	}

	ts, err := ReadTimestamp(statePath)
	if err != nil {
		t.Fatalf("ReadTimestamp (corrupt) error: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time for corrupt file, got %v", ts)
	}
}

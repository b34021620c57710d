// internal/agent/state.go
package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampFormat = time.RFC3339Nano

// lastCleanupFile lives under storage.state_dir.
const lastCleanupFile = "last_cleanup"

// ReadTimestamp reads a timestamp persisted by WriteTimestamp.
// A missing or corrupt file yields the zero time so the caller starts fresh.
func ReadTimestamp(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s: %w", path, err)
	}

	ts, err := time.Parse(timestampFormat, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, nil
	}
	return ts, nil
}

// WriteTimestamp replaces the file at path with ts, creating parent
// directories as needed. The write goes through a temp file and rename so
// a crash never leaves a truncated file behind.
func WriteTimestamp(path string, ts time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(ts.Format(timestampFormat)); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

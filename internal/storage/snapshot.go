package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smukkama/aqi-predictor/internal/protocol"
)

// SnapshotFile stores the latest current conditions as a small JSON object
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the file location
func (s *SnapshotFile) Path() string {
	return s.path
}

// Write replaces the snapshot file
func (s *SnapshotFile) Write(snap *protocol.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Read loads the snapshot. Absent or unparsable files are errors; callers
// fall back to protocol.PlaceholderSnapshot.
func (s *SnapshotFile) Read() (*protocol.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap protocol.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}

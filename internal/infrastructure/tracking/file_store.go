package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"EnrollmentHealth/internal/ports"
)

// FileStore persists reminder tracking as a flat JSON object of record id
// to RFC 3339 timestamp. Save writes the whole file through an atomic
// rename, so a crashed writer never leaves a partially written store.
type FileStore struct {
	path string
}

var _ ports.TrackingStore = (*FileStore)(nil)

// NewFileStore points the store at a JSON file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the tracking map. A missing file is an empty store.
func (s *FileStore) Load(_ context.Context) (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return map[string]string{}, fmt.Errorf("read tracking file: %w", err)
	}

	tracking := map[string]string{}
	if err := json.Unmarshal(raw, &tracking); err != nil {
		return map[string]string{}, fmt.Errorf("parse tracking file: %w", err)
	}

	return tracking, nil
}

// Save replaces the stored map with the given one.
func (s *FileStore) Save(_ context.Context, tracking map[string]string) error {
	if tracking == nil {
		tracking = map[string]string{}
	}

	raw, err := json.MarshalIndent(tracking, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write tracking file: %w", err)
	}

	return nil
}

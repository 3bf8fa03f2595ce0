package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iota-uz/utils/fs"
)

// Checkpoint carries one watermark per phase. A zero time means the phase has
// never completed, i.e. full-sync semantics.
type Checkpoint struct {
	LastGroupSync time.Time `json:"last_group_sync"`
	LastUserSync  time.Time `json:"last_user_sync"`
	LastRun       time.Time `json:"last_run_utc"`
}

// CheckpointStore persists the checkpoint as a small JSON file. The format is
// an implementation detail; nothing else depends on it.
type CheckpointStore struct {
	path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Load reads the checkpoint. An absent file is not an error: it means the
// next run is a full sync.
func (s *CheckpointStore) Load() (Checkpoint, error) {
	var cp Checkpoint
	if !fs.FileExists(s.path) {
		return cp, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return cp, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", s.path, err)
	}
	return cp, nil
}

// Save writes the checkpoint atomically (temp file + rename) and never lets a
// watermark regress below what is already on disk.
func (s *CheckpointStore) Save(cp Checkpoint) error {
	existing, err := s.Load()
	if err == nil {
		cp.LastGroupSync = maxTime(cp.LastGroupSync, existing.LastGroupSync)
		cp.LastUserSync = maxTime(cp.LastUserSync, existing.LastUserSync)
		cp.LastRun = maxTime(cp.LastRun, existing.LastRun)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal checkpoint: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

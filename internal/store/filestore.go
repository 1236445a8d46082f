// Package store persists the job queue as a single JSON file, rewritten
// wholesale after every mutating queue operation.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/orrn/printflow/internal/core"
)

type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted list. A missing file is an empty queue; a
// corrupt file is reported but must be treated as empty by the caller.
func (s *FileStore) Load() ([]*core.QueuedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var jobs []*core.QueuedJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parse queue file %s: %w", s.path, err)
	}
	return jobs, nil
}

// Save rewrites the whole list. The write goes through a temp file in the
// same directory plus a rename, so a crash mid-write never leaves a
// half-written queue behind.
func (s *FileStore) Save(jobs []*core.QueuedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobs == nil {
		jobs = []*core.QueuedJob{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".queue-*.json")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close queue file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

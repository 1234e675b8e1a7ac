package fewshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the example collection in a single JSON file and rewrites
// the whole file on every insert. The rewrite goes through a temp file and
// rename so readers never observe a partial write. Concurrent writers from
// separate processes would race (last writer wins); the tool is deployed as
// a single-user, single-writer service.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("examples file path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(_ context.Context) ([]Example, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) Add(_ context.Context, example Example) (bool, error) {
	if strings.TrimSpace(example.Name) == "" {
		return false, fmt.Errorf("example name is required")
	}
	if strings.TrimSpace(example.SQL) == "" {
		return false, fmt.Errorf("example sql is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	examples, err := s.load()
	if err != nil {
		// A malformed file is never clobbered by an insert.
		return false, err
	}
	for _, existing := range examples {
		if existing.Name == example.Name {
			return false, nil
		}
	}

	examples = append(examples, example)
	if err := s.persist(examples); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) load() ([]Example, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Example{}, nil
		}
		return nil, fmt.Errorf("read examples file %q: %w", s.path, err)
	}
	var examples []Example
	if err := json.Unmarshal(raw, &examples); err != nil {
		return nil, fmt.Errorf("examples file %q is not valid JSON: %w", s.path, err)
	}
	return examples, nil
}

func (s *FileStore) persist(examples []Example) error {
	encoded, err := json.MarshalIndent(examples, "", "    ")
	if err != nil {
		return fmt.Errorf("encode examples: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create examples dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".fewshots-*.json")
	if err != nil {
		return fmt.Errorf("create temp examples file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp examples file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp examples file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace examples file %q: %w", s.path, err)
	}
	return nil
}

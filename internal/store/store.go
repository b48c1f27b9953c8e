// Package store provides append-only JSONL record persistence.
//
// Each record is one JSON object on its own line. The poll loop appends a
// stats summary at each logging interval, and the execution observer appends
// one record per intent bundle, so a run leaves a replayable activity trail.
// Appends are mutex-serialized; the file is opened once and only ever
// appended to, so a crash can at worst truncate the final line.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store appends JSON-encoded records to a single file.
type Store struct {
	mu   sync.Mutex // serializes appends
	f    *os.File
	path string
}

// Open creates (or reopens for append) the record file at path, creating
// parent directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store file: %w", err)
	}
	return &Store{f: f, path: path}, nil
}

// Append marshals v and writes it as one line.
func (s *Store) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Path returns the record file path.
func (s *Store) Path() string {
	return s.path
}

// Close flushes and closes the record file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Package store persists calibration baselines and adaptive profiles as JSON
// documents on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store defines the interface for persistence backends.
type Store interface {
	// Save persists the given data.
	Save(data []byte) error

	// Load retrieves the stored data. A store that was never written
	// returns nil data and no error.
	Load() ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}

// JSONStore implements Store for file-based JSON persistence.
// Writes go to a temp file that is renamed over the target, so a crash never
// leaves a half-written document behind.
type JSONStore struct {
	FilePath string

	mu sync.Mutex
}

// NewJSONStore creates a new JSON file store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{FilePath: path}
}

// Save writes data to the JSON file.
func (s *JSONStore) Save(data []byte) error {
	if s.FilePath == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmpPath := s.FilePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.FilePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads data from the JSON file.
func (s *JSONStore) Load() ([]byte, error) {
	if s.FilePath == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Close is a no-op for JSON files.
func (s *JSONStore) Close() error {
	return nil
}

// MemoryStore keeps the document in memory. Used in tests and when
// persistence is disabled.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored document.
func (m *MemoryStore) Save(data []byte) error {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// Load returns a copy of the stored document.
func (m *MemoryStore) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// LoadJSON decodes the stored document into v.
// It reports false when the store holds nothing.
func LoadJSON(s Store, v any) (bool, error) {
	data, err := s.Load()
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return true, nil
}

// SaveJSON encodes v and saves it synchronously.
func SaveJSON(s Store, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.Save(data)
}

var (
	_ Store = (*JSONStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

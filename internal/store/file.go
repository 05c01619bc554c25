package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	storageFileName = "storage.json"
	filePerms       = 0600 // Owner read/write only
)

// FileStore keeps all keys in one JSON object on disk, the way a browser keeps
// localStorage for an origin. Every mutation rewrites the file atomically.
type FileStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]string
	corrupt  bool
}

// NewFileStore opens (or creates) the store under dataDir. An unreadable or
// corrupted file is treated as empty and replaced on the next write.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		filePath: filepath.Join(dataDir, storageFileName),
		data:     make(map[string]string),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		s.corrupt = true
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.filePath }

// Recovered reports whether the file existed but could not be parsed.
func (s *FileStore) Recovered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrupt
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var data map[string]string
	if err := codec.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse storage file: %w", err)
	}
	if data == nil {
		data = make(map[string]string)
	}
	s.data = data
	return nil
}

// save writes to a temp file then renames it over the old one.
func (s *FileStore) save() error {
	raw, err := codec.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, filePerms); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save storage file: %w", err)
	}

	s.corrupt = false
	return nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = string(value)
	return s.save()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

func (s *FileStore) Close() error { return nil }

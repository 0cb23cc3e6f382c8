package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"storefront/internal/models"
)

// StoredSession is the persisted identity plus credential, the local
// cache that makes optimistic bootstrap possible.
type StoredSession struct {
	Identity models.Identity `json:"identity"`
	Token    string          `json:"token"`
}

// SessionStorage persists the session across process restarts. Load
// returns (nil, nil) when nothing is stored.
type SessionStorage interface {
	Load() (*StoredSession, error)
	Save(session StoredSession) error
	Clear() error
}

// FileSessionStorage keeps the session in a JSON file.
type FileSessionStorage struct {
	path string
}

// NewFileSessionStorage creates a storage backed by the given path.
func NewFileSessionStorage(path string) *FileSessionStorage {
	return &FileSessionStorage{path: path}
}

func (s *FileSessionStorage) Load() (*StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &stored, nil
}

func (s *FileSessionStorage) Save(session StoredSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *FileSessionStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// MemorySessionStorage keeps the session in memory. Used in tests and
// when no session file is configured.
type MemorySessionStorage struct {
	mu     sync.Mutex
	stored *StoredSession
}

// NewMemorySessionStorage creates an empty in-memory storage.
func NewMemorySessionStorage() *MemorySessionStorage {
	return &MemorySessionStorage{}
}

func (s *MemorySessionStorage) Load() (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		return nil, nil
	}
	stored := *s.stored
	return &stored, nil
}

func (s *MemorySessionStorage) Save(session StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = &session
	return nil
}

func (s *MemorySessionStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = nil
	return nil
}

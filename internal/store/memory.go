package store

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"dbx-go/internal/dbx"
)

// MemoryStore is an in-memory implementation of the FileStore interface,
// useful for testing. It is safe for concurrent use.
type MemoryStore struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores the object, replacing any previous version.
func (s *MemoryStore) Put(name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading object data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
	return nil
}

// Get writes the object contents to w.
func (s *MemoryStore) Get(name string, w io.Writer) error {
	s.mu.RLock()
	data, ok := s.objects[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, dbx.ErrObjectNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing object data: %w", err)
	}
	return nil
}

// Names returns the stored object names. Test helper.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	return names
}

// Compile-time check that MemoryStore implements dbx.FileStore
var _ dbx.FileStore = (*MemoryStore)(nil)

package storage

import "sync"

// Store is a flat key/value record with string keys and string values.
// Settings and conversation state are both persisted through it, so the
// core packages can be tested against MemStore without touching disk.
type Store interface {
	// Get returns the values for the requested keys. Missing keys are
	// absent from the result rather than mapped to "".
	Get(keys ...string) (map[string]string, error)

	// Set writes all given key/value pairs.
	Set(values map[string]string) error

	// Delete removes the given keys. Deleting a missing key is not an error.
	Delete(keys ...string) error

	Close() error
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := s.values[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (s *MemStore) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range values {
		s.values[key] = value
	}
	return nil
}

func (s *MemStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

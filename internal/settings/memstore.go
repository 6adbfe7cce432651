package settings

import (
	"context"
	"strings"
	"sync"
)

// MemStore is a thread-safe, in-memory implementation of Store. It backs
// tests and ephemeral deployments; persistent deployments use the sqlite
// store module.
type MemStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[int]chan<- Event
	nextID   int
}

// NewMemStore creates a new empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		values:   make(map[string][]byte),
		watchers: make(map[int]chan<- Event),
	}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// Get returns a copy of the value for key.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of value under key.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.values[key] = stored
	s.notifyLocked(Event{Op: OpSet, Key: key, Value: stored})
	s.mu.Unlock()
	return nil
}

// Remove deletes key.
func (s *MemStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return ErrKeyNotFound
	}
	delete(s.values, key)
	s.notifyLocked(Event{Op: OpRemove, Key: key})
	return nil
}

// Keys returns all keys with the given prefix.
func (s *MemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Watch registers ch for mutation events.
func (s *MemStore) Watch(ch chan<- Event) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// notifyLocked fans an event out to all watchers. Callers hold s.mu.
func (s *MemStore) notifyLocked(ev Event) {
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			// Receiver is behind; drop rather than block the writer.
		}
	}
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Package cache is the normalized, id-keyed in-memory store backing list and
// detail views. Screens read through it; they never hold copies that can drift.
package cache

import "sync"

// Store holds entities of one kind keyed by id. Writes funnel through
// UpsertMany/Patch/Remove; reads return copies.
type Store[T any] struct {
	mu   sync.RWMutex
	byID map[string]T
	key  func(T) string
}

// New constructs a Store using key to extract entity ids.
func New[T any](key func(T) string) *Store[T] {
	return &Store[T]{byID: make(map[string]T), key: key}
}

// UpsertMany replaces stored entities by id. Entities absent from the batch
// are kept: a partial feed page does not evict older pages. A full upsert
// wins over any earlier Patch on the same id.
func (s *Store[T]) UpsertMany(entities []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		s.byID[s.key(e)] = e
	}
}

// Get returns the entity for id, reporting whether it exists.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// Patch applies fn to the stored entity in place. A no-op when id is absent:
// callers are expected to have fetched the entity first.
func (s *Store[T]) Patch(id string, fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return
	}
	fn(&e)
	s.byID[id] = e
}

// Remove deletes the entry; subsequent Gets report not found.
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// List returns all stored entities in unspecified order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e)
	}
	return out
}

// Len reports the number of stored entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

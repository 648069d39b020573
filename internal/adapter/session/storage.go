package session

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned when a write would push storage past its byte budget.
var ErrQuotaExceeded = errors.New("session storage quota exceeded")

// Storage is a string-keyed byte slot store scoped to one process session.
type Storage interface {
	GetItem(key string) ([]byte, bool)
	SetItem(key string, value []byte) error
	RemoveItem(key string)
}

// MemoryStorage is an in-process Storage with a total byte quota.
// Contents vanish when the process exits.
type MemoryStorage struct {
	maxBytes int
	mu       sync.Mutex
	items    map[string][]byte
	used     int
}

// NewMemoryStorage creates a storage that holds at most maxBytes of keys plus values.
func NewMemoryStorage(maxBytes int) *MemoryStorage {
	return &MemoryStorage{
		maxBytes: maxBytes,
		items:    make(map[string][]byte),
	}
}

func (s *MemoryStorage) GetItem(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// SetItem stores a copy of value. A write that would exceed the quota leaves
// the previous value in place.
func (s *MemoryStorage) SetItem(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used
	if old, ok := s.items[key]; ok {
		used -= len(key) + len(old)
	}
	used += len(key) + len(value)
	if used > s.maxBytes {
		return ErrQuotaExceeded
	}

	v := make([]byte, len(value))
	copy(v, value)
	s.items[key] = v
	s.used = used
	return nil
}

func (s *MemoryStorage) RemoveItem(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.items, key)
	}
}

// Len reports the bytes currently held.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

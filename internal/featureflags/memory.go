package featureflags

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps overrides for the lifetime of the process. It starts
// empty, so every flag reads its default until something overrides it.
type MemoryStore struct {
	mu        sync.RWMutex
	overrides map[string]Flag
}

// NewMemoryStore returns a store holding the given overrides.
func NewMemoryStore(overrides ...*Flag) *MemoryStore {
	s := &MemoryStore{overrides: make(map[string]Flag, len(overrides))}
	s.put(overrides, time.Now())
	return s
}

// GetFlag returns a copy of the override for key.
func (s *MemoryStore) GetFlag(_ context.Context, key string) (*Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.overrides[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return &f, nil
}

// GetAllFlags returns copies of every override.
func (s *MemoryStore) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*Flag, len(s.overrides))
	for k, f := range s.overrides {
		f := f
		out[k] = &f
	}
	return out, nil
}

// SetFlags stores overrides under one lock.
func (s *MemoryStore) SetFlags(_ context.Context, flags []*Flag) error {
	s.put(flags, time.Now())
	return nil
}

func (s *MemoryStore) put(flags []*Flag, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range flags {
		if f == nil || f.Key == "" {
			continue
		}
		s.overrides[f.Key] = Flag{Key: f.Key, Value: f.Value, UpdatedAt: now}
	}
}

var _ Repository = (*MemoryStore)(nil)

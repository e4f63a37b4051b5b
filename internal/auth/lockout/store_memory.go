package lockout

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	failures    int
	windowEnd   time.Time
	lockedUntil time.Time
}

// InMemoryStore serves a single instance. Expired entries are dropped lazily.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock pins the store clock for tests.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{entries: make(map[string]*entry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) RecordFailure(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	if !now.Before(e.windowEnd) {
		e.failures = 0
		e.windowEnd = now.Add(window)
	}
	e.failures++
	return e.failures, nil
}

func (s *InMemoryStore) Lock(_ context.Context, key string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	e.lockedUntil = s.now().Add(d)
	return nil
}

func (s *InMemoryStore) LockedFor(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if e == nil {
		return 0, nil
	}
	now := s.now()
	remaining := e.lockedUntil.Sub(now)
	if remaining <= 0 && !now.Before(e.windowEnd) {
		delete(s.entries, key)
	}
	return max(remaining, 0), nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

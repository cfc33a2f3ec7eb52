package kv

import (
	"context"
	"path"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's clock. For tests only.
func (s *MemoryStore) SetClock(nowF func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowF = nowF
}

// Set writes value under key with the given ttl.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.nowF().Add(ttl)
	}
	s.m[key] = e
	return nil
}

// Get returns the value for key, or ErrNotFound when missing or expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	now := s.nowF()
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(now) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return e.value, nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Keys returns all unexpired keys matching the glob pattern.
func (s *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.nowF()
	var out []string
	for k, e := range s.m {
		if e.expired(now) {
			continue
		}
		if ok, err := path.Match(pattern, k); err == nil && ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// Exists reports whether key is present and unexpired.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

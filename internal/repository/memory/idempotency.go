package memory

import (
	"context"
	"sync"
	"time"
)

type idemEntry struct {
	value     []byte
	expiresAt time.Time
}

// IdempotencyStore is a process-local repository.IdempotencyStore used when
// no Redis is configured.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idemEntry
	now     func() time.Time

	nextSweep time.Time
}

// sweepInterval bounds how often writes scan for expired entries.
const sweepInterval = time.Minute

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: make(map[string]idemEntry), now: time.Now}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = idemEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.entries[key] = idemEntry{value: append([]byte(nil), value...), expiresAt: now.Add(ttl)}
	return nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, nil
	}
	return e.value, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// sweepLocked drops expired entries, at most once per sweepInterval.
func (s *IdempotencyStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.nextSweep = now.Add(sweepInterval)
}

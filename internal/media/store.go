package media

import (
	"context"
	"sync"
	"time"

	"eco/pkg/types"
)

// Store keeps signed URLs until their ttl passes. Implementations treat backend failures
// as misses.
type Store interface {
	Get(ctx context.Context, key string) ([]types.SignedURL, bool)
	Set(ctx context.Context, key string, urls []types.SignedURL, ttl time.Duration)
}

const DefaultMaxEntries = 2048

type memoryEntry struct {
	urls      []types.SignedURL
	expiresAt time.Time
	storedAt  time.Time
}

// MemoryStore is a bounded in-process Store. When full it drops expired entries first and
// then the oldest ones.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]types.SignedURL, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}

	out := make([]types.SignedURL, len(entry.urls))
	copy(out, entry.urls)
	return out, true
}

func (s *MemoryStore) Set(_ context.Context, key string, urls []types.SignedURL, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evict(now)
	}

	stored := make([]types.SignedURL, len(urls))
	copy(stored, urls)
	s.entries[key] = memoryEntry{urls: stored, expiresAt: now.Add(ttl), storedAt: now}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) evict(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}

	for len(s.entries) >= s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.entries {
			if oldestKey == "" || e.storedAt.Before(oldest) {
				oldestKey, oldest = k, e.storedAt
			}
		}
		delete(s.entries, oldestKey)
	}
}

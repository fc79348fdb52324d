package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultLocalSize 是本地缓存的默认容量。
const DefaultLocalSize = 1024

// MemoryStore is an in-process Store used when no Redis host is configured.
// Entries are evicted by size (LRU) and by a single TTL fixed at creation;
// a per-call ttl longer than that is capped.
type MemoryStore struct {
	entries *expirable.LRU[string, entry]

	mu  sync.Mutex
	now func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a local cache holding at most size entries for at
// most ttl each.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultLocalSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: expirable.NewLRU[string, entry](size, nil, ttl),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := s.entries.Get(key)
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !s.clock().Before(e.expiresAt) {
		s.entries.Remove(key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) SetWithExpiry(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.entries.Add(key, e)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Name() string { return "memory" }

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

func (s *MemoryStore) Close() error {
	s.entries.Purge()
	return nil
}

func (s *MemoryStore) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *MemoryStore) setClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

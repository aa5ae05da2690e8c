package cache

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store with TTL expiry and cursor scans over
// the sorted keyspace. Err, when set, fails every call.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// SetClock replaces the time source used for expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	entry, ok := s.live(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, key := range keys {
		if _, ok := s.live(key); ok {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

// Scan walks the sorted keyspace count keys at a time. The cursor is the
// offset of the next key; 0 signals completion.
func (s *MemoryStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := s.sortedKeys()
	if count <= 0 {
		count = 10
	}
	end := cursor + uint64(count)
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}

	var keys []string
	for _, key := range all[min(cursor, end):end] {
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	if end == uint64(len(all)) {
		return keys, 0, nil
	}
	return keys, end, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

func (s *MemoryStore) Info(ctx context.Context, sections ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return "# Server\r\nredis_version:memory\r\nredis_mode:standalone\r\n", nil
}

func (s *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	keys := []string{}
	for _, key := range s.sortedKeys() {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MemoryStore) sortedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if _, ok := s.live(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

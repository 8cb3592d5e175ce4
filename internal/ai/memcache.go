package ai

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local ResponseCache for callers without a database.
type MemoryCache struct {
	entries sync.Map // map[string]memoryEntry
}

type memoryEntry struct {
	at      time.Time
	content string
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// GetResponse returns content stored less than maxAge ago. Older entries are evicted.
func (m *MemoryCache) GetResponse(_ context.Context, key string, maxAge time.Duration) (string, bool, error) {
	entry, ok := m.entries.Load(key)
	if !ok {
		return "", false, nil
	}
	cached := entry.(memoryEntry)
	if maxAge > 0 && time.Since(cached.at) >= maxAge {
		m.entries.Delete(key)
		return "", false, nil
	}
	return cached.content, true, nil
}

// PutResponse stores content under key.
func (m *MemoryCache) PutResponse(_ context.Context, key, content string) error {
	m.entries.Store(key, memoryEntry{at: time.Now(), content: content})
	return nil
}

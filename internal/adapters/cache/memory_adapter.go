package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryAdapter is a bounded in-process CacheProvider used when Redis is not
// configured (CLI runs, local development).
type MemoryAdapter struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryAdapter creates an LRU cache holding at most size entries
func NewMemoryAdapter(size int) (providers.CacheProvider, error) {
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryAdapter{entries: entries, now: time.Now}, nil
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := a.entries.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if entry.expired(a.now()) {
		a.entries.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value; expirationSeconds <= 0 keeps it until evicted
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.entries.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.entries.Remove(key)
	return nil
}

// Exists checks if a live key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	return err == nil, nil
}

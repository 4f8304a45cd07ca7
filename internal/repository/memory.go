package repository

import (
	"context"
	"sync"
	"time"

	"rentbook/internal/models"
)

type MemoryCacheRepository struct {
	items      sync.Map
	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type cachedItem struct {
	item      models.Item
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCacheRepository(ttl time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryCacheRepository) GetItem(_ context.Context, id string) (*models.Item, error) {
	val, ok := r.items.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(cachedItem)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.items.Delete(id)
		return nil, nil
	}
	item := entry.item
	return &item, nil
}

func (r *MemoryCacheRepository) SetItem(_ context.Context, item *models.Item) error {
	r.items.Store(item.ID, cachedItem{item: *item, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemoryCacheRepository) InvalidateItem(_ context.Context, id string) error {
	r.items.Delete(id)
	return nil
}

func (r *MemoryCacheRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

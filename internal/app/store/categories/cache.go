// internal/app/store/categories/cache.go
package categories

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratahabit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCacheTTL is how long a user's category list stays fresh. The
// list changes rarely and is read on every dashboard load.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	cats      []models.Category
	expiresAt time.Time
}

// Cache is a per-user read-through cache over the category store. Any
// write for a user invalidates that user's entry; other users are
// untouched.
type Cache struct {
	store *Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[primitive.ObjectID]cacheEntry
}

// NewCache creates a cache over the given store. A non-positive ttl
// falls back to DefaultCacheTTL.
func NewCache(store *Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store:   store,
		ttl:     ttl,
		entries: make(map[primitive.ObjectID]cacheEntry),
	}
}

// ListByUser returns the user's categories, from cache when fresh.
func (c *Cache) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		return e.cats, nil
	}

	cats, err := c.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[userID] = cacheEntry{cats: cats, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return cats, nil
}

// Invalidate drops the cached list for one user.
func (c *Cache) Invalidate(userID primitive.ObjectID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

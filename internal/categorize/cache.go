package categorize

import (
	"strings"
	"sync"
	"time"

	"dropsync/internal/models"
)

const aiTitlePrefixLen = 64

// categoryCache holds per-supplier category lists between lookups.
// Categories rarely change mid-cycle, so entries live for a TTL and are
// invalidated explicitly when an admin edits them.
type categoryCache struct {
	mu    sync.RWMutex
	items map[string]categoryEntry
	ttl   time.Duration
}

type categoryEntry struct {
	categories []models.Category
	expiresAt  time.Time
}

func newCategoryCache(ttl time.Duration) *categoryCache {
	return &categoryCache{
		items: make(map[string]categoryEntry),
		ttl:   ttl,
	}
}

func (c *categoryCache) get(supplierID string) ([]models.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.items[supplierID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.categories, true
}

func (c *categoryCache) put(supplierID string, categories []models.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[supplierID] = categoryEntry{
		categories: categories,
		expiresAt:  time.Now().Add(c.ttl),
	}
}

func (c *categoryCache) invalidate(supplierID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, supplierID)
}

// aiCache remembers fallback answers, including rejections, so the same
// title never pays for a second model call. Keys are the supplier plus
// a lowercased title prefix; near-identical titles share an answer.
type aiCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func newAICache() *aiCache {
	return &aiCache{items: make(map[string]string)}
}

func aiCacheKey(supplierID string, title string) string {
	prefix := strings.ToLower(strings.TrimSpace(title))
	if len(prefix) > aiTitlePrefixLen {
		prefix = prefix[:aiTitlePrefixLen]
	}
	return supplierID + ":" + prefix
}

func (c *aiCache) get(supplierID string, title string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name, ok := c.items[aiCacheKey(supplierID, title)]
	return name, ok
}

func (c *aiCache) put(supplierID string, title, categoryName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[aiCacheKey(supplierID, title)] = categoryName
}

func (c *aiCache) invalidate(supplierID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := supplierID + ":"
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

package pipeline

import (
	"container/list"
	"sync"
	"time"

	"docsum/internal/domain"
)

type summaryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type summaryCacheEntry struct {
	key       string
	summary   domain.Summary
	expiresAt time.Time
}

// newSummaryCache returns nil when caching is disabled; a nil cache misses
// every lookup.
func newSummaryCache(maxEntries int) *summaryCache {
	if maxEntries <= 0 {
		return nil
	}

	return &summaryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *summaryCache) get(key string, now time.Time) (domain.Summary, bool) {
	if c == nil || key == "" {
		return domain.Summary{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return domain.Summary{}, false
	}

	entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.

	if now.After(entry.expiresAt) {
		c.removeElement(elem)

		return domain.Summary{}, false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *summaryCache) set(
	key string,
	summary domain.Summary,
	expiresAt time.Time,
	now time.Time,
) {
	if c == nil || key == "" || summary.Text == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.
		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	elem := c.order.PushFront(&summaryCacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})
	c.entries[key] = elem

	c.evictExpiredLocked(now)
	c.enforceSizeLimitLocked()
}

func (c *summaryCache) len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *summaryCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()

		if entry := elem.Value.(*summaryCacheEntry); now.After(entry.expiresAt) { //nolint:forcetypeassert // Only entries are stored.
			c.removeElement(elem)
		}

		elem = prev
	}
}

func (c *summaryCache) enforceSizeLimitLocked() {
	for len(c.entries) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *summaryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}

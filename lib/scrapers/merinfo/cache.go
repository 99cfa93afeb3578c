package merinfo

import (
	"time"
)

type pageEntry struct {
	body       []byte
	insertedAt time.Time
}

// pageCache keeps fetched page bodies for a limited time so repeated
// strategies don't hit the site twice for the same url. When full it
// drops the entry that was inserted first, regardless of reads; reads
// never promote entries. Expired entries are removed lazily on get.
//
// Not safe for concurrent use, the owning client serializes access.
type pageCache struct {
	entries map[string]pageEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func newPageCache(maxSize int, ttl time.Duration) *pageCache {
	return &pageCache{
		entries: make(map[string]pageEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *pageCache) get(key string) ([]byte, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.body, true
}

func (c *pageCache) set(key string, body []byte) {
	_, exists := c.entries[key]
	if !exists && len(c.entries) >= c.maxSize {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.insertedAt.Before(oldest) {
				oldestKey = k
				oldest = e.insertedAt
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[key] = pageEntry{body: body, insertedAt: c.now()}
}

func (c *pageCache) len() int {
	return len(c.entries)
}

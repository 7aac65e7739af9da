package sources

import "sync"

// HandleCache maps channel handles ("@name") to resolved platform channel ids.
// Entries live as long as the cache and are never invalidated. Lookups and
// inserts are not atomic together, so concurrent misses may resolve the same
// handle twice; resolution is idempotent.
type HandleCache struct {
	sync.RWMutex
	ids map[string]string
}

func NewHandleCache() *HandleCache {
	return &HandleCache{ids: make(map[string]string)}
}

func (c *HandleCache) Get(handle string) (string, bool) {
	c.RLock()
	defer c.RUnlock()
	id, ok := c.ids[handle]
	return id, ok
}

func (c *HandleCache) Put(handle, channelID string) {
	c.Lock()
	defer c.Unlock()
	c.ids[handle] = channelID
}

func (c *HandleCache) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.ids)
}

package translate

import (
	"container/list"
	"sync"
)

type cacheKey struct {
	text   string
	target string
	censor bool
}

type cacheEntry struct {
	key   cacheKey
	value string
}

// cache is a bounded LRU of translated captions. Live captions repeat a lot
// (scrolling chat, re-rendered subtitle lines), so even a small cache saves
// most of the round trips.
type cache struct {
	mu    sync.Mutex
	size  int
	order *list.List
	items map[cacheKey]*list.Element
}

func newCache(size int) *cache {
	return &cache{
		size:  size,
		order: list.New(),
		items: make(map[cacheKey]*list.Element),
	}
}

func (c *cache) get(k cacheKey) (string, bool) {
	if c.size <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[k]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *cache) put(k cacheKey, v string) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[k]; ok {
		el.Value.(*cacheEntry).value = v
		c.order.MoveToFront(el)
		return
	}
	c.items[k] = c.order.PushFront(&cacheEntry{key: k, value: v})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

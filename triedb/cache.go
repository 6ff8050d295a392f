package triedb

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/nibble"
)

// CachingStore wraps a Store with a read-through LRU cache of encoded node
// blobs, so the lazy-materialization and cursor-lookup paths don't pay the
// underlying store's Get cost on every redundant descent of a hot subtree.
type CachingStore struct {
	Store
	cache *lru.Cache
}

// NewCachingStore wraps store with an LRU cache holding up to size entries;
// a size below 16 is raised to 16.
func NewCachingStore(store Store, size int) *CachingStore {
	if size < 16 {
		size = 16
	}
	c, _ := lru.New(size)
	return &CachingStore{Store: store, cache: c}
}

func (c *CachingStore) Get(h common.Hash, prefix nibble.Stored) ([]byte, bool) {
	k := newKey(h, prefix)
	if v, ok := c.cache.Get(k); ok {
		return v.([]byte), true
	}
	blob, ok := c.Store.Get(h, prefix)
	if ok {
		c.cache.Add(k, blob)
	}
	return blob, ok
}

func (c *CachingStore) Insert(prefix nibble.Stored, blob []byte) common.Hash {
	h := c.Store.Insert(prefix, blob)
	c.cache.Add(newKey(h, prefix), blob)
	return h
}

func (c *CachingStore) Remove(h common.Hash, prefix nibble.Stored) {
	c.Store.Remove(h, prefix)
	c.cache.Remove(newKey(h, prefix))
}

// Package triedb implements the prefix-qualified backing key-value store
// the trie reads and writes nodes through: nodes are addressed by
// (hash, path_prefix), reference-counted so that a node shared under two
// prefixes, or re-inserted after a death-row entry for the same content,
// survives until every reference is gone.
package triedb

import (
	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/hash"
	"github.com/hexroot/mpt/nibble"
)

// EmptyPrefix is the path prefix used for the root node.
var EmptyPrefix = nibble.Stored{}

// Store is the backing key-value store the mpt package reads nodes from
// and writes nodes to during Commit.
type Store interface {
	// Contains reports whether a node is present under (hash, prefix).
	Contains(hash common.Hash, prefix nibble.Stored) bool
	// Get retrieves the encoded node blob stored under (hash, prefix).
	Get(hash common.Hash, prefix nibble.Stored) ([]byte, bool)
	// Insert stores blob under prefix, returning the hash the store's
	// configured Hasher computed for it. Reference-counted: inserting
	// the same (hash, prefix) content again just bumps the count.
	Insert(prefix nibble.Stored, blob []byte) common.Hash
	// Remove decrements the reference count for (hash, prefix), dropping
	// the entry once it reaches zero.
	Remove(hash common.Hash, prefix nibble.Stored)
}

// key is the store's internal map key: a node's identity is its hash AND
// the path it was filed under.
type key struct {
	hash   common.Hash
	prefix string
}

// PrefixString renders a packed-key prefix into a string suitable as a map
// key, exported so the mpt package's death row can dedupe (hash, prefix)
// pairs without importing the store's internal key type.
func PrefixString(p nibble.Stored) string {
	return string([]byte{byte(p.Offset)}) + string(p.Bytes)
}

func newKey(h common.Hash, p nibble.Stored) key {
	return key{hash: h, prefix: PrefixString(p)}
}

// MemStore is an in-memory, reference-counted Store, the role teacher's
// accdb/memorydb.MemDB played, generalized to prefix-qualified keys and
// refcounting per DESIGN.md.
type MemStore struct {
	hasher hash.Hasher
	data   map[key]*entry
}

type entry struct {
	blob []byte
	refs int
}

// NewMemStore returns an empty MemStore using h to compute content hashes.
func NewMemStore(h hash.Hasher) *MemStore {
	return &MemStore{hasher: h, data: make(map[key]*entry)}
}

func (s *MemStore) Contains(h common.Hash, prefix nibble.Stored) bool {
	e, ok := s.data[newKey(h, prefix)]
	return ok && e.refs > 0
}

func (s *MemStore) Get(h common.Hash, prefix nibble.Stored) ([]byte, bool) {
	e, ok := s.data[newKey(h, prefix)]
	if !ok || e.refs == 0 {
		return nil, false
	}
	return e.blob, true
}

func (s *MemStore) Insert(prefix nibble.Stored, blob []byte) common.Hash {
	h := s.hasher.Hash(blob)
	k := newKey(h, prefix)
	if e, ok := s.data[k]; ok {
		e.refs++
		return h
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.data[k] = &entry{blob: cp, refs: 1}
	return h
}

func (s *MemStore) Remove(h common.Hash, prefix nibble.Stored) {
	k := newKey(h, prefix)
	e, ok := s.data[k]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.data, k)
	}
}

// Len reports the number of distinct live (hash, prefix) entries, mostly
// useful for tests asserting the reachable set after a commit.
func (s *MemStore) Len() int {
	return len(s.data)
}

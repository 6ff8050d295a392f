// Package mpt implements an in-memory, mutable Merkle-Patricia trie over a
// content-addressed backing store: an arena holds staged (uncommitted)
// nodes, a death row tracks backing-store entries a mutation has
// superseded, and Commit reconciles the two against the store in one pass.
package mpt

import (
	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/hash"
	"github.com/hexroot/mpt/rlp"
	"github.com/hexroot/mpt/triedb"
)

// Trie is a single mutable trie bound to one backing store and Config.
type Trie struct {
	root     handle
	rootHash common.Hash
	store    triedb.Store
	layout   Layout
	hasher   hash.Hasher
	arena    *Storage
	deathRow *deathRow
}

func newTrie(store triedb.Store, cfg Config) *Trie {
	h := cfg.Hasher
	if h == nil {
		h = hash.Keccak256Hasher{}
	}
	return &Trie{
		store:    store,
		layout:   cfg.Layout,
		hasher:   h,
		arena:    newStorage(),
		deathRow: newDeathRow(),
	}
}

// New creates a fresh, empty trie, eagerly writing the canonical null-root
// encoding to store under triedb.EmptyPrefix and returning its hash.
func New(store triedb.Store, cfg Config) (*Trie, common.Hash, error) {
	t := newTrie(store, cfg)
	h := store.Insert(triedb.EmptyPrefix, rlp.EmptyNode())
	t.root = hashHandle(h)
	t.rootHash = h
	return t, h, nil
}

// FromExisting opens a trie rooted at an existing, already-committed hash.
// It fails with InvalidStateRootError if the backing store does not
// contain a node under (root, triedb.EmptyPrefix).
func FromExisting(store triedb.Store, cfg Config, root common.Hash) (*Trie, error) {
	if !store.Contains(root, triedb.EmptyPrefix) {
		return nil, &InvalidStateRootError{Hash: root}
	}
	t := newTrie(store, cfg)
	t.root = hashHandle(root)
	t.rootHash = root
	return t, nil
}

// IsEmpty reports whether the trie currently holds no key/value pairs,
// including staged (uncommitted) state.
func (t *Trie) IsEmpty() bool {
	switch t.root.kind {
	case handleNone:
		return true
	case handleHash:
		return t.root.hash == rlp.HashedNullNode(t.hasher)
	default:
		return false
	}
}

// Layout reports which node layout this trie was configured with.
func (t *Trie) Layout() Layout { return t.layout }

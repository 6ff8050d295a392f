package mpt

import (
	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/nibble"
	"github.com/hexroot/mpt/rlp"
	"github.com/hexroot/mpt/triedb"
)

// Commit drains the death row against the backing store, encodes every
// dirty (New) node bottom-up, and writes the results back. It returns the
// resulting root hash. Calling Commit twice with no intervening mutation is
// a no-op: the root handle is already a Hash, so the second call only
// re-drains an empty death row.
func (t *Trie) Commit() (common.Hash, error) {
	for _, e := range t.deathRow.drain() {
		t.store.Remove(e.hash, e.prefix)
	}

	if t.root.kind == handleHash {
		t.rootHash = t.root.hash
		return t.rootHash, nil
	}
	if t.root.kind == handleNone {
		h := t.store.Insert(triedb.EmptyPrefix, rlp.EmptyNode())
		t.root = hashHandle(h)
		t.rootHash = h
		return h, nil
	}

	n, wasCached, cachedHash, err := t.take(t.root, triedb.EmptyPrefix)
	if err != nil {
		return common.Hash{}, err
	}
	if wasCached {
		t.root = hashHandle(cachedHash)
		t.rootHash = cachedHash
		return cachedHash, nil
	}

	encoded, err := t.encodeNode(n, triedb.EmptyPrefix)
	if err != nil {
		return common.Hash{}, err
	}
	h := t.store.Insert(triedb.EmptyPrefix, encoded)
	t.root = hashHandle(h)
	t.rootHash = h
	return h, nil
}

// Root commits any staged mutations and returns the trie's current root
// hash.
func (t *Trie) Root() (common.Hash, error) {
	return t.Commit()
}

// Hash computes the trie's current root hash without writing anything to
// the backing store or draining the death row, a read-only peek at what
// Commit would return. Because it never destroys arena slots, staged
// mutations remain exactly as mutable after a Hash call as before it.
func (t *Trie) Hash() (common.Hash, error) {
	switch t.root.kind {
	case handleHash:
		return t.root.hash, nil
	case handleNone:
		return rlp.HashedNullNode(t.hasher), nil
	}
	enc, err := t.peekEncode(t.root, triedb.EmptyPrefix)
	if err != nil {
		return common.Hash{}, err
	}
	return t.hasher.Hash(enc), nil
}

func (t *Trie) encodeNode(n node, prefix nibble.Stored) ([]byte, error) {
	switch nd := n.(type) {
	case *leafNode:
		return rlp.LeafNode(nd.partial, nd.value), nil
	case *extensionNode:
		childBytes, err := t.encodeChild(nd.child, nibble.Combine(prefix, nd.partial))
		if err != nil {
			return nil, err
		}
		return rlp.ExtNode(nd.partial, childBytes), nil
	case *branchNode:
		var children [16][]byte
		for i, ch := range nd.children {
			if ch.kind == handleNone {
				continue
			}
			cb, err := t.encodeChild(ch, nibble.WithPrefixNibble(prefix, byte(i)))
			if err != nil {
				return nil, err
			}
			children[i] = cb
		}
		return rlp.BranchNode(children, nd.value, nd.hasValue), nil
	case *nibbledBranchNode:
		var children [16][]byte
		base := nibble.Combine(prefix, nd.partial)
		for i, ch := range nd.children {
			if ch.kind == handleNone {
				continue
			}
			cb, err := t.encodeChild(ch, nibble.WithPrefixNibble(base, byte(i)))
			if err != nil {
				return nil, err
			}
			children[i] = cb
		}
		return rlp.BranchNodeNibbled(nd.partial, children, nd.value, nd.hasValue), nil
	}
	panic("mpt: unreachable node kind")
}

// encodeChild produces the RLP child-reference item for a present child
// handle: an already-hashed reference is re-emitted as a hash string
// without touching the store; a dirty subtree is encoded and, per the
// inline-vs-hashed rule, either embedded directly (when shorter than the
// hasher's output) or written to the store and referenced by hash.
func (t *Trie) encodeChild(h handle, prefix nibble.Stored) ([]byte, error) {
	if h.kind == handleHash {
		return rlp.EncodeBytes(h.hash.Bytes()), nil
	}
	n, wasCached, cachedHash, err := t.take(h, prefix)
	if err != nil {
		return nil, err
	}
	if wasCached {
		return rlp.EncodeBytes(cachedHash.Bytes()), nil
	}
	childBytes, err := t.encodeNode(n, prefix)
	if err != nil {
		return nil, err
	}
	if len(childBytes) < t.hasher.Length() {
		return childBytes, nil
	}
	ch := t.store.Insert(prefix, childBytes)
	return rlp.EncodeBytes(ch.Bytes()), nil
}

// peekEncode mirrors encodeNode/encodeChild without ever calling
// Storage.Destroy or Store.Insert, for Hash's read-only traversal.
func (t *Trie) peekEncode(h handle, prefix nibble.Stored) ([]byte, error) {
	switch h.kind {
	case handleHash:
		return rlp.EncodeBytes(h.hash.Bytes()), nil
	case handleNone:
		return rlp.EmptyNode(), nil
	}
	switch nd := t.arena.Get(h).(type) {
	case *leafNode:
		return rlp.LeafNode(nd.partial, nd.value), nil
	case *extensionNode:
		childBytes, err := t.peekEncodeChild(nd.child, nibble.Combine(prefix, nd.partial))
		if err != nil {
			return nil, err
		}
		return rlp.ExtNode(nd.partial, childBytes), nil
	case *branchNode:
		var children [16][]byte
		for i, ch := range nd.children {
			if ch.kind == handleNone {
				continue
			}
			cb, err := t.peekEncodeChild(ch, nibble.WithPrefixNibble(prefix, byte(i)))
			if err != nil {
				return nil, err
			}
			children[i] = cb
		}
		return rlp.BranchNode(children, nd.value, nd.hasValue), nil
	case *nibbledBranchNode:
		var children [16][]byte
		base := nibble.Combine(prefix, nd.partial)
		for i, ch := range nd.children {
			if ch.kind == handleNone {
				continue
			}
			cb, err := t.peekEncodeChild(ch, nibble.WithPrefixNibble(base, byte(i)))
			if err != nil {
				return nil, err
			}
			children[i] = cb
		}
		return rlp.BranchNodeNibbled(nd.partial, children, nd.value, nd.hasValue), nil
	}
	panic("mpt: unreachable node kind")
}

func (t *Trie) peekEncodeChild(h handle, prefix nibble.Stored) ([]byte, error) {
	if h.kind == handleHash {
		return rlp.EncodeBytes(h.hash.Bytes()), nil
	}
	childBytes, err := t.peekEncode(h, prefix)
	if err != nil {
		return nil, err
	}
	if len(childBytes) < t.hasher.Length() {
		return childBytes, nil
	}
	return rlp.EncodeBytes(t.hasher.Hash(childBytes).Bytes()), nil
}

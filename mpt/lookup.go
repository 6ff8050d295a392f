package mpt

import (
	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/nibble"
	"github.com/hexroot/mpt/rlp"
	"github.com/hexroot/mpt/triedb"
)

// Get returns the value stored under key, or nil if key is absent. Hash
// handles encountered mid-descent are read straight through the backing
// store (the cursor path below) rather than materialized into the arena:
// a plain lookup should not force every node it touches to live as staged,
// uncommitted arena state.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.get(t.root, nibble.NewSlice(key), triedb.EmptyPrefix)
}

// Contains reports whether key is present.
func (t *Trie) Contains(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

func (t *Trie) get(h handle, key nibble.Slice, prefix nibble.Stored) ([]byte, error) {
	switch h.kind {
	case handleNone:
		return nil, nil
	case handleHash:
		return t.cursorGet(h.hash, key, prefix)
	}
	switch nd := t.arena.Get(h).(type) {
	case *leafNode:
		ek := nibble.FromStored(nd.partial)
		if key.Equal(ek) {
			return nd.value, nil
		}
		return nil, nil
	case *extensionNode:
		ep := nibble.FromStored(nd.partial)
		if !key.StartsWith(ep) {
			return nil, nil
		}
		return t.get(nd.child, key.Mid(ep.Len()), nibble.Combine(prefix, nd.partial))
	case *branchNode:
		if key.IsEmpty() {
			if nd.hasValue {
				return nd.value, nil
			}
			return nil, nil
		}
		idx := key.At(0)
		return t.get(nd.children[idx], key.Mid(1), nibble.WithPrefixNibble(prefix, idx))
	case *nibbledBranchNode:
		np := nibble.FromStored(nd.partial)
		if !key.StartsWith(np) {
			return nil, nil
		}
		rem := key.Mid(np.Len())
		newPrefix := nibble.Combine(prefix, nd.partial)
		if rem.IsEmpty() {
			if nd.hasValue {
				return nd.value, nil
			}
			return nil, nil
		}
		idx := rem.At(0)
		return t.get(nd.children[idx], rem.Mid(1), nibble.WithPrefixNibble(newPrefix, idx))
	}
	return nil, nil
}

// cursorGet walks hash-addressed nodes straight from the backing store
// without touching the arena, for the part of a lookup that falls below
// the staged (uncommitted) frontier.
func (t *Trie) cursorGet(h common.Hash, key nibble.Slice, prefix nibble.Stored) ([]byte, error) {
	blob, ok := t.store.Get(h, prefix)
	if !ok {
		return nil, &IncompleteDatabaseError{Hash: h}
	}
	enc, err := rlp.Decode(blob)
	if err != nil {
		return nil, &DecodeError{Hash: h, Err: err}
	}
	return t.cursorDescend(enc, key, prefix)
}

func (t *Trie) cursorDescend(enc rlp.EncodedNode, key nibble.Slice, prefix nibble.Stored) ([]byte, error) {
	switch enc.Kind {
	case rlp.KindEmpty:
		return nil, nil
	case rlp.KindLeaf:
		ek := nibble.FromStored(enc.Partial)
		if key.Equal(ek) {
			return enc.Value, nil
		}
		return nil, nil
	case rlp.KindExtension:
		ep := nibble.FromStored(enc.Partial)
		if !key.StartsWith(ep) {
			return nil, nil
		}
		return t.cursorChild(enc.Child, key.Mid(ep.Len()), nibble.Combine(prefix, enc.Partial))
	case rlp.KindBranch:
		if key.IsEmpty() {
			if enc.HasValue {
				return enc.Value, nil
			}
			return nil, nil
		}
		idx := key.At(0)
		return t.cursorChild(enc.Children[idx], key.Mid(1), nibble.WithPrefixNibble(prefix, idx))
	case rlp.KindNibbledBranch:
		np := nibble.FromStored(enc.Partial)
		if !key.StartsWith(np) {
			return nil, nil
		}
		rem := key.Mid(np.Len())
		newPrefix := nibble.Combine(prefix, enc.Partial)
		if rem.IsEmpty() {
			if enc.HasValue {
				return enc.Value, nil
			}
			return nil, nil
		}
		idx := rem.At(0)
		return t.cursorChild(enc.Children[idx], rem.Mid(1), nibble.WithPrefixNibble(newPrefix, idx))
	}
	return nil, nil
}

func (t *Trie) cursorChild(raw []byte, key nibble.Slice, prefix nibble.Stored) ([]byte, error) {
	if raw == nil {
		return nil, nil
	}
	if h, ok := rlp.TryDecodeHash(raw, t.hasher.Length()); ok {
		return t.cursorGet(h, key, prefix)
	}
	enc, err := rlp.Decode(raw)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return t.cursorDescend(enc, key, prefix)
}

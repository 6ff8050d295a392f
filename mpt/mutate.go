package mpt

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/nibble"
	"github.com/hexroot/mpt/rlp"
	"github.com/hexroot/mpt/triedb"
)

// take resolves h to its in-memory node, reporting whether it was Cached
// (and under which hash) so the caller can decide whether a structural
// rewrite owes the backing store a death-row entry. It consumes h: a
// handleNode is destroyed on the way out, a handleHash is left untouched
// (resolve never allocates on failure), and handleNone yields a nil node.
// A handleHash naming the canonical null node also yields a nil node; its
// store entry goes on the death row, as the caller replaces that Empty root.
func (t *Trie) take(h handle, prefix nibble.Stored) (n node, wasCached bool, cachedHash common.Hash, err error) {
	switch h.kind {
	case handleNone:
		return nil, false, common.Hash{}, nil
	case handleHash:
		if h.hash == rlp.HashedNullNode(t.hasher) {
			t.deathRow.add(h.hash, prefix)
			return nil, false, common.Hash{}, nil
		}
		resolved, err := t.resolve(h, prefix)
		if err != nil {
			return nil, false, common.Hash{}, err
		}
		sl := t.arena.Destroy(resolved)
		return sl.node, sl.kind == slotCached, sl.hash, nil
	default: // handleNode
		sl := t.arena.Destroy(h)
		return sl.node, sl.kind == slotCached, sl.hash, nil
	}
}

// restore re-allocates a node unchanged, preserving its Cached/New status,
// for the "nothing actually changed" return path.
func (t *Trie) restore(n node, wasCached bool, cachedHash common.Hash) handle {
	if wasCached {
		return t.arena.AllocCached(n, cachedHash)
	}
	return t.arena.AllocNew(n)
}

// replace re-allocates a structurally new node, marking the node it
// supersedes for backing-store removal if that node was Cached.
func (t *Trie) replace(n node, wasCached bool, cachedHash common.Hash, prefix nibble.Stored) handle {
	if wasCached {
		t.deathRow.add(cachedHash, prefix)
	}
	return t.arena.AllocNew(n)
}

// Insert sets key to value, returning the previous value (nil if absent).
// Inserting a nil or empty value is equivalent to Remove.
func (t *Trie) Insert(key, value []byte) ([]byte, error) {
	if len(value) == 0 {
		return t.Remove(key)
	}
	newRoot, old, _, err := t.insertAt(t.root, triedb.EmptyPrefix, nibble.NewSlice(key), value)
	if err != nil {
		return nil, err
	}
	t.root = newRoot
	return old, nil
}

func (t *Trie) insertAt(h handle, prefix nibble.Stored, key nibble.Slice, value []byte) (handle, []byte, bool, error) {
	n, wasCached, cachedHash, err := t.take(h, prefix)
	if err != nil {
		return h, nil, false, err
	}
	if n == nil {
		leaf := &leafNode{partial: key.ToStored(), value: value}
		return t.arena.AllocNew(leaf), nil, true, nil
	}
	switch nd := n.(type) {
	case *leafNode:
		return t.insertLeaf(nd, wasCached, cachedHash, prefix, key, value)
	case *extensionNode:
		return t.insertExtension(nd, wasCached, cachedHash, prefix, key, value)
	case *branchNode:
		return t.insertBranch(nd, wasCached, cachedHash, prefix, key, value)
	case *nibbledBranchNode:
		return t.insertNibbledBranch(nd, wasCached, cachedHash, prefix, key, value)
	}
	panic("mpt: unreachable node kind")
}

func (t *Trie) insertLeaf(nd *leafNode, wasCached bool, cachedHash common.Hash, prefix nibble.Stored, key nibble.Slice, value []byte) (handle, []byte, bool, error) {
	ek := nibble.FromStored(nd.partial)
	cp := key.CommonPrefix(ek)

	if cp == ek.Len() && cp == key.Len() {
		old := nd.value
		if bytes.Equal(old, value) {
			return t.restore(nd, wasCached, cachedHash), old, false, nil
		}
		newLeaf := &leafNode{partial: nd.partial, value: value}
		return t.replace(newLeaf, wasCached, cachedHash, prefix), old, true, nil
	}

	var children [16]handle
	if cp < ek.Len() {
		oldIdx := ek.At(cp)
		remLeaf := &leafNode{partial: ek.Mid(cp + 1).ToStored(), value: nd.value}
		children[oldIdx] = t.arena.AllocNew(remLeaf)
	}
	var topValue []byte
	var topHasValue bool
	if cp < key.Len() {
		newIdx := key.At(cp)
		newLeaf := &leafNode{partial: key.Mid(cp + 1).ToStored(), value: value}
		children[newIdx] = t.arena.AllocNew(newLeaf)
	} else {
		topValue, topHasValue = value, true
	}
	if cp == ek.Len() {
		topValue, topHasValue = nd.value, true
	}

	newHandle := t.buildBranchAt(prefix, key.Left(cp).ToStored(), children, topValue, topHasValue)
	if wasCached {
		t.deathRow.add(cachedHash, prefix)
	}
	return newHandle, nil, true, nil
}

// buildBranchAt wraps a freshly split branch per the trie's layout: a plain
// Branch (optionally under an Extension, if shared nibbles remain) for the
// extension layout, or a NibbledBranch for the extension-free layout.
func (t *Trie) buildBranchAt(prefix, sharedPartial nibble.Stored, children [16]handle, value []byte, hasValue bool) handle {
	if t.layout == ExtensionFreeLayout {
		nb := &nibbledBranchNode{partial: sharedPartial, children: children, value: value, hasValue: hasValue}
		return t.arena.AllocNew(nb)
	}
	br := &branchNode{children: children, value: value, hasValue: hasValue}
	if sharedPartial.Len() == 0 {
		return t.arena.AllocNew(br)
	}
	bh := t.arena.AllocNew(br)
	ext := &extensionNode{partial: sharedPartial, child: bh}
	return t.arena.AllocNew(ext)
}

func (t *Trie) insertExtension(nd *extensionNode, wasCached bool, cachedHash common.Hash, prefix nibble.Stored, key nibble.Slice, value []byte) (handle, []byte, bool, error) {
	ep := nibble.FromStored(nd.partial)
	cp := key.CommonPrefix(ep)

	switch {
	case cp == ep.Len():
		childPrefix := nibble.Combine(prefix, nd.partial)
		newChild, oldVal, changed, err := t.insertAt(nd.child, childPrefix, key.Mid(cp), value)
		if err != nil {
			return t.restore(&extensionNode{partial: nd.partial, child: newChild}, wasCached, cachedHash), nil, false, err
		}
		if !changed {
			return t.restore(&extensionNode{partial: nd.partial, child: newChild}, wasCached, cachedHash), oldVal, false, nil
		}
		newExt := &extensionNode{partial: nd.partial, child: newChild}
		return t.replace(newExt, wasCached, cachedHash, prefix), oldVal, true, nil

	case cp == 0:
		idx := ep.At(0)
		var childHandle handle
		if ep.Len() == 1 {
			childHandle = nd.child
		} else {
			inner := &extensionNode{partial: ep.Mid(1).ToStored(), child: nd.child}
			childHandle = t.arena.AllocNew(inner)
		}
		var children [16]handle
		children[idx] = childHandle
		br := &branchNode{children: children}
		bh := t.arena.AllocNew(br)
		resultHandle, oldVal, _, err := t.insertAt(bh, prefix, key, value)
		if wasCached {
			t.deathRow.add(cachedHash, prefix)
		}
		return resultHandle, oldVal, true, err

	default: // 0 < cp < ep.Len()
		inner := &extensionNode{partial: ep.Mid(cp).ToStored(), child: nd.child}
		innerHandle := t.arena.AllocNew(inner)
		innerPrefix := nibble.Combine(prefix, ep.Left(cp).ToStored())
		resultHandle, _, _, err := t.insertAt(innerHandle, innerPrefix, key.Mid(cp), value)
		outer := &extensionNode{partial: ep.Left(cp).ToStored(), child: resultHandle}
		outerHandle := t.arena.AllocNew(outer)
		if wasCached {
			t.deathRow.add(cachedHash, prefix)
		}
		return outerHandle, nil, true, err
	}
}

func (t *Trie) insertBranch(nd *branchNode, wasCached bool, cachedHash common.Hash, prefix nibble.Stored, key nibble.Slice, value []byte) (handle, []byte, bool, error) {
	if key.IsEmpty() {
		old := nd.value
		if nd.hasValue && bytes.Equal(old, value) {
			return t.restore(nd, wasCached, cachedHash), old, false, nil
		}
		newBr := &branchNode{children: nd.children, value: value, hasValue: true}
		var oldRet []byte
		if nd.hasValue {
			oldRet = old
		}
		return t.replace(newBr, wasCached, cachedHash, prefix), oldRet, true, nil
	}
	idx := key.At(0)
	childPrefix := nibble.WithPrefixNibble(prefix, idx)
	newChild, oldVal, changed, err := t.insertAt(nd.children[idx], childPrefix, key.Mid(1), value)
	newChildren := nd.children
	newChildren[idx] = newChild
	if err != nil || !changed {
		return t.restore(&branchNode{children: newChildren, value: nd.value, hasValue: nd.hasValue}, wasCached, cachedHash), oldVal, false, err
	}
	newBr := &branchNode{children: newChildren, value: nd.value, hasValue: nd.hasValue}
	return t.replace(newBr, wasCached, cachedHash, prefix), oldVal, true, nil
}

func (t *Trie) insertNibbledBranch(nd *nibbledBranchNode, wasCached bool, cachedHash common.Hash, prefix nibble.Stored, key nibble.Slice, value []byte) (handle, []byte, bool, error) {
	np := nibble.FromStored(nd.partial)
	cp := key.CommonPrefix(np)

	if cp == np.Len() && cp == key.Len() {
		old := nd.value
		if nd.hasValue && bytes.Equal(old, value) {
			return t.restore(nd, wasCached, cachedHash), old, false, nil
		}
		newNb := &nibbledBranchNode{partial: nd.partial, children: nd.children, value: value, hasValue: true}
		var oldRet []byte
		if nd.hasValue {
			oldRet = old
		}
		return t.replace(newNb, wasCached, cachedHash, prefix), oldRet, true, nil
	}

	if cp < np.Len() {
		oldIdx := np.At(cp)
		oldSub := &nibbledBranchNode{partial: np.Mid(cp + 1).ToStored(), children: nd.children, value: nd.value, hasValue: nd.hasValue}
		var children [16]handle
		children[oldIdx] = t.arena.AllocNew(oldSub)
		var topValue []byte
		var topHasValue bool
		if cp < key.Len() {
			newIdx := key.At(cp)
			newLeaf := &leafNode{partial: key.Mid(cp + 1).ToStored(), value: value}
			children[newIdx] = t.arena.AllocNew(newLeaf)
		} else {
			topValue, topHasValue = value, true
		}
		top := &nibbledBranchNode{partial: key.Left(cp).ToStored(), children: children, value: topValue, hasValue: topHasValue}
		newHandle := t.arena.AllocNew(top)
		if wasCached {
			t.deathRow.add(cachedHash, prefix)
		}
		return newHandle, nil, true, nil
	}

	// cp == np.Len() < key.Len(): descend
	rem := key.Mid(cp)
	idx := rem.At(0)
	childBase := nibble.Combine(prefix, nd.partial)
	childPrefix := nibble.WithPrefixNibble(childBase, idx)
	newChild, oldVal, changed, err := t.insertAt(nd.children[idx], childPrefix, rem.Mid(1), value)
	newChildren := nd.children
	newChildren[idx] = newChild
	if err != nil || !changed {
		return t.restore(&nibbledBranchNode{partial: nd.partial, children: newChildren, value: nd.value, hasValue: nd.hasValue}, wasCached, cachedHash), oldVal, false, err
	}
	newNb := &nibbledBranchNode{partial: nd.partial, children: newChildren, value: nd.value, hasValue: nd.hasValue}
	return t.replace(newNb, wasCached, cachedHash, prefix), oldVal, true, nil
}

// Remove deletes key, returning its previous value (nil if it was absent).
func (t *Trie) Remove(key []byte) ([]byte, error) {
	newRoot, old, _, err := t.removeAt(t.root, triedb.EmptyPrefix, nibble.NewSlice(key))
	if err != nil {
		if errors.Is(err, ErrBrokenInvariant) {
			slog.Error("mpt: broken trie invariant during remove", "key", key, "err", err)
		}
		return nil, err
	}
	t.root = newRoot
	return old, nil
}

func (t *Trie) removeAt(h handle, prefix nibble.Stored, key nibble.Slice) (handle, []byte, bool, error) {
	n, wasCached, cachedHash, err := t.take(h, prefix)
	if err != nil {
		return h, nil, false, err
	}
	if n == nil {
		return handle{}, nil, false, nil
	}
	switch nd := n.(type) {
	case *leafNode:
		ek := nibble.FromStored(nd.partial)
		if key.Equal(ek) {
			if wasCached {
				t.deathRow.add(cachedHash, prefix)
			}
			return handle{}, nd.value, true, nil
		}
		return t.restore(nd, wasCached, cachedHash), nil, false, nil

	case *extensionNode:
		ep := nibble.FromStored(nd.partial)
		if !key.StartsWith(ep) {
			return t.restore(nd, wasCached, cachedHash), nil, false, nil
		}
		childPrefix := nibble.Combine(prefix, nd.partial)
		newChildHandle, oldVal, removed, err := t.removeAt(nd.child, childPrefix, key.Mid(ep.Len()))
		if err != nil || !removed {
			return t.restore(&extensionNode{partial: nd.partial, child: newChildHandle}, wasCached, cachedHash), oldVal, false, err
		}
		fixed, ferr := t.fixExtension(nd.partial, newChildHandle, prefix)
		if wasCached {
			t.deathRow.add(cachedHash, prefix)
		}
		return fixed, oldVal, true, ferr

	case *branchNode:
		if key.IsEmpty() {
			if !nd.hasValue {
				return t.restore(nd, wasCached, cachedHash), nil, false, nil
			}
			newBr := &branchNode{children: nd.children}
			fixed, ferr := t.fixBranch(newBr, prefix)
			if wasCached {
				t.deathRow.add(cachedHash, prefix)
			}
			return fixed, nd.value, true, ferr
		}
		idx := key.At(0)
		if nd.children[idx].kind == handleNone {
			return t.restore(nd, wasCached, cachedHash), nil, false, nil
		}
		childPrefix := nibble.WithPrefixNibble(prefix, idx)
		newChildHandle, oldVal, removed, err := t.removeAt(nd.children[idx], childPrefix, key.Mid(1))
		newChildren := nd.children
		newChildren[idx] = newChildHandle
		if err != nil || !removed {
			return t.restore(&branchNode{children: newChildren, value: nd.value, hasValue: nd.hasValue}, wasCached, cachedHash), oldVal, false, err
		}
		newBr := &branchNode{children: newChildren, value: nd.value, hasValue: nd.hasValue}
		fixed, ferr := t.fixBranch(newBr, prefix)
		if wasCached {
			t.deathRow.add(cachedHash, prefix)
		}
		return fixed, oldVal, true, ferr

	case *nibbledBranchNode:
		np := nibble.FromStored(nd.partial)
		if !key.StartsWith(np) {
			return t.restore(nd, wasCached, cachedHash), nil, false, nil
		}
		rem := key.Mid(np.Len())
		if rem.IsEmpty() {
			if !nd.hasValue {
				return t.restore(nd, wasCached, cachedHash), nil, false, nil
			}
			newNb := &nibbledBranchNode{partial: nd.partial, children: nd.children}
			fixed, ferr := t.fixNibbledBranch(newNb, prefix)
			if wasCached {
				t.deathRow.add(cachedHash, prefix)
			}
			return fixed, nd.value, true, ferr
		}
		idx := rem.At(0)
		if nd.children[idx].kind == handleNone {
			return t.restore(nd, wasCached, cachedHash), nil, false, nil
		}
		childBase := nibble.Combine(prefix, nd.partial)
		childPrefix := nibble.WithPrefixNibble(childBase, idx)
		newChildHandle, oldVal, removed, err := t.removeAt(nd.children[idx], childPrefix, rem.Mid(1))
		newChildren := nd.children
		newChildren[idx] = newChildHandle
		if err != nil || !removed {
			return t.restore(&nibbledBranchNode{partial: nd.partial, children: newChildren, value: nd.value, hasValue: nd.hasValue}, wasCached, cachedHash), oldVal, false, err
		}
		newNb := &nibbledBranchNode{partial: nd.partial, children: newChildren, value: nd.value, hasValue: nd.hasValue}
		fixed, ferr := t.fixNibbledBranch(newNb, prefix)
		if wasCached {
			t.deathRow.add(cachedHash, prefix)
		}
		return fixed, oldVal, true, ferr
	}
	panic("mpt: unreachable node kind")
}

// fixExtension restores the extension-layout invariant that an Extension's
// child is always a Branch: if the child collapsed into an Extension or a
// Leaf, their partial keys are spliced together; if it's still a Branch,
// the Extension is kept as-is.
func (t *Trie) fixExtension(partial nibble.Stored, childHandle handle, prefix nibble.Stored) (handle, error) {
	childPrefix := nibble.Combine(prefix, partial)
	n, wasCachedC, cachedHashC, err := t.take(childHandle, childPrefix)
	if err != nil {
		return handle{}, err
	}
	switch cn := n.(type) {
	case *extensionNode:
		merged := nibble.Combine(partial, cn.partial)
		if wasCachedC {
			t.deathRow.add(cachedHashC, childPrefix)
		}
		return t.arena.AllocNew(&extensionNode{partial: merged, child: cn.child}), nil
	case *leafNode:
		merged := nibble.Combine(partial, cn.partial)
		if wasCachedC {
			t.deathRow.add(cachedHashC, childPrefix)
		}
		return t.arena.AllocNew(&leafNode{partial: merged, value: cn.value}), nil
	case *branchNode:
		restored := t.restore(cn, wasCachedC, cachedHashC)
		return t.arena.AllocNew(&extensionNode{partial: partial, child: restored}), nil
	default:
		return handle{}, ErrBrokenInvariant
	}
}

// fixBranch restores the "a Branch always has at least one child or a
// value" invariant after a removal may have emptied it out.
func (t *Trie) fixBranch(nd *branchNode, prefix nibble.Stored) (handle, error) {
	count, lastIdx := 0, -1
	for i, c := range nd.children {
		if c.kind != handleNone {
			count++
			lastIdx = i
		}
	}
	switch {
	case count == 0 && !nd.hasValue:
		return handle{}, ErrBrokenInvariant
	case count == 0 && nd.hasValue:
		return t.arena.AllocNew(&leafNode{value: nd.value}), nil
	case count == 1 && !nd.hasValue:
		idxPartial := nibble.FromNibbles([]byte{byte(lastIdx)})
		return t.fixExtension(idxPartial, nd.children[lastIdx], prefix)
	default:
		return t.arena.AllocNew(nd), nil
	}
}

// fixNibbledBranch is fixBranch's extension-free counterpart: a lone
// surviving child's own index nibble and partial key are spliced directly
// into this node's prefix, producing a Leaf or a (possibly longer)
// NibbledBranch; there is no separate Extension variant to build instead.
func (t *Trie) fixNibbledBranch(nd *nibbledBranchNode, prefix nibble.Stored) (handle, error) {
	count, lastIdx := 0, -1
	for i, c := range nd.children {
		if c.kind != handleNone {
			count++
			lastIdx = i
		}
	}
	switch {
	case count == 0 && !nd.hasValue:
		return handle{}, ErrBrokenInvariant
	case count == 0 && nd.hasValue:
		return t.arena.AllocNew(&leafNode{partial: nd.partial, value: nd.value}), nil
	case count == 1 && !nd.hasValue:
		childBase := nibble.WithPrefixNibble(nd.partial, byte(lastIdx))
		childPrefix := nibble.Combine(prefix, childBase)
		n, wasCachedC, cachedHashC, err := t.take(nd.children[lastIdx], childPrefix)
		if err != nil {
			return handle{}, err
		}
		switch cn := n.(type) {
		case *leafNode:
			merged := nibble.Combine(childBase, cn.partial)
			if wasCachedC {
				t.deathRow.add(cachedHashC, childPrefix)
			}
			return t.arena.AllocNew(&leafNode{partial: merged, value: cn.value}), nil
		case *nibbledBranchNode:
			merged := nibble.Combine(childBase, cn.partial)
			if wasCachedC {
				t.deathRow.add(cachedHashC, childPrefix)
			}
			return t.arena.AllocNew(&nibbledBranchNode{partial: merged, children: cn.children, value: cn.value, hasValue: cn.hasValue}), nil
		default:
			return handle{}, ErrBrokenInvariant
		}
	default:
		return t.arena.AllocNew(nd), nil
	}
}

package rlp

import (
	"fmt"

	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/hash"
	"github.com/hexroot/mpt/nibble"
)

// NodeKind tags the variant of a decoded EncodedNode: Empty, Leaf,
// Extension, Branch, or NibbledBranch.
type NodeKind int

const (
	KindEmpty NodeKind = iota
	KindLeaf
	KindExtension
	KindBranch
	KindNibbledBranch
)

// EncodedNode is the codec's decoded, still-RLP-level representation of one
// node: child slots are raw encoded bytes (either an RLP string holding a
// 32-byte hash, or an embedded RLP list), left for the node/codec adapter
// (mpt package) to turn into Hash/InMemory handles via TryDecodeHash.
type EncodedNode struct {
	Kind     NodeKind
	Partial  nibble.Stored // Leaf, Extension, NibbledBranch
	Child    []byte        // Extension only: encoded child slice
	Children [16][]byte    // Branch, NibbledBranch: encoded child slices (nil = no child)
	Value    []byte        // Leaf: value. Branch/NibbledBranch: optional value
	HasValue bool          // Branch/NibbledBranch only
}

// EmptyNode returns the canonical encoding of the null node: a single RLP
// empty-string byte.
func EmptyNode() []byte {
	return []byte{0x80}
}

// HashedNullNode returns the hash of the canonical empty trie, the root
// value a freshly created or fully-emptied trie commits to.
func HashedNullNode(h hash.Hasher) common.Hash {
	return h.Hash(EmptyNode())
}

// TryDecodeHash reports whether an encoded child slice is a bare hash
// reference (an RLP string of exactly the hasher's output length) as
// opposed to an embedded (inline) node encoding.
func TryDecodeHash(slice []byte, hasherLen int) (common.Hash, bool) {
	kind, content, rest, err := Split(slice)
	if err != nil || len(rest) != 0 || kind != String {
		return common.Hash{}, false
	}
	if len(content) != hasherLen {
		return common.Hash{}, false
	}
	return common.BytesToHash(content), true
}

// Decode parses the RLP encoding of one trie node.
func Decode(buf []byte) (EncodedNode, error) {
	if len(buf) == 0 {
		return EncodedNode{}, fmt.Errorf("rlp: empty node encoding")
	}
	if len(buf) == 1 && buf[0] == 0x80 {
		return EncodedNode{Kind: KindEmpty}, nil
	}
	elems, _, err := SplitList(buf)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode node: %w", err)
	}
	count, err := CountValues(elems)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode node: %w", err)
	}
	switch count {
	case 2:
		return decodeShort(elems)
	case 17:
		return decodeBranch(elems)
	case 18:
		return decodeNibbledBranch(elems)
	default:
		return EncodedNode{}, fmt.Errorf("rlp: invalid node: %d elements", count)
	}
}

func decodeShort(elems []byte) (EncodedNode, error) {
	kbuf, rest, err := SplitString(elems)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode short node key: %w", err)
	}
	partial, term := compactDecode(kbuf)
	if term {
		val, _, err := SplitString(rest)
		if err != nil {
			return EncodedNode{}, fmt.Errorf("rlp: decode leaf value: %w", err)
		}
		return EncodedNode{Kind: KindLeaf, Partial: partial, Value: val}, nil
	}
	child, err := firstItemBytes(rest)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode extension child: %w", err)
	}
	return EncodedNode{Kind: KindExtension, Partial: partial, Child: child}, nil
}

func decodeBranch(elems []byte) (EncodedNode, error) {
	n := EncodedNode{Kind: KindBranch}
	rest := elems
	for i := 0; i < 16; i++ {
		item, next, err := firstItemBytesRest(rest)
		if err != nil {
			return EncodedNode{}, fmt.Errorf("rlp: decode branch child %d: %w", i, err)
		}
		if !isEmptyItem(item) {
			n.Children[i] = item
		}
		rest = next
	}
	val, _, err := SplitString(rest)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode branch value: %w", err)
	}
	if len(val) > 0 {
		n.Value = val
		n.HasValue = true
	}
	return n, nil
}

func decodeNibbledBranch(elems []byte) (EncodedNode, error) {
	kbuf, rest, err := SplitString(elems)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode nibbled-branch key: %w", err)
	}
	partial, _ := compactDecode(kbuf)
	n := EncodedNode{Kind: KindNibbledBranch, Partial: partial}
	for i := 0; i < 16; i++ {
		item, next, err := firstItemBytesRest(rest)
		if err != nil {
			return EncodedNode{}, fmt.Errorf("rlp: decode nibbled-branch child %d: %w", i, err)
		}
		if !isEmptyItem(item) {
			n.Children[i] = item
		}
		rest = next
	}
	val, _, err := SplitString(rest)
	if err != nil {
		return EncodedNode{}, fmt.Errorf("rlp: decode nibbled-branch value: %w", err)
	}
	if len(val) > 0 {
		n.Value = val
		n.HasValue = true
	}
	return n, nil
}

func firstItemBytes(b []byte) ([]byte, error) {
	item, _, err := firstItemBytesRest(b)
	return item, err
}

// firstItemBytesRest splits off the first fully-encoded item (its RLP
// header and content both) from b, returning it alongside the remaining
// bytes.
func firstItemBytesRest(b []byte) (item, rest []byte, err error) {
	_, _, next, err := Split(b)
	if err != nil {
		return nil, nil, err
	}
	return b[:len(b)-len(next)], next, nil
}

func isEmptyItem(item []byte) bool {
	return len(item) == 1 && item[0] == 0x80
}

// LeafNode encodes a Leaf node: [compact(partial, term=true), value].
func LeafNode(partial nibble.Stored, value []byte) []byte {
	var w EncoderBuffer
	tok := w.List()
	w.WriteBytes(compactEncode(partial, true))
	w.WriteBytes(value)
	w.ListEnd(tok)
	return w.ToBytes()
}

// ExtNode encodes an Extension node: [compact(partial, term=false), child],
// where child is an already fully-encoded RLP item (a hash string or an
// embedded list).
func ExtNode(partial nibble.Stored, child []byte) []byte {
	var w EncoderBuffer
	tok := w.List()
	w.WriteBytes(compactEncode(partial, false))
	w.WriteRaw(child)
	w.ListEnd(tok)
	return w.ToBytes()
}

// emptySlot is the encoding of an absent branch child.
var emptySlot = []byte{0x80}

// BranchNode encodes a Branch node: 17 items, 16 children (each an
// already-encoded RLP item, or the empty slot) plus an optional value.
func BranchNode(children [16][]byte, value []byte, hasValue bool) []byte {
	var w EncoderBuffer
	tok := w.List()
	for _, c := range children {
		if c == nil {
			w.WriteRaw(emptySlot)
		} else {
			w.WriteRaw(c)
		}
	}
	if hasValue {
		w.WriteBytes(value)
	} else {
		w.WriteBytes(nil)
	}
	w.ListEnd(tok)
	return w.ToBytes()
}

// BranchNodeNibbled encodes a NibbledBranch node: compact(partial) followed
// by the same 16-children-plus-value shape as BranchNode, for a total of 18
// items, which is how Decode tells NibbledBranch apart from Branch.
func BranchNodeNibbled(partial nibble.Stored, children [16][]byte, value []byte, hasValue bool) []byte {
	var w EncoderBuffer
	tok := w.List()
	w.WriteBytes(compactEncode(partial, false))
	for _, c := range children {
		if c == nil {
			w.WriteRaw(emptySlot)
		} else {
			w.WriteRaw(c)
		}
	}
	if hasValue {
		w.WriteBytes(value)
	} else {
		w.WriteBytes(nil)
	}
	w.ListEnd(tok)
	return w.ToBytes()
}

// compactEncode implements the hex-prefix ("compact") encoding of a packed
// nibble key: one flag nibble (bit 1 = terminator/is-leaf, bit 0 =
// odd-length) optionally sharing its byte with the first content nibble,
// followed by the remaining nibbles packed two per byte. This is the
// teacher's hexToCompact generalized from the fixed "hex key with optional
// terminator nibble" representation to nibble.Stored.
func compactEncode(partial nibble.Stored, term bool) []byte {
	nibbles := nibble.ToNibbles(partial)
	oddlen := len(nibbles)%2 == 1
	flag := byte(0)
	if term {
		flag |= 2
	}
	if oddlen {
		flag |= 1
	}
	var buf []byte
	if oddlen {
		buf = append(buf, flag<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		buf = append(buf, flag<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		buf = append(buf, nibbles[i]<<4|nibbles[i+1])
	}
	return buf
}

// compactDecode is the inverse of compactEncode.
func compactDecode(buf []byte) (partial nibble.Stored, term bool) {
	if len(buf) == 0 {
		return nibble.Stored{}, false
	}
	flag := buf[0] >> 4
	term = flag&2 != 0
	oddlen := flag&1 != 0
	var nibbles []byte
	if oddlen {
		nibbles = append(nibbles, buf[0]&0x0F)
	}
	for _, b := range buf[1:] {
		nibbles = append(nibbles, b>>4, b&0x0F)
	}
	return nibble.FromNibbles(nibbles), term
}

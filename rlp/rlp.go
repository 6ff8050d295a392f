// Package rlp implements the RLP wire encoding used to turn in-memory trie
// nodes into bytes and back, including the compact hex-prefix encoding
// applied to partial keys and the self-delimiting inline-vs-hash child rule.
package rlp

import (
	"errors"
	"fmt"
)

// Kind identifies the shape of one decoded RLP item.
type Kind int

const (
	Byte Kind = iota
	String
	List
)

var (
	// ErrExpectedString is returned when a list item was found where a
	// string (or single byte) was expected.
	ErrExpectedString = errors.New("rlp: expected String or Byte")
	// ErrExpectedList is returned when a string item was found where a
	// list was expected.
	ErrExpectedList = errors.New("rlp: expected List")
	// ErrCanonSize is returned for a non-canonical (not-shortest) length
	// encoding.
	ErrCanonSize = errors.New("rlp: non-canonical size information")
	// ErrValueTooLarge is returned when an item claims a length longer
	// than the remaining buffer.
	ErrValueTooLarge = errors.New("rlp: value size exceeds available input length")
	errUnexpectedEOF = errors.New("rlp: unexpected EOF")
)

// Split decodes the kind, content and remaining bytes of the first item in
// b, the way teacher's decodeRef used rlp.Split to classify each child
// slice (rlp.List -> possibly-embedded node, rlp.String of length 0 ->
// empty node, rlp.String of length 32 -> hash reference).
func Split(b []byte) (kind Kind, content, rest []byte, err error) {
	if len(b) == 0 {
		return 0, nil, nil, errUnexpectedEOF
	}
	prefix := b[0]
	switch {
	case prefix < 0x80:
		return Byte, b[:1], b[1:], nil
	case prefix < 0xB8:
		size := int(prefix - 0x80)
		content, rest, err = splitFixed(b, 1, size)
		if err == nil && size == 1 && len(content) == 1 && content[0] < 0x80 {
			return 0, nil, nil, ErrCanonSize
		}
		return String, content, rest, err
	case prefix < 0xC0:
		lenOfLen := int(prefix - 0xB7)
		n, rest2, err := splitFixed(b, 1, lenOfLen)
		if err != nil {
			return 0, nil, nil, err
		}
		size := decodeLength(n)
		content, rest, err = splitFixed(rest2, 0, size)
		return String, content, rest, err
	case prefix < 0xF8:
		size := int(prefix - 0xC0)
		content, rest, err = splitFixed(b, 1, size)
		return List, content, rest, err
	default:
		lenOfLen := int(prefix - 0xF7)
		n, rest2, err := splitFixed(b, 1, lenOfLen)
		if err != nil {
			return 0, nil, nil, err
		}
		size := decodeLength(n)
		content, rest, err = splitFixed(rest2, 0, size)
		return List, content, rest, err
	}
}

func splitFixed(b []byte, skip, size int) (content, rest []byte, err error) {
	if len(b) < skip+size {
		return nil, nil, ErrValueTooLarge
	}
	return b[skip : skip+size], b[skip+size:], nil
}

func decodeLength(b []byte) int {
	n := 0
	for _, c := range b {
		n = n<<8 | int(c)
	}
	return n
}

// SplitString decodes the content and remaining bytes of the first item in
// b, requiring it to be a string (or single byte).
func SplitString(b []byte) (content, rest []byte, err error) {
	k, content, rest, err := Split(b)
	if err != nil {
		return nil, nil, err
	}
	if k == List {
		return nil, nil, ErrExpectedString
	}
	return content, rest, nil
}

// SplitList decodes the content and remaining bytes of the first item in b,
// requiring it to be a list.
func SplitList(b []byte) (content, rest []byte, err error) {
	k, content, rest, err := Split(b)
	if err != nil {
		return nil, nil, err
	}
	if k != List {
		return nil, nil, ErrExpectedList
	}
	return content, rest, nil
}

// CountValues counts the number of encoded items in b (a list's content, as
// produced by SplitList), the way decodeNodeUnsafe dispatches on element
// count (2 => short node, 17 => full node, here also 18 => nibbled branch).
func CountValues(b []byte) (int, error) {
	var n int
	for ; len(b) > 0; n++ {
		_, _, rest, err := Split(b)
		if err != nil {
			return 0, fmt.Errorf("at value %d: %w", n, err)
		}
		b = rest
	}
	return n, nil
}

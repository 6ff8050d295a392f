// Package common holds the small value types shared by the rlp codec, the
// trie database and the mpt package itself.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the byte length of a Hash.
const HashLength = 32

// Hash is a fixed-size, comparable, map-keyable output of the configured
// Hasher. The zero Hash is used as the metaroot key in TrieDB-shaped code
// and must never be a valid content hash.
type Hash [HashLength]byte

// BytesToHash sets the bytes from b, right-aligned, into a new Hash. If b is
// longer than HashLength, it is truncated from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a hex string (with or without "0x" prefix) into a Hash.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// Hex returns the "0x"-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash (the metaroot/empty-prefix
// sentinel key).
func (h Hash) IsZero() bool { return h == Hash{} }

// Format implements fmt.Formatter so that "%x" on a Hash prints its bytes
// directly in log lines without an explicit .Bytes() call.
func (h Hash) Format(s fmt.State, c rune) {
	switch c {
	case 'x', 'X', 'v', 's':
		fmt.Fprintf(s, "%x", h[:])
	default:
		fmt.Fprintf(s, "%%!%c(common.Hash=%x)", c, h[:])
	}
}

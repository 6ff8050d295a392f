// Package hash provides the concrete Hasher implementations the mpt
// package's Config plugs in as its hashing collaborator.
package hash

import (
	"golang.org/x/crypto/sha3"

	"github.com/hexroot/mpt/common"
)

// Hasher is the minimal external hashing contract mpt.Config needs: a
// fixed-length, byte-wise deterministic digest function.
type Hasher interface {
	Hash(data []byte) common.Hash
	Length() int
}

// Keccak256Hasher is the default Hasher, built on golang.org/x/crypto/sha3.
type Keccak256Hasher struct{}

// Hash returns the Keccak-256 digest of data.
func (Keccak256Hasher) Hash(data []byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	var out common.Hash
	d.Sum(out[:0])
	return out
}

// Length returns the Keccak-256 digest length, 32 bytes.
func (Keccak256Hasher) Length() int { return common.HashLength }

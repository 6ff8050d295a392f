package mpt

import "github.com/hexroot/mpt/hash"

// Layout selects which of the two node shapes a trie is built from. The
// two layouts never mix within one trie.
type Layout int

const (
	// ExtensionLayout uses Extension+Branch: a Branch never carries a
	// partial key of its own, shared prefixes are hoisted into a
	// separate Extension node.
	ExtensionLayout Layout = iota
	// ExtensionFreeLayout uses only NibbledBranch, which folds a
	// (possibly empty) shared prefix directly into the branch node.
	ExtensionFreeLayout
)

// Config selects a trie's layout and hashing function.
type Config struct {
	Layout Layout
	Hasher hash.Hasher
}

// DefaultConfig returns the extension layout with the Keccak-256 hasher.
func DefaultConfig() Config {
	return Config{Layout: ExtensionLayout, Hasher: hash.Keccak256Hasher{}}
}

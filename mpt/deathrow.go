package mpt

import (
	"github.com/hexroot/mpt/common"
	"github.com/hexroot/mpt/nibble"
	"github.com/hexroot/mpt/triedb"
)

// deathEntry is one backing-store reference to drop at the next Commit.
type deathEntry struct {
	hash   common.Hash
	prefix nibble.Stored
}

type deathKey struct {
	hash   common.Hash
	prefix string
}

// deathRow accumulates (hash, prefix) pairs for Cached nodes that mutation
// replaced or deleted. Deduplicated so that a node touched twice between
// commits is only removed from the backing store once.
type deathRow struct {
	seen    map[deathKey]struct{}
	entries []deathEntry
}

func newDeathRow() *deathRow {
	return &deathRow{seen: make(map[deathKey]struct{})}
}

func (d *deathRow) add(h common.Hash, prefix nibble.Stored) {
	k := deathKey{hash: h, prefix: triedb.PrefixString(prefix)}
	if _, ok := d.seen[k]; ok {
		return
	}
	d.seen[k] = struct{}{}
	d.entries = append(d.entries, deathEntry{hash: h, prefix: prefix})
}

// drain returns every accumulated entry and resets the row, called once per
// Commit right before the store writes.
func (d *deathRow) drain() []deathEntry {
	out := d.entries
	d.entries = nil
	d.seen = make(map[deathKey]struct{})
	return out
}

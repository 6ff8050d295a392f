package mpt

import "github.com/hexroot/mpt/common"

// handleKind tags what a handle currently points at.
type handleKind uint8

const (
	handleNone handleKind = iota // no node (the Empty variant, never materialized)
	handleNode                   // an arena slot holding a resolved in-memory node
	handleHash                   // a not-yet-loaded backing-store reference
)

// handle is the in-memory pointer discipline for arena-resident nodes: either
// an arena index or a raw hash. The zero value (handleNone) stands for the
// Empty node without ever occupying an arena slot. Handles are treated as
// non-copyable by convention: once passed to take/insertAt/removeAt/
// encodeChild, the caller must not reuse it (see Storage.Destroy).
type handle struct {
	kind handleKind
	idx  uint32
	hash common.Hash
}

func hashHandle(h common.Hash) handle { return handle{kind: handleHash, hash: h} }

// slotKind distinguishes a dirty (New) arena entry from one that's still
// byte-identical to what the backing store holds under its hash (Cached).
type slotKind uint8

const (
	slotNew slotKind = iota
	slotCached
)

type slot struct {
	kind slotKind
	node node
	hash common.Hash // valid only when kind == slotCached
}

// Storage is the node arena: a dense, index-addressed vector of slots with
// a FIFO free list.
type Storage struct {
	slots []slot
	free  []uint32
	live  []bool // live-slot tracking, checked by Destroy and Get in every build
}

func newStorage() *Storage {
	return &Storage{}
}

// AllocNew stores n as a dirty (New) node and returns a handle to it.
func (s *Storage) AllocNew(n node) handle {
	return s.alloc(slot{kind: slotNew, node: n})
}

// AllocCached stores n as a clean (Cached) node, still identical to what
// the backing store holds under h, and returns a handle to it.
func (s *Storage) AllocCached(n node, h common.Hash) handle {
	return s.alloc(slot{kind: slotCached, node: n, hash: h})
}

func (s *Storage) alloc(sl slot) handle {
	var idx uint32
	if len(s.free) > 0 {
		idx = s.free[0]
		s.free = s.free[1:]
		s.slots[idx] = sl
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, sl)
	}
	for len(s.live) <= int(idx) {
		s.live = append(s.live, false)
	}
	s.live[idx] = true
	return handle{kind: handleNode, idx: idx}
}

// Destroy moves the slot's contents out, reclaiming the index onto the free
// list. It panics if h does not address a live arena slot (double-destroy
// or use of a stale handle) — the move-only handle discipline enforced at
// runtime instead of at compile time.
func (s *Storage) Destroy(h handle) slot {
	if h.kind != handleNode {
		panic("mpt: Destroy called on a non-arena handle")
	}
	if int(h.idx) >= len(s.live) || !s.live[h.idx] {
		panic("mpt: Destroy called on a dead or already-destroyed arena slot")
	}
	out := s.slots[h.idx]
	s.slots[h.idx] = slot{}
	s.live[h.idx] = false
	s.free = append(s.free, h.idx)
	return out
}

// Get returns a read-only borrow of the node at h, without consuming it.
// Used by the lookup walker, which only ever reads.
func (s *Storage) Get(h handle) node {
	if h.kind != handleNode {
		panic("mpt: Get called on a non-arena handle")
	}
	if int(h.idx) >= len(s.live) || !s.live[h.idx] {
		panic("mpt: Get called on a dead arena slot")
	}
	return s.slots[h.idx].node
}

package mpt

import "github.com/hexroot/mpt/nibble"

//go:generate stringer -type=Kind -output=nodekind_string.go

// Kind tags the in-memory node variants. Empty is deliberately absent:
// it never occupies an arena slot (see handleNone in arena.go).
type Kind int

const (
	KindLeaf Kind = iota
	KindExtension
	KindBranch
	KindNibbledBranch
)

// node is the arena's payload type: exactly one of the four concrete
// variants below.
type node interface {
	Kind() Kind
}

// leafNode carries a value at the end of partial, no further descent.
type leafNode struct {
	partial nibble.Stored
	value   []byte
}

func (*leafNode) Kind() Kind { return KindLeaf }

// extensionNode carries a non-empty shared partial key to a single child,
// which must resolve to a branchNode (invariant, extension layout only).
type extensionNode struct {
	partial nibble.Stored
	child   handle
}

func (*extensionNode) Kind() Kind { return KindExtension }

// branchNode is the 16-way fan-out node of the extension layout: no partial
// key of its own, an optional value, and up to 16 children.
type branchNode struct {
	children [16]handle
	value    []byte
	hasValue bool
}

func (*branchNode) Kind() Kind { return KindBranch }

// nibbledBranchNode is the extension-free layout's sole branching node: a
// branchNode with its own (possibly empty) shared partial key folded in, so
// no separate Extension variant is ever needed in that layout.
type nibbledBranchNode struct {
	partial  nibble.Stored
	children [16]handle
	value    []byte
	hasValue bool
}

func (*nibbledBranchNode) Kind() Kind { return KindNibbledBranch }

package mpt

import (
	"errors"
	"fmt"

	"github.com/hexroot/mpt/common"
)

// InvalidStateRootError is returned by FromExisting when the backing store
// does not hold a node under (root, EmptyPrefix).
type InvalidStateRootError struct {
	Hash common.Hash
}

func (e *InvalidStateRootError) Error() string {
	return fmt.Sprintf("mpt: invalid state root %s: not present in backing store", e.Hash)
}

// IncompleteDatabaseError is returned when a lookup or mutation needs to
// resolve a hash handle the backing store doesn't have an entry for.
type IncompleteDatabaseError struct {
	Hash common.Hash
}

func (e *IncompleteDatabaseError) Error() string {
	return fmt.Sprintf("mpt: incomplete database: missing node %s", e.Hash)
}

// DecodeError wraps a codec failure while resolving a stored node blob.
type DecodeError struct {
	Hash common.Hash
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mpt: decode node %s: %v", e.Hash, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrBrokenInvariant is returned when fix observes a branching node that
// cannot arise from correctly-maintained insert/remove bookkeeping (no
// children and no value). It signals a programming error, not bad input.
var ErrBrokenInvariant = errors.New("mpt: broken trie invariant")

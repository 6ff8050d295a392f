package mpt

import (
	"errors"

	"github.com/hexroot/mpt/nibble"
	"github.com/hexroot/mpt/rlp"
)

// resolve turns a Hash handle into a live arena handle by fetching its blob
// from the backing store and decoding it. Handles that are already
// handleNode or handleNone pass through unchanged. The freshly
// loaded top-level node is recorded as Cached (still identical to what the
// store holds under h.hash); any inline children it decodes are recorded
// as New, since they have no independent backing-store identity of their
// own to be clean against.
func (t *Trie) resolve(h handle, prefix nibble.Stored) (handle, error) {
	if h.kind != handleHash {
		return h, nil
	}
	blob, ok := t.store.Get(h.hash, prefix)
	if !ok {
		return handle{}, &IncompleteDatabaseError{Hash: h.hash}
	}
	enc, err := rlp.Decode(blob)
	if err != nil {
		return handle{}, &DecodeError{Hash: h.hash, Err: err}
	}
	n, err := t.decodeEncoded(enc)
	if err != nil {
		return handle{}, err
	}
	return t.arena.AllocCached(n, h.hash), nil
}

var errUnexpectedEmpty = errors.New("mpt: unexpected Empty node below the root")

// decodeEncoded turns one already-RLP-decoded node into its in-memory
// variant, recursively materializing inline children eagerly and leaving
// hashed children as lazy handleHash references.
func (t *Trie) decodeEncoded(enc rlp.EncodedNode) (node, error) {
	switch enc.Kind {
	case rlp.KindLeaf:
		return &leafNode{partial: enc.Partial, value: enc.Value}, nil
	case rlp.KindExtension:
		child, err := t.resolveChildSlice(enc.Child)
		if err != nil {
			return nil, err
		}
		return &extensionNode{partial: enc.Partial, child: child}, nil
	case rlp.KindBranch:
		var children [16]handle
		for i, raw := range enc.Children {
			h, err := t.resolveChildSlice(raw)
			if err != nil {
				return nil, err
			}
			children[i] = h
		}
		return &branchNode{children: children, value: enc.Value, hasValue: enc.HasValue}, nil
	case rlp.KindNibbledBranch:
		var children [16]handle
		for i, raw := range enc.Children {
			h, err := t.resolveChildSlice(raw)
			if err != nil {
				return nil, err
			}
			children[i] = h
		}
		return &nibbledBranchNode{partial: enc.Partial, children: children, value: enc.Value, hasValue: enc.HasValue}, nil
	default:
		return nil, errUnexpectedEmpty
	}
}

// resolveChildSlice interprets one already-split-off RLP child item: nil
// (absent), a bare hash reference, or an embedded node to decode and
// materialize eagerly.
func (t *Trie) resolveChildSlice(raw []byte) (handle, error) {
	if raw == nil {
		return handle{}, nil
	}
	if h, ok := rlp.TryDecodeHash(raw, t.hasher.Length()); ok {
		return hashHandle(h), nil
	}
	enc, err := rlp.Decode(raw)
	if err != nil {
		return handle{}, &DecodeError{Err: err}
	}
	n, err := t.decodeEncoded(enc)
	if err != nil {
		return handle{}, err
	}
	return t.arena.AllocNew(n), nil
}

// Package nibble implements the packed-key and nibble-slice primitives the
// rest of the module builds on: slicing a byte string into a sequence of
// 4-bit nibbles, taking common prefixes, and reassembling packed keys at
// arbitrary half-byte alignments.
//
// A packed key is a byte sequence plus an offset (0 or 1) saying whether its
// first nibble is the high or low nibble of byte zero. Stored is the owned
// form of a packed key; Slice is a borrowed view over one with an explicit
// nibble length, supporting the descent/splitting operations the mutation
// engine needs.
package nibble

// Stored is an owned packed nibble key: Offset is 0 or 1, and the key's
// nibble length is always 2*len(Bytes)-Offset.
type Stored struct {
	Offset int
	Bytes  []byte
}

// Len returns the nibble length implied by the packed encoding.
func (s Stored) Len() int {
	if len(s.Bytes) == 0 {
		return 0
	}
	return 2*len(s.Bytes) - s.Offset
}

// Slice is a borrowed, read-only view over nibbles stored in data, starting
// at nibble-position offset (counted from the start of data) and running
// for length nibbles.
type Slice struct {
	data   []byte
	offset int
	length int
}

// NewSlice returns the full nibble view of a plain (unpacked) byte string,
// i.e. an ordinary trie key.
func NewSlice(data []byte) Slice {
	return Slice{data: data, offset: 0, length: len(data) * 2}
}

// FromStored returns a Slice borrowing a Stored packed key's bytes.
func FromStored(s Stored) Slice {
	return Slice{data: s.Bytes, offset: s.Offset, length: s.Len()}
}

// Len returns the number of nibbles in the view.
func (s Slice) Len() int { return s.length }

// IsEmpty reports whether the view has zero nibbles.
func (s Slice) IsEmpty() bool { return s.length == 0 }

// At returns the i'th nibble of the view (0-indexed).
func (s Slice) At(i int) byte {
	pos := s.offset + i
	b := s.data[pos/2]
	if pos%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

// Mid returns the view with the first n nibbles dropped.
func (s Slice) Mid(n int) Slice {
	return Slice{data: s.data, offset: s.offset + n, length: s.length - n}
}

// Left returns the view truncated to its first n nibbles.
func (s Slice) Left(n int) Slice {
	return Slice{data: s.data, offset: s.offset, length: n}
}

// CommonPrefix returns the number of leading nibbles equal in both views.
func (s Slice) CommonPrefix(o Slice) int {
	m := s.length
	if o.length < m {
		m = o.length
	}
	i := 0
	for ; i < m; i++ {
		if s.At(i) != o.At(i) {
			break
		}
	}
	return i
}

// StartsWith reports whether s begins with all of o's nibbles.
func (s Slice) StartsWith(o Slice) bool {
	return s.length >= o.length && s.CommonPrefix(o) == o.length
}

// Equal reports whether two views hold the same nibble sequence.
func (s Slice) Equal(o Slice) bool {
	return s.length == o.length && s.CommonPrefix(o) == s.length
}

// ToStored packs the whole view into an owned Stored key.
func (s Slice) ToStored() Stored {
	return s.ToStoredRange(s.length)
}

// ToStoredRange packs the first n nibbles of the view into an owned Stored
// key, re-aligning so the result's Offset is 0 or 1 regardless of the
// view's own underlying alignment.
func (s Slice) ToStoredRange(n int) Stored {
	if n > s.length {
		n = s.length
	}
	b := newBuilder(s.offset % 2)
	for i := 0; i < n; i++ {
		b.push(s.At(i))
	}
	return b.stored()
}

// builder assembles a packed nibble key left-to-right using PushAtLeft,
// growing its backing buffer as needed. It is the shared machinery behind
// ToStoredRange, Combine and the commit-engine's prefix accumulator.
type builder struct {
	offset int
	buf    []byte
	n      int
}

func newBuilder(offset int) *builder {
	return &builder{offset: offset}
}

func (b *builder) push(v byte) {
	ix := b.offset + b.n
	need := ix/2 + 1
	for len(b.buf) < need {
		b.buf = append(b.buf, 0)
	}
	b.buf = PushAtLeft(b.buf, ix, v)
	b.n++
}

func (b *builder) stored() Stored {
	if (b.offset+b.n)%2 != 0 {
		// The pushed nibbles end on a half byte; re-pack them from the
		// other alignment so the key ends on a byte boundary and its
		// Len() equals the number of nibbles pushed.
		src := Slice{data: b.buf, offset: b.offset, length: b.n}
		out := newBuilder(1 - b.offset)
		for i := 0; i < b.n; i++ {
			out.push(src.At(i))
		}
		return Stored{Offset: out.offset, Bytes: out.buf}
	}
	return Stored{Offset: b.offset, Bytes: b.buf}
}

// PushAtLeft ORs nibble v into buf at nibble-index ix (0-based from the
// start of buf; even indices are the high nibble of a byte, odd indices the
// low nibble), growing buf with zero bytes if ix falls past its end. It
// assumes the target nibble is currently zero, which holds for every caller
// in this module since nibbles are always written in left-to-right order.
func PushAtLeft(buf []byte, ix int, v byte) []byte {
	byteIx := ix / 2
	for len(buf) <= byteIx {
		buf = append(buf, 0)
	}
	if ix%2 == 0 {
		buf[byteIx] |= (v & 0x0F) << 4
	} else {
		buf[byteIx] |= v & 0x0F
	}
	return buf
}

// MaskedLeft returns b with its low nibble cleared, keeping only the high
// nibble in place.
func MaskedLeft(b byte) byte { return b & 0xF0 }

// MaskedRight returns b with its high nibble cleared, keeping only the low
// nibble. In a Stored key with Offset 1, this is the single live nibble of
// byte zero (its high nibble is padding).
func MaskedRight(b byte) byte { return b & 0x0F }

// Combine concatenates two packed keys' nibble sequences (Combine(a, b) ==
// a's nibbles followed by b's nibbles) and returns the result re-packed as a
// Stored key, whose Offset follows the combined length's parity. Used by fix
// when collapsing Extension->Extension,
// Extension->Leaf, or NibbledBranch->child chains.
func Combine(a, b Stored) Stored {
	as, bs := FromStored(a), FromStored(b)
	out := newBuilder(a.Offset % 2)
	for i := 0; i < as.Len(); i++ {
		out.push(as.At(i))
	}
	for i := 0; i < bs.Len(); i++ {
		out.push(bs.At(i))
	}
	return out.stored()
}

// ShiftKey re-packs a packed key into newly allocated bytes without changing
// its nibble content. offset (0 or 1) is where packing starts; as for every
// Stored key, the result's Offset is the key's length parity (Len()%2).
func ShiftKey(s Stored, offset int) Stored {
	sl := FromStored(s)
	b := newBuilder(offset % 2)
	for i := 0; i < sl.Len(); i++ {
		b.push(sl.At(i))
	}
	return b.stored()
}

// WithPrefixNibble returns a new Stored equal to prefix with n appended as
// one more trailing nibble; used by the commit engine's path accumulator
// (parent prefix + branch-index nibble) and by fix when recomputing a
// collapsed child's death-row prefix.
func WithPrefixNibble(prefix Stored, n byte) Stored {
	b := newBuilder(prefix.Offset % 2)
	ps := FromStored(prefix)
	for i := 0; i < ps.Len(); i++ {
		b.push(ps.At(i))
	}
	b.push(n)
	return b.stored()
}

// ToNibbles unpacks a Stored key into a slice holding one nibble value
// (0..15) per element, in order. The inverse of FromNibbles.
func ToNibbles(s Stored) []byte {
	sl := FromStored(s)
	out := make([]byte, sl.Len())
	for i := range out {
		out[i] = sl.At(i)
	}
	return out
}

// FromNibbles packs a slice of individual nibble values (0..15) into an
// owned Stored key at offset len(nibbles)%2. The inverse of ToNibbles.
func FromNibbles(nibbles []byte) Stored {
	b := newBuilder(0)
	for _, n := range nibbles {
		b.push(n)
	}
	return b.stored()
}

// KeybytesToHex converts a plain byte-string key into its full nibble
// sequence, one nibble per output byte, with a trailing terminator value
// (16) appended — the conventional internal key representation used while
// descending the trie (teacher's keybytesToHex).
func KeybytesToHex(key []byte) []byte {
	l := len(key)*2 + 1
	out := make([]byte, l)
	for i, b := range key {
		out[i*2] = b / 16
		out[i*2+1] = b % 16
	}
	out[l-1] = 16
	return out
}

// HexToKeybytes converts a hex-nibble key (as produced by KeybytesToHex,
// terminator included or not) back into a plain byte string. The nibble
// count, excluding any terminator, must be even.
func HexToKeybytes(hex []byte) []byte {
	if HasTerm(hex) {
		hex = hex[:len(hex)-1]
	}
	if len(hex)&1 != 0 {
		panic("can't convert hex key of odd length")
	}
	key := make([]byte, len(hex)/2)
	for bi, ni := 0, 0; ni < len(hex); bi, ni = bi+1, ni+2 {
		key[bi] = hex[ni]<<4 | hex[ni+1]
	}
	return key
}

// HasTerm reports whether a hex key carries the KeybytesToHex terminator.
func HasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == 16
}

// PrefixLen returns the number of leading bytes equal in both slices (used
// on the KeybytesToHex one-nibble-per-byte representation, where "bytes"
// here are really nibbles).
func PrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var i int
	for i = 0; i < n; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

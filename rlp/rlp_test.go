package rlp

import (
	"bytes"
	"testing"

	"github.com/hexroot/mpt/nibble"
)

func TestSplitSingleByte(t *testing.T) {
	kind, content, rest, err := Split([]byte{0x05, 0xFF})
	if err != nil {
		t.Fatal(err)
	}
	if kind != Byte || !bytes.Equal(content, []byte{0x05}) || !bytes.Equal(rest, []byte{0xFF}) {
		t.Fatalf("unexpected split: %v %x %x", kind, content, rest)
	}
}

func TestSplitShortString(t *testing.T) {
	encoded := EncodeBytes([]byte("dog"))
	kind, content, rest, err := Split(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if kind != String || string(content) != "dog" || len(rest) != 0 {
		t.Fatalf("unexpected split: %v %q %x", kind, content, rest)
	}
}

func TestSplitLongString(t *testing.T) {
	long := bytes.Repeat([]byte{0xAB}, 100)
	encoded := EncodeBytes(long)
	kind, content, rest, err := Split(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if kind != String || !bytes.Equal(content, long) || len(rest) != 0 {
		t.Fatalf("long string round trip failed")
	}
}

func TestSplitList(t *testing.T) {
	var w EncoderBuffer
	tok := w.List()
	w.WriteBytes([]byte("a"))
	w.WriteBytes([]byte("bc"))
	w.ListEnd(tok)
	content, rest, err := SplitList(w.ToBytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected trailing bytes: %x", rest)
	}
	n, err := CountValues(content)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 values, got %d", n)
	}
}

func TestTryDecodeHash(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	h, ok := TryDecodeHash(EncodeBytes(raw), 32)
	if !ok {
		t.Fatal("expected hash reference to be recognized")
	}
	if !bytes.Equal(h.Bytes(), raw) {
		t.Fatalf("hash mismatch: %x vs %x", h.Bytes(), raw)
	}
	if _, ok := TryDecodeHash(EncodeBytes([]byte("short")), 32); ok {
		t.Fatal("short string should not be recognized as a hash")
	}
}

func TestLeafNodeRoundTrip(t *testing.T) {
	partial := nibble.FromNibbles([]byte{0x1, 0x2, 0x3})
	encoded := LeafNode(partial, []byte("value"))
	n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindLeaf {
		t.Fatalf("expected KindLeaf, got %v", n.Kind)
	}
	if !bytes.Equal(n.Value, []byte("value")) {
		t.Fatalf("value mismatch: %q", n.Value)
	}
	if !nibble.FromStored(n.Partial).Equal(nibble.FromStored(partial)) {
		t.Fatalf("partial key mismatch")
	}
}

func TestExtNodeRoundTrip(t *testing.T) {
	partial := nibble.FromNibbles([]byte{0xA, 0xB})
	child := EncodeBytes(bytes.Repeat([]byte{0x42}, 32))
	encoded := ExtNode(partial, child)
	n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindExtension {
		t.Fatalf("expected KindExtension, got %v", n.Kind)
	}
	if !bytes.Equal(n.Child, child) {
		t.Fatalf("child mismatch: %x vs %x", n.Child, child)
	}
}

func TestBranchNodeRoundTrip(t *testing.T) {
	var children [16][]byte
	children[3] = EncodeBytes([]byte("x"))
	children[9] = EncodeBytes([]byte("y"))
	encoded := BranchNode(children, []byte("v"), true)
	n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindBranch || !n.HasValue || string(n.Value) != "v" {
		t.Fatalf("unexpected branch decode: %+v", n)
	}
	for i, c := range n.Children {
		if i == 3 || i == 9 {
			if c == nil {
				t.Fatalf("expected child %d present", i)
			}
			continue
		}
		if c != nil {
			t.Fatalf("expected child %d absent, got %x", i, c)
		}
	}
}

func TestBranchNodeNibbledRoundTrip(t *testing.T) {
	partial := nibble.FromNibbles([]byte{0x5})
	var children [16][]byte
	children[0] = EncodeBytes([]byte("z"))
	encoded := BranchNodeNibbled(partial, children, nil, false)
	n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindNibbledBranch || n.HasValue {
		t.Fatalf("unexpected nibbled-branch decode: %+v", n)
	}
	if !nibble.FromStored(n.Partial).Equal(nibble.FromStored(partial)) {
		t.Fatalf("partial key mismatch")
	}
}

func TestEmptyNodeDecode(t *testing.T) {
	n, err := Decode(EmptyNode())
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindEmpty {
		t.Fatalf("expected KindEmpty, got %v", n.Kind)
	}
}

package nibble

import (
	"bytes"
	"testing"
)

func TestSliceAtAndLen(t *testing.T) {
	s := NewSlice([]byte{0xAB, 0xCD})
	if s.Len() != 4 {
		t.Fatalf("expected length 4, got %d", s.Len())
	}
	want := []byte{0xA, 0xB, 0xC, 0xD}
	for i, w := range want {
		if s.At(i) != w {
			t.Errorf("nibble %d: got %x want %x", i, s.At(i), w)
		}
	}
}

func TestCommonPrefix(t *testing.T) {
	a := NewSlice([]byte{0x12, 0x34})
	b := NewSlice([]byte{0x12, 0x3F})
	if cp := a.CommonPrefix(b); cp != 3 {
		t.Fatalf("expected common prefix 3, got %d", cp)
	}
}

func TestToStoredRoundTrip(t *testing.T) {
	orig := NewSlice([]byte{0x1, 0x23, 0x45})
	stored := orig.ToStored()
	back := FromStored(stored)
	if !orig.Equal(back) {
		t.Fatalf("round trip mismatch: %v vs %v", orig, back)
	}
}

func TestMidAndLeft(t *testing.T) {
	s := NewSlice([]byte{0x12, 0x34})
	mid := s.Mid(1)
	if mid.Len() != 3 || mid.At(0) != 0x2 {
		t.Fatalf("Mid(1) wrong: len=%d at0=%x", mid.Len(), mid.At(0))
	}
	left := s.Left(2)
	if left.Len() != 2 || left.At(1) != 0x2 {
		t.Fatalf("Left(2) wrong: len=%d at1=%x", left.Len(), left.At(1))
	}
}

func TestCombine(t *testing.T) {
	a := FromNibbles([]byte{0x1, 0x2})
	b := FromNibbles([]byte{0x3, 0x4, 0x5})
	c := Combine(a, b)
	cs := FromStored(c)
	want := []byte{0x1, 0x2, 0x3, 0x4, 0x5}
	if cs.Len() != len(want) {
		t.Fatalf("expected length %d, got %d", len(want), cs.Len())
	}
	for i, w := range want {
		if cs.At(i) != w {
			t.Errorf("nibble %d: got %x want %x", i, cs.At(i), w)
		}
	}
}

func TestWithPrefixNibble(t *testing.T) {
	p := FromNibbles([]byte{0x1, 0x2})
	out := WithPrefixNibble(p, 0x7)
	os := FromStored(out)
	if os.Len() != 3 || os.At(2) != 0x7 {
		t.Fatalf("unexpected result: len=%d last=%x", os.Len(), os.At(2))
	}
}

func TestKeybytesToHexRoundTrip(t *testing.T) {
	key := []byte("hello")
	hex := KeybytesToHex(key)
	if !HasTerm(hex) {
		t.Fatal("expected terminator")
	}
	back := HexToKeybytes(hex)
	if !bytes.Equal(back, key) {
		t.Fatalf("round trip mismatch: %x vs %x", back, key)
	}
}

func TestFromNibblesToNibblesRoundTrip(t *testing.T) {
	nibbles := []byte{0x1, 0x2, 0x3}
	s := FromNibbles(nibbles)
	if !bytes.Equal(ToNibbles(s), nibbles) {
		t.Fatalf("round trip mismatch")
	}
}

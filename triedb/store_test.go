package triedb

import (
	"bytes"
	"testing"

	"github.com/hexroot/mpt/hash"
	"github.com/hexroot/mpt/nibble"
)

func TestMemStoreInsertGetRemove(t *testing.T) {
	s := NewMemStore(hash.Keccak256Hasher{})
	blob := []byte("node-bytes")
	h := s.Insert(EmptyPrefix, blob)

	got, ok := s.Get(h, EmptyPrefix)
	if !ok || !bytes.Equal(got, blob) {
		t.Fatalf("unexpected get: %v %v", got, ok)
	}
	if !s.Contains(h, EmptyPrefix) {
		t.Fatal("expected store to contain the inserted entry")
	}

	s.Remove(h, EmptyPrefix)
	if s.Contains(h, EmptyPrefix) {
		t.Fatal("expected entry to be gone after Remove")
	}
}

func TestMemStoreRefcounting(t *testing.T) {
	s := NewMemStore(hash.Keccak256Hasher{})
	blob := []byte("shared")
	h1 := s.Insert(EmptyPrefix, blob)
	h2 := s.Insert(EmptyPrefix, blob)
	if h1 != h2 {
		t.Fatal("same content+prefix should hash the same")
	}
	s.Remove(h1, EmptyPrefix)
	if !s.Contains(h1, EmptyPrefix) {
		t.Fatal("entry should survive one of two removes")
	}
	s.Remove(h1, EmptyPrefix)
	if s.Contains(h1, EmptyPrefix) {
		t.Fatal("entry should be gone after matching removes")
	}
}

func TestMemStorePrefixIsolation(t *testing.T) {
	s := NewMemStore(hash.Keccak256Hasher{})
	blob := []byte("same-bytes")
	prefixA := nibble.FromNibbles([]byte{0x1})
	prefixB := nibble.FromNibbles([]byte{0x2})

	h := s.Insert(prefixA, blob)
	if s.Contains(h, prefixB) {
		t.Fatal("entries under different prefixes must not be visible to each other")
	}
	if !s.Contains(h, prefixA) {
		t.Fatal("entry should be visible under its own prefix")
	}
}

func TestCachingStoreDelegates(t *testing.T) {
	base := NewMemStore(hash.Keccak256Hasher{})
	cached := NewCachingStore(base, 16)
	blob := []byte("cache-me")
	h := cached.Insert(EmptyPrefix, blob)

	got, ok := cached.Get(h, EmptyPrefix)
	if !ok || !bytes.Equal(got, blob) {
		t.Fatalf("unexpected cached get: %v %v", got, ok)
	}

	cached.Remove(h, EmptyPrefix)
	if cached.Contains(h, EmptyPrefix) {
		t.Fatal("expected entry gone after Remove through the cache")
	}
}

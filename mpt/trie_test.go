package mpt

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hexroot/mpt/triedb"
)

func newTestStore() *triedb.MemStore {
	return triedb.NewMemStore(DefaultConfig().Hasher)
}

func TestEmptyTrie(t *testing.T) {
	store := newTestStore()
	tr, h, err := New(store, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !tr.IsEmpty() {
		t.Fatal("fresh trie should be empty")
	}
	h2, err := tr.Root()
	if err != nil {
		t.Fatal(err)
	}
	if h != h2 {
		t.Fatalf("root mismatch: %x vs %x", h, h2)
	}
	if !store.Contains(h, triedb.EmptyPrefix) {
		t.Fatal("null root not written to backing store")
	}
}

func TestInsertGet(t *testing.T) {
	for _, layout := range []Layout{ExtensionLayout, ExtensionFreeLayout} {
		cfg := Config{Layout: layout, Hasher: DefaultConfig().Hasher}
		store := newTestStore()
		tr, _, err := New(store, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tr.Insert([]byte("120000"), []byte("qwerqwerqwerqwerqwerqwerqwerqwer")); err != nil {
			t.Fatal(err)
		}
		if _, err := tr.Insert([]byte("123456"), []byte("asdfasdfasdfasdfasdfasdfasdfasdf")); err != nil {
			t.Fatal(err)
		}
		v, err := tr.Get([]byte("120000"))
		if err != nil || !bytes.Equal(v, []byte("qwerqwerqwerqwerqwerqwerqwerqwer")) {
			t.Fatalf("layout %v: wrong value: %v %v", layout, v, err)
		}
		v, err = tr.Get([]byte("123456"))
		if err != nil || !bytes.Equal(v, []byte("asdfasdfasdfasdfasdfasdfasdfasdf")) {
			t.Fatalf("layout %v: wrong value: %v %v", layout, v, err)
		}
		v, err = tr.Get([]byte("nope"))
		if err != nil || v != nil {
			t.Fatalf("layout %v: expected miss, got %v %v", layout, v, err)
		}
	}
}

func TestCommitThenReopen(t *testing.T) {
	store := newTestStore()
	tr, _, err := New(store, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	keys := [][2]string{{"alpha", "one"}, {"album", "two"}, {"beta", "three"}}
	for _, kv := range keys {
		if _, err := tr.Insert([]byte(kv[0]), []byte(kv[1])); err != nil {
			t.Fatal(err)
		}
	}
	root, err := tr.Commit()
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := FromExisting(store, DefaultConfig(), root)
	if err != nil {
		t.Fatal(err)
	}
	for _, kv := range keys {
		v, err := reopened.Get([]byte(kv[0]))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(v, []byte(kv[1])) {
			t.Fatalf("got %q want %q", v, kv[1])
		}
	}
}

func TestFromExistingRejectsUnknownRoot(t *testing.T) {
	store := newTestStore()
	_, err := FromExisting(store, DefaultConfig(), [32]byte{1, 2, 3})
	var target *InvalidStateRootError
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.As(err, &target) {
		t.Fatalf("expected InvalidStateRootError, got %T: %v", err, err)
	}
}

func TestInsertEmptyValueRemoves(t *testing.T) {
	store := newTestStore()
	tr, _, _ := New(store, DefaultConfig())
	tr.Insert([]byte("k"), []byte("v"))
	if _, err := tr.Insert([]byte("k"), nil); err != nil {
		t.Fatal(err)
	}
	v, err := tr.Get([]byte("k"))
	if err != nil || v != nil {
		t.Fatalf("expected key removed, got %v %v", v, err)
	}
}

func TestDoubleInsertIsNoop(t *testing.T) {
	store := newTestStore()
	tr, _, _ := New(store, DefaultConfig())
	tr.Insert([]byte("k"), []byte("v"))
	h1, _ := tr.Commit()
	old, err := tr.Insert([]byte("k"), []byte("v"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(old, []byte("v")) {
		t.Fatalf("expected old value returned, got %v", old)
	}
	h2, _ := tr.Commit()
	if h1 != h2 {
		t.Fatalf("re-inserting the same value changed the root: %x vs %x", h1, h2)
	}
}

func TestDoubleCommitIsNoop(t *testing.T) {
	store := newTestStore()
	tr, _, _ := New(store, DefaultConfig())
	tr.Insert([]byte("k"), []byte("v"))
	h1, err := tr.Commit()
	if err != nil {
		t.Fatal(err)
	}
	before := store.Len()
	h2, err := tr.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("root changed across no-op commit: %x vs %x", h1, h2)
	}
	if store.Len() != before {
		t.Fatalf("store grew across no-op commit: %d -> %d", before, store.Len())
	}
}

func TestRemoveAllReachesNullRoot(t *testing.T) {
	store := newTestStore()
	tr, nullRoot, _ := New(store, DefaultConfig())
	keys := []string{"one", "two", "three", "four"}
	for _, k := range keys {
		tr.Insert([]byte(k), []byte("value-"+k))
	}
	for _, k := range keys {
		if _, err := tr.Remove([]byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	root, err := tr.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if root != nullRoot {
		t.Fatalf("expected null root %x, got %x", nullRoot, root)
	}
	if !tr.IsEmpty() {
		t.Fatal("trie should be empty after removing every key")
	}
}

func TestDeterministicRootIndependentOfInsertOrder(t *testing.T) {
	pairs := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"dogma": "belief",
		"horse": "stallion",
	}
	keysA := []string{"do", "dog", "dogma", "horse"}
	keysB := []string{"horse", "dogma", "dog", "do"}

	build := func(order []string) (common32, error) {
		store := newTestStore()
		tr, _, _ := New(store, DefaultConfig())
		for _, k := range order {
			if _, err := tr.Insert([]byte(k), []byte(pairs[k])); err != nil {
				return common32{}, err
			}
		}
		h, err := tr.Commit()
		return common32(h), err
	}

	ha, err := build(keysA)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := build(keysB)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Fatalf("root depends on insert order: %x vs %x", ha, hb)
	}
}

type common32 [32]byte

func TestRandomizedInsertDeleteSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	store := newTestStore()
	tr, _, _ := New(store, DefaultConfig())
	model := map[string]string{}

	for round := 0; round < 500; round++ {
		k := fmt.Sprintf("key-%d", rng.Intn(64))
		if rng.Intn(3) == 0 {
			if _, err := tr.Remove([]byte(k)); err != nil {
				t.Fatalf("round %d: remove: %v", round, err)
			}
			delete(model, k)
		} else {
			v := fmt.Sprintf("val-%d-%d", round, rng.Intn(1000))
			if _, err := tr.Insert([]byte(k), []byte(v)); err != nil {
				t.Fatalf("round %d: insert: %v", round, err)
			}
			model[k] = v
		}
		if round%50 == 0 {
			if _, err := tr.Commit(); err != nil {
				t.Fatalf("round %d: commit: %v", round, err)
			}
		}
	}
	if _, err := tr.Commit(); err != nil {
		t.Fatal(err)
	}
	for k, v := range model {
		got, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("get %q: %v", k, err)
		}
		if !bytes.Equal(got, []byte(v)) {
			t.Fatalf("key %q: got %q want %q", k, got, v)
		}
	}
}

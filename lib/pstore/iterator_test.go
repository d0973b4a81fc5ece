package pstore

import (
	"bytes"
	"testing"
)

func TestIteratorWalksAllItems(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("walkable", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	want := map[string]string{
		"alpha":           "1",
		"beta":            "2",
		"key with spaces": "3",
	}
	for k, v := range want {
		if err := ps.Put(id, []byte(k), []byte(v)); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	it, err := ps.NewIterator(id)
	if err != nil {
		t.Fatalf("iterator creation failed: %v", err)
	}
	if it.StoreName() != "walkable" {
		t.Errorf("expected store name walkable, got %q", it.StoreName())
	}

	seen := map[string]string{}
	for {
		key, value, ok, err := it.GetNext()
		if err != nil {
			t.Fatalf("getNext failed: %v", err)
		}
		if !ok {
			break
		}
		seen[string(key)] = string(value)
	}

	if len(seen) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(seen))
	}
	for k, v := range want {
		if seen[k] != v {
			t.Errorf("item %q: got %q, want %q", k, seen[k], v)
		}
	}

	// Exhausted iterators keep reporting done without error.
	if _, _, ok, err := it.GetNext(); ok || err != nil {
		t.Errorf("expected exhausted iterator, got ok=%v err=%v", ok, err)
	}
}

func TestIteratorEmptyStore(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("empty", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	it, err := ps.NewIterator(id)
	if err != nil {
		t.Fatalf("iterator creation failed: %v", err)
	}

	// The reserved metadata fields must not surface as items.
	if key, _, ok, err := it.GetNext(); ok || err != nil {
		t.Errorf("expected no items, got key=%q ok=%v err=%v", key, ok, err)
	}
}

func TestIteratorUnknownStore(t *testing.T) {
	ps := newTestStore(t)

	if _, err := ps.NewIterator(424242); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

func TestIteratorSkipsItemsRemovedMidIteration(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("shrinking", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	for _, k := range keys {
		if err := ps.Put(id, k, []byte("v")); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	it, err := ps.NewIterator(id)
	if err != nil {
		t.Fatalf("iterator creation failed: %v", err)
	}

	// Snapshot the key set, then remove items behind the iterator's back.
	first, _, ok, err := it.GetNext()
	if err != nil || !ok {
		t.Fatalf("first getNext: ok=%v err=%v", ok, err)
	}

	for _, k := range keys {
		if !bytes.Equal(k, first) {
			if err := ps.Remove(id, k); err != nil {
				t.Fatalf("remove failed: %v", err)
			}
		}
	}

	// The removed items are skipped, not reported as errors.
	for {
		key, _, ok, err := it.GetNext()
		if err != nil {
			t.Fatalf("getNext after removal failed: %v", err)
		}
		if !ok {
			break
		}
		t.Errorf("iterator returned removed item %q", key)
	}
}

package pstore

import (
	"testing"

	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/backend/engines/memdb"
)

func newTestStore(t *testing.T) IProcessStore {
	t.Helper()
	b := memdb.NewMemDB(nil)
	if err := b.Connect(&backend.Config{}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return NewProcessStore(b)
}

func TestCreateStore(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("orders", "string", "blob")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id == 0 {
		t.Error("expected a non-zero store id")
	}

	// Names are unique.
	if _, err := ps.CreateStore("orders", "string", "blob"); CodeOf(err) != RetCStoreExists {
		t.Errorf("expected StoreExists, got %v", err)
	}

	// A second store gets a distinct id.
	id2, err := ps.CreateStore("invoices", "string", "blob")
	if err != nil {
		t.Fatalf("create of second store failed: %v", err)
	}
	if id2 == id {
		t.Errorf("two stores share id %d", id)
	}
}

func TestCreateOrGetStore(t *testing.T) {
	ps := newTestStore(t)

	id1, err := ps.CreateOrGetStore("shared", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id2, err := ps.CreateOrGetStore("shared", "string", "string")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected stable id, got %d then %d", id1, id2)
	}
}

func TestFindAndHasStore(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("lookup-me", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := ps.FindStore("lookup-me")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found != id {
		t.Errorf("expected id %d, got %d", id, found)
	}

	if _, err := ps.FindStore("absent"); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}

	has, err := ps.HasStore("lookup-me")
	if err != nil || !has {
		t.Errorf("expected HasStore true, got %v / %v", has, err)
	}
	has, err = ps.HasStore("absent")
	if err != nil || has {
		t.Errorf("expected HasStore false, got %v / %v", has, err)
	}
}

func TestStoreMetadata(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("a store with spaces", "uint64", "complex value type")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	name, err := ps.GetStoreName(id)
	if err != nil || name != "a store with spaces" {
		t.Errorf("store name: got %q / %v", name, err)
	}
	kt, err := ps.GetKeyTypeName(id)
	if err != nil || kt != "uint64" {
		t.Errorf("key type: got %q / %v", kt, err)
	}
	vt, err := ps.GetValueTypeName(id)
	if err != nil || vt != "complex value type" {
		t.Errorf("value type: got %q / %v", vt, err)
	}

	if _, err := ps.GetStoreName(424242); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

func TestRemoveStore(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("temporary", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := ps.Put(id, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if err := ps.RemoveStore(id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if has, _ := ps.HasStore("temporary"); has {
		t.Error("name mapping survived the removal")
	}
	if _, err := ps.Size(id); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}

	// The name is free again and the new store starts empty.
	id2, err := ps.CreateStore("temporary", "string", "string")
	if err != nil {
		t.Fatalf("re-create failed: %v", err)
	}
	size, err := ps.Size(id2)
	if err != nil || size != 0 {
		t.Errorf("expected empty re-created store, got %d / %v", size, err)
	}

	if err := ps.RemoveStore(424242); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

func TestClear(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("clearable", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := ps.Put(id, []byte(k), []byte("v")); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	if err := ps.Clear(id); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	size, err := ps.Size(id)
	if err != nil {
		t.Fatalf("size after clear failed: %v", err)
	}
	if size != 0 {
		t.Errorf("expected size 0 after clear, got %d", size)
	}

	// The store itself with its metadata survives.
	name, err := ps.GetStoreName(id)
	if err != nil || name != "clearable" {
		t.Errorf("metadata lost after clear: %q / %v", name, err)
	}

	if err := ps.Clear(424242); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

func TestSize(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("sized", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	size, err := ps.Size(id)
	if err != nil || size != 0 {
		t.Errorf("expected size 0, got %d / %v", size, err)
	}

	// N puts followed by M removes leave exactly N-M items.
	for i := byte(0); i < 10; i++ {
		if err := ps.Put(id, []byte{'k', i}, []byte("v")); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}
	for i := byte(0); i < 4; i++ {
		if err := ps.Remove(id, []byte{'k', i}); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
	}

	size, err = ps.Size(id)
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if size != 6 {
		t.Errorf("expected size 6, got %d", size)
	}

	if _, err := ps.Size(424242); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

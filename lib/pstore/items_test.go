package pstore

import (
	"bytes"
	"sort"
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("items", "string", "blob")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cases := []struct {
		name  string
		key   []byte
		value []byte
	}{
		{"plain", []byte("plain-key"), []byte("plain-value")},
		{"key with spaces", []byte("a key with spaces"), []byte("value")},
		{"binary key", []byte{0x00, 0xff, 0x5f, 0x00}, []byte("value")},
		{"empty value", []byte("empty-value-key"), []byte{}},
		{"binary value", []byte("bin"), []byte{0x00, 0x01, 0x02, 0xff}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ps.Put(id, tc.key, tc.value); err != nil {
				t.Fatalf("put failed: %v", err)
			}

			value, found, err := ps.Get(id, tc.key)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if !found {
				t.Fatal("item not found after put")
			}
			if !bytes.Equal(value, tc.value) {
				t.Errorf("value mismatch: got %v, want %v", value, tc.value)
			}

			has, err := ps.Has(id, tc.key)
			if err != nil || !has {
				t.Errorf("expected Has true, got %v / %v", has, err)
			}
		})
	}

	_, found, err := ps.Get(id, []byte("never-written"))
	if err != nil {
		t.Fatalf("get of absent key failed: %v", err)
	}
	if found {
		t.Error("found a never written key")
	}
}

func TestPutOverwrites(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("overwrite", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := ps.Put(id, []byte("k"), []byte("first")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := ps.Put(id, []byte("k"), []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	value, _, err := ps.Get(id, []byte("k"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != "second" {
		t.Errorf("expected last write to win, got %q", value)
	}

	size, err := ps.Size(id)
	if err != nil || size != 1 {
		t.Errorf("expected size 1, got %d / %v", size, err)
	}
}

func TestSafeVariants(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("safe", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := ps.PutSafe(id, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("putSafe failed: %v", err)
	}
	value, found, err := ps.GetSafe(id, []byte("k"))
	if err != nil || !found || string(value) != "v" {
		t.Errorf("getSafe: got %q / %v / %v", value, found, err)
	}

	// The safe variants reject unknown store ids instead of fabricating
	// containers.
	if err := ps.PutSafe(424242, []byte("k"), []byte("v")); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist from putSafe, got %v", err)
	}
	if _, _, err := ps.GetSafe(424242, []byte("k")); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist from getSafe, got %v", err)
	}
}

func TestRemoveItem(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("removal", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := ps.Put(id, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := ps.Remove(id, []byte("k")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if has, _ := ps.Has(id, []byte("k")); has {
		t.Error("item still present after remove")
	}

	// Removing an absent item succeeds.
	if err := ps.Remove(id, []byte("k")); err != nil {
		t.Errorf("remove of absent item failed: %v", err)
	}

	if err := ps.Remove(424242, []byte("k")); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

func TestGetKeys(t *testing.T) {
	ps := newTestStore(t)

	id, err := ps.CreateStore("keyed", "string", "string")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	want := [][]byte{
		[]byte("alpha"),
		[]byte("key with spaces"),
		{0x00, 0x01},
	}
	for _, k := range want {
		if err := ps.Put(id, k, []byte("v")); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	keys, err := ps.GetKeys(id)
	if err != nil {
		t.Fatalf("getKeys failed: %v", err)
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}

	// The reserved metadata fields must never leak out as keys.
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	sort.Slice(want, func(i, j int) bool { return bytes.Compare(want[i], want[j]) < 0 })
	for i := range want {
		if !bytes.Equal(keys[i], want[i]) {
			t.Errorf("key %d: got %v, want %v", i, keys[i], want[i])
		}
	}

	if _, err := ps.GetKeys(424242); CodeOf(err) != RetCStoreDoesNotExist {
		t.Errorf("expected StoreDoesNotExist, got %v", err)
	}
}

func TestTTLNamespace(t *testing.T) {
	ps := newTestStore(t)

	// ttl=0 stores without expiry.
	if err := ps.PutTTL([]byte("forever"), []byte("v"), 0, true); err != nil {
		t.Fatalf("putTTL failed: %v", err)
	}
	value, found, err := ps.GetTTL([]byte("forever"), true)
	if err != nil || !found || string(value) != "v" {
		t.Errorf("getTTL: got %q / %v / %v", value, found, err)
	}
	has, err := ps.HasTTL([]byte("forever"), true)
	if err != nil || !has {
		t.Errorf("hasTTL: got %v / %v", has, err)
	}

	if err := ps.RemoveTTL([]byte("forever"), true); err != nil {
		t.Fatalf("removeTTL failed: %v", err)
	}
	if has, _ := ps.HasTTL([]byte("forever"), true); has {
		t.Error("TTL item still present after remove")
	}

	// A short lived item expires on its own.
	if err := ps.PutTTL([]byte("fleeting"), []byte("v"), 1, true); err != nil {
		t.Fatalf("putTTL failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if has, _ := ps.HasTTL([]byte("fleeting"), true); has {
		t.Error("TTL item survived its expiry")
	}
}

func TestTTLNamespaceUnencodedKeys(t *testing.T) {
	ps := newTestStore(t)

	// With encodeKey=false the length-prefix framing is stripped, so a
	// framed and a pre-stripped key address the same item.
	framed := append([]byte{5}, []byte("hello")...)

	if err := ps.PutTTL(framed, []byte("v"), 0, false); err != nil {
		t.Fatalf("putTTL failed: %v", err)
	}

	value, found, err := ps.GetTTL(framed, false)
	if err != nil || !found || string(value) != "v" {
		t.Errorf("getTTL with framed key: got %q / %v / %v", value, found, err)
	}

	// The namespaces are distinct: the encoded form of the same bytes does
	// not alias the stripped one.
	if has, _ := ps.HasTTL(framed, true); has {
		t.Error("encoded and unencoded key forms alias each other")
	}
}

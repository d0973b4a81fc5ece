package keyschema

import (
	"bytes"
	"testing"
)

func TestEntityKeysDoNotCollide(t *testing.T) {
	// The same name used for every entity class must still yield distinct
	// backend keys.
	name := "orders"
	keys := []string{
		StoreNameKey(name),
		LockNameKey(name),
		GenericLockKey(name),
		StoreContentsKey(1),
		StoreLockKey(1),
		LockInfoKey(1),
		LockTokenKey(1),
	}

	seen := make(map[string]int)
	for i, k := range keys {
		if prev, ok := seen[k]; ok {
			t.Errorf("key %d and %d collide: %q", prev, i, k)
		}
		seen[k] = i
	}
}

func TestItemFieldRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("plain"),
		[]byte("key with spaces"),
		[]byte("tab\tand:colon"),
		[]byte{0x00, 0xff, 0x7f},
		{},
	}

	for _, in := range inputs {
		field := EncodeItemField(in)
		out, err := DecodeItemField(field)
		if err != nil {
			t.Fatalf("decode of %q failed: %v", field, err)
		}
		if !bytes.Equal(in, out) {
			t.Errorf("round trip changed key: in=%q out=%q", in, out)
		}
	}
}

func TestNameRoundTrip(t *testing.T) {
	for _, name := range []string{"orders", "a store name", ""} {
		decoded, err := DecodeName(EncodeName(name))
		if err != nil {
			t.Fatalf("decode failed for %q: %v", name, err)
		}
		if decoded != name {
			t.Errorf("expected %q, got %q", name, decoded)
		}
	}
}

func TestIsReservedField(t *testing.T) {
	for _, f := range []string{FieldStoreName, FieldKeyTypeName, FieldValueTypeName} {
		if !IsReservedField(f) {
			t.Errorf("expected %q to be reserved", f)
		}
	}
	if IsReservedField(EncodeItemField([]byte("user-key"))) {
		t.Error("user key reported as reserved")
	}
}

func TestStripKeyFrame(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"short frame", append([]byte{5}, []byte("hello")...), []byte("hello")},
		{"long frame", append([]byte{0x80, 0, 0, 0, 3}, []byte("abcdef")...), []byte("abc")},
		{"empty", []byte{}, []byte{}},
		{"truncated short", []byte{9, 'a'}, []byte{9, 'a'}},
		{"truncated long", []byte{0x80, 0, 0}, []byte{0x80, 0, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripKeyFrame(tc.in)
			if !bytes.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTTLKey(t *testing.T) {
	raw := []byte("ttl key with spaces")
	if TTLKey(raw, true) != EncodeItemField(raw) {
		t.Error("encoded TTL key should match item field encoding")
	}

	framed := append([]byte{4}, []byte("key!")...)
	if TTLKey(framed, false) != "key!" {
		t.Errorf("framed TTL key not stripped: got %q", TTLKey(framed, false))
	}
}

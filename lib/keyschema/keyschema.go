package keyschema

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// --------------------------------------------------------------------------
// Key Layout Constants
// --------------------------------------------------------------------------

// Every logical entity class is tagged with a fixed prefix so that unrelated
// entities never collide inside the backend's single flat keyspace. The tag
// values follow the on-the-wire layout used by the other language bindings
// of this store, so data written by them stays readable.
const (
	tagStoreName    = "0"   // store name -> store id mapping
	tagStoreContent = "1"   // store contents container
	tagStoreLock    = "4"   // structural lock of one store
	tagLockName     = "5"   // lock name -> lock id mapping
	tagLockInfo     = "6"   // lock metadata record
	tagLockToken    = "7"   // lock acquisition token
	tagGenericLock  = "501" // short-lived general purpose lock

	storeLockSuffix   = "ps_lock"
	lockTokenSuffix   = "dl_lock"
	genericLockSuffix = "generic_lock"
)

// GUIDKey is the backend key of the global counter from which store and
// lock ids are allocated.
const GUIDKey = "ps_guid"

// Reserved metadata fields present in every store contents container.
// Store size calculations must always subtract these.
const (
	FieldStoreName     = "ps_name_of_this_store"
	FieldKeyTypeName   = "ps_type_name_of_key"
	FieldValueTypeName = "ps_type_name_of_value"
)

// ReservedFieldCount is the number of metadata fields in every container.
const ReservedFieldCount = 3

// --------------------------------------------------------------------------
// Entity Key Encoders
// --------------------------------------------------------------------------

// StoreNameKey returns the key of the name->id mapping for a store.
func StoreNameKey(name string) string {
	return tagStoreName + EncodeName(name)
}

// StoreContentsKey returns the key of the container holding a store's items.
func StoreContentsKey(storeID uint64) string {
	return tagStoreContent + formatID(storeID)
}

// StoreLockKey returns the key of the lock serializing structural mutation
// of one store (remove, clear).
func StoreLockKey(storeID uint64) string {
	return tagStoreLock + formatID(storeID) + storeLockSuffix
}

// LockNameKey returns the key of the name->id mapping for a distributed lock.
func LockNameKey(name string) string {
	return tagLockName + EncodeName(name)
}

// LockInfoKey returns the key of a distributed lock's metadata record.
func LockInfoKey(lockID uint64) string {
	return tagLockInfo + formatID(lockID)
}

// LockTokenKey returns the key of a distributed lock's acquisition token.
// Holding this token means holding the lock.
func LockTokenKey(lockID uint64) string {
	return tagLockToken + formatID(lockID) + lockTokenSuffix
}

// GenericLockKey returns the key of the short-lived general purpose lock
// guarding multi-step creation of the named entity.
func GenericLockKey(entityName string) string {
	return tagGenericLock + EncodeName(entityName) + genericLockSuffix
}

// LockEntityName derives the generic lock entity name for a distributed
// lock. The suffix keeps it apart from a store created under the same name.
func LockEntityName(lockName string) string {
	return lockName + lockTokenSuffix
}

func formatID(id uint64) string {
	return fmt.Sprintf("%d", id)
}

// --------------------------------------------------------------------------
// Item Field Encoding
// --------------------------------------------------------------------------

// Item keys may contain arbitrary bytes (spaces, separators) that are not
// legal as backend field identifiers. They are therefore base64 encoded
// before use as container field names. The transform is lossless and must
// be reversed before a key is handed back to the caller.

// EncodeItemField encodes a raw item key for use as a container field name.
func EncodeItemField(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeItemField reverses EncodeItemField.
func DecodeItemField(field string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(field)
}

// EncodeName encodes an entity name (store name, lock name) the same way.
func EncodeName(name string) string {
	return base64.StdEncoding.EncodeToString([]byte(name))
}

// DecodeName reverses EncodeName.
func DecodeName(encoded string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsReservedField reports whether a container field name is one of the
// three reserved metadata fields.
func IsReservedField(field string) bool {
	return field == FieldStoreName || field == FieldKeyTypeName || field == FieldValueTypeName
}

// --------------------------------------------------------------------------
// TTL Namespace Keys
// --------------------------------------------------------------------------

// Keys in the store independent TTL namespace are used as-is, without a
// prefix tag. Callers that hand over keys in the length-prefixed wire
// framing can have the frame stripped instead of base64 encoding the key:
// if the high bit of the first byte is set, a 4 byte big-endian length
// follows the marker byte; otherwise the first byte itself is the length.

// StripKeyFrame removes the length prefix from a framed key. Keys too short
// to carry the announced frame are returned unchanged.
func StripKeyFrame(key []byte) []byte {
	if len(key) == 0 {
		return key
	}
	if key[0]&0x80 != 0 {
		if len(key) < 5 {
			return key
		}
		n := binary.BigEndian.Uint32(key[1:5])
		if uint32(len(key)-5) < n {
			return key
		}
		return key[5 : 5+n]
	}
	n := int(key[0])
	if len(key)-1 < n {
		return key
	}
	return key[1 : 1+n]
}

// TTLKey returns the backend key for a TTL namespace item. If encode is
// true the raw key is base64 encoded, otherwise the wire framing is
// stripped and the remainder used directly.
func TTLKey(key []byte, encode bool) string {
	if encode {
		return EncodeItemField(key)
	}
	return string(StripKeyFrame(key))
}

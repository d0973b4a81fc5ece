package pstore

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IProcessStore is the interface for interacting with the distributed
// process store: named key/value stores shared by independent OS processes
// through a common storage backend.
//
// All write operations return only an error (nil on success), read
// operations return the requested data along with an error. Every returned
// error is a *Error carrying a machine readable return code; callers must
// inspect the code rather than rely on zero return values alone, since some
// operations (Size) conflate zero with failure.
type IProcessStore interface {
	// CreateStore creates a new named store and returns its id. The key and
	// value type names are caller supplied tags kept as store metadata.
	// Fails with RetCStoreExists if the name is taken.
	CreateStore(name, keyTypeName, valueTypeName string) (storeID uint64, err error)
	// CreateOrGetStore behaves like CreateStore but resolves a name clash
	// to the existing store's id instead of failing.
	CreateOrGetStore(name, keyTypeName, valueTypeName string) (storeID uint64, err error)
	// FindStore resolves a store name to its id.
	// Fails with RetCStoreDoesNotExist for unknown names.
	FindStore(name string) (storeID uint64, err error)
	// HasStore reports whether a store with the given name exists.
	HasStore(name string) (found bool, err error)
	// RemoveStore deletes a store with all its items.
	RemoveStore(storeID uint64) (err error)
	// Clear removes all user items from a store, keeping the store itself.
	Clear(storeID uint64) (err error)
	// Size returns the number of user items in a store.
	Size(storeID uint64) (size uint64, err error)
	// GetStoreName returns the name a store was created under.
	GetStoreName(storeID uint64) (name string, err error)
	// GetKeyTypeName returns the key type tag of a store.
	GetKeyTypeName(storeID uint64) (typeName string, err error)
	// GetValueTypeName returns the value type tag of a store.
	GetValueTypeName(storeID uint64) (typeName string, err error)

	// Put writes one item without checking that the store exists. This is
	// the throughput path; writing into a non-existent store id fabricates
	// an invalid container the caller is responsible for avoiding.
	Put(storeID uint64, key, value []byte) (err error)
	// PutSafe verifies store existence and holds the store lock for the
	// duration of the write.
	PutSafe(storeID uint64, key, value []byte) (err error)
	// Get reads one item. The boolean reports whether the key was found.
	Get(storeID uint64, key []byte) (value []byte, found bool, err error)
	// GetSafe is Get with a store existence check under the store lock.
	GetSafe(storeID uint64, key []byte) (value []byte, found bool, err error)
	// Has reports whether an item key exists, without fetching the value.
	Has(storeID uint64, key []byte) (found bool, err error)
	// Remove deletes one item under the store lock. Some backends cannot
	// distinguish removing an existing item from removing an absent one;
	// Remove therefore succeeds in both cases.
	Remove(storeID uint64, key []byte) (err error)
	// GetKeys returns the decoded keys of all user items in a store.
	GetKeys(storeID uint64) (keys [][]byte, err error)

	// PutTTL writes an item into the store independent TTL namespace.
	// ttlSeconds=0 stores without expiry. With encodeKey=false the key's
	// length-prefix framing is stripped instead of base64 encoding it.
	PutTTL(key, value []byte, ttlSeconds uint64, encodeKey bool) (err error)
	// GetTTL reads an item from the TTL namespace.
	GetTTL(key []byte, encodeKey bool) (value []byte, found bool, err error)
	// HasTTL reports whether a TTL namespace item exists.
	HasTTL(key []byte, encodeKey bool) (found bool, err error)
	// RemoveTTL deletes an item from the TTL namespace.
	RemoveTTL(key []byte, encodeKey bool) (err error)

	// NewIterator creates a cursor over the current items of a store.
	NewIterator(storeID uint64) (it *Iterator, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by every fallible operation of the
// process store and the lock manager. It wraps a return code (of type
// RetCode) and a human readable message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ProcessStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf extracts the return code from an error. A nil error yields
// RetCSuccess, a non *Error yields RetCInternalError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // Operation executed successfully.
	RetCInternalError                       // Operation failed due to an internal or backend error.
	RetCConnectionError                     // The backend cluster is unreachable.
	RetCUnsupportedOperation                // Operation is not supported by the configured backend.

	// store lifecycle and item codes

	RetCStoreExists        // A store with the requested name already exists.
	RetCStoreDoesNotExist  // The requested store does not exist.
	RetCIDAllocationError  // Allocating a fresh store or lock id failed.
	RetCDataItemWriteError // Writing a data item failed.
	RetCDataItemReadError  // Reading a data item failed.
	RetCGenericLockError   // The short-lived creation lock could not be obtained.
	RetCStoreLockError     // The store's structural lock could not be obtained.
	RetCStoreFatalError    // A multi-step store mutation failed midway; persisted state may be inconsistent.

	// distributed lock codes

	RetCLockDoesNotExist  // The requested lock does not exist.
	RetCInvalidLockID     // The given lock id does not name a known lock.
	RetCLockInfoError     // Reading or updating a lock's metadata record failed.
	RetCLockAcquireError  // Lock acquisition gave up after the maximum retry count.
	RetCLockWaitTimeout   // Lock acquisition exceeded the caller's maximum wait time.
	RetCLockReleaseError  // Releasing a lock failed.
	RetCLockRemovalError  // Removing a lock failed (e.g. it is currently held).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCConnectionError:
		return "ConnectionError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCStoreExists:
		return "StoreExists"
	case RetCStoreDoesNotExist:
		return "StoreDoesNotExist"
	case RetCIDAllocationError:
		return "IDAllocationError"
	case RetCDataItemWriteError:
		return "DataItemWriteError"
	case RetCDataItemReadError:
		return "DataItemReadError"
	case RetCGenericLockError:
		return "GenericLockError"
	case RetCStoreLockError:
		return "StoreLockError"
	case RetCStoreFatalError:
		return "StoreFatalError"
	case RetCLockDoesNotExist:
		return "LockDoesNotExist"
	case RetCInvalidLockID:
		return "InvalidLockID"
	case RetCLockInfoError:
		return "LockInfoError"
	case RetCLockAcquireError:
		return "LockAcquireError"
	case RetCLockWaitTimeout:
		return "LockWaitTimeout"
	case RetCLockReleaseError:
		return "LockReleaseError"
	case RetCLockRemovalError:
		return "LockRemovalError"
	default:
		return "Unknown"
	}
}

package pstore

import (
	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/keyschema"
	"github.com/distproc/pstore/lib/locking"
)

// --------------------------------------------------------------------------
// Ephemeral Locks (general purpose and store locks)
// --------------------------------------------------------------------------

// The multi-step operations of this layer (store creation, removal, clear)
// are guarded by short-lived locks fabricated from the backend's
// conditional insert with TTL. They only narrow the race window of those
// steps; they are never held across a caller-visible operation boundary.

const (
	// ephemeralLockTTL bounds how long a crashed holder can block others.
	ephemeralLockTTL = 1 // seconds

	// ephemeralLockMaxRetries bounds the acquisition loop.
	ephemeralLockMaxRetries = 100
)

func acquireEphemeral(b backend.IBackend, lockKey string) (ok bool, err error) {
	return locking.Acquire(b, lockKey, ephemeralLockTTL, ephemeralLockMaxRetries)
}

// --------------------------------------------------------------------------
// Helpers bound to the store keyspace
// --------------------------------------------------------------------------

// acquireGenericLock serializes the creation steps of the named entity.
func (s *storeImpl) acquireGenericLock(entityName string) error {
	ok, err := acquireEphemeral(s.backend, keyschema.GenericLockKey(entityName))
	if err != nil {
		return NewErrorf(RetCInternalError, "general purpose lock for %q: %v", entityName, err)
	}
	if !ok {
		return NewErrorf(RetCGenericLockError, "unable to get a general purpose lock for %q", entityName)
	}
	return nil
}

func (s *storeImpl) releaseGenericLock(entityName string) {
	locking.Release(s.backend, keyschema.GenericLockKey(entityName))
}

// acquireStoreLock serializes structural mutation of one store.
func (s *storeImpl) acquireStoreLock(storeID uint64) error {
	ok, err := acquireEphemeral(s.backend, keyschema.StoreLockKey(storeID))
	if err != nil {
		return NewErrorf(RetCInternalError, "store lock for store %d: %v", storeID, err)
	}
	if !ok {
		return NewErrorf(RetCStoreLockError, "unable to get the store lock for store %d", storeID)
	}
	return nil
}

func (s *storeImpl) releaseStoreLock(storeID uint64) {
	locking.Release(s.backend, keyschema.StoreLockKey(storeID))
}

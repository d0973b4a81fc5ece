package lockmgr

import (
	"math"
	"os"
	"strconv"
	"time"

	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/keyschema"
	"github.com/distproc/pstore/lib/locking"
	"github.com/distproc/pstore/lib/pstore"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// creationLockTTL and creationLockMaxRetries bound the short-lived
	// guard around lock creation and removal.
	creationLockTTL        = 1 // seconds
	creationLockMaxRetries = 100

	// acquireMaxRetries bounds the acquisition loop independently of the
	// caller's wall clock budget.
	acquireMaxRetries = 100
)

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// lockMgrImpl implements ILockManager over any backend adapter. It holds no
// state besides the backend handle; all lock state lives in the backend,
// which is what makes locks effective across processes.
type lockMgrImpl struct {
	backend backend.IBackend
}

// NewLockManager creates a lock manager on top of a connected backend.
// Creating several instances over the same backend is safe; they see the
// same locks.
func NewLockManager(b backend.IBackend) ILockManager {
	return &lockMgrImpl{backend: b}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// readLockInfo fetches and decodes the metadata record of a lock. A missing
// record means the lock id is not (or no longer) valid.
func (l *lockMgrImpl) readLockInfo(lockID uint64) (lockInfo, error) {
	raw, found, err := l.backend.Read(keyschema.LockInfoKey(lockID))
	if err != nil {
		return lockInfo{}, pstore.NewErrorf(pstore.RetCLockInfoError, "reading info of lock %d: %v", lockID, err)
	}
	if !found {
		return lockInfo{}, pstore.NewErrorf(pstore.RetCInvalidLockID, "a lock with id %d does not exist", lockID)
	}
	li, err := decodeLockInfo(raw)
	if err != nil {
		return lockInfo{}, pstore.NewErrorf(pstore.RetCLockInfoError, "lock %d: %v", lockID, err)
	}
	return li, nil
}

func (l *lockMgrImpl) writeLockInfo(lockID uint64, li lockInfo) error {
	return l.backend.Write(keyschema.LockInfoKey(lockID), encodeLockInfo(li))
}

// leaseSeconds converts a lease duration to whole backend TTL seconds,
// rounding up so a sub-second lease never becomes an immortal token.
func leaseSeconds(lease time.Duration) uint64 {
	s := math.Ceil(lease.Seconds())
	if s < 1 {
		s = 1
	}
	return uint64(s)
}

// --------------------------------------------------------------------------
// ILockManager - Lifecycle (docu see interface.go)
// --------------------------------------------------------------------------

func (l *lockMgrImpl) CreateOrGetLock(name string) (uint64, error) {
	countOp("createOrGetLock")

	// Serialize concurrent creators of the same name.
	guardKey := keyschema.GenericLockKey(keyschema.LockEntityName(name))
	ok, err := locking.Acquire(l.backend, guardKey, creationLockTTL, creationLockMaxRetries)
	if err != nil {
		countOpError("createOrGetLock")
		return 0, pstore.NewErrorf(pstore.RetCInternalError, "general purpose lock for lock %q: %v", name, err)
	}
	if !ok {
		countOpError("createOrGetLock")
		return 0, pstore.NewErrorf(pstore.RetCGenericLockError, "unable to get a general purpose lock for lock %q", name)
	}
	defer locking.Release(l.backend, guardKey)

	nameKey := keyschema.LockNameKey(name)

	raw, found, err := l.backend.Read(nameKey)
	if err != nil {
		countOpError("createOrGetLock")
		return 0, pstore.NewErrorf(pstore.RetCInternalError, "looking up lock %q: %v", name, err)
	}
	if found {
		lockID, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			countOpError("createOrGetLock")
			return 0, pstore.NewErrorf(pstore.RetCInternalError, "corrupt id mapping for lock %q: %v", name, err)
		}
		return lockID, nil
	}

	id, err := l.backend.Increment(keyschema.GUIDKey)
	if err != nil {
		countOpError("createOrGetLock")
		return 0, pstore.NewErrorf(pstore.RetCIDAllocationError, "unable to get a unique id for lock %q: %v", name, err)
	}
	lockID := uint64(id)

	if err := l.backend.Write(nameKey, []byte(strconv.FormatUint(lockID, 10))); err != nil {
		countOpError("createOrGetLock")
		return 0, pstore.NewErrorf(pstore.RetCInternalError, "writing name mapping for lock %q: %v", name, err)
	}

	// The zeroed info record marks the lock as existing but unowned. On
	// failure the name mapping is compensated away so a retry starts clean.
	if err := l.writeLockInfo(lockID, lockInfo{Name: name}); err != nil {
		_ = l.backend.Delete(nameKey)
		countOpError("createOrGetLock")
		return 0, pstore.NewErrorf(pstore.RetCLockInfoError, "writing info record for lock %q: %v", name, err)
	}

	return lockID, nil
}

func (l *lockMgrImpl) GetLockID(name string) (uint64, error) {
	countOp("getLockID")

	raw, found, err := l.backend.Read(keyschema.LockNameKey(name))
	if err != nil {
		countOpError("getLockID")
		return 0, pstore.NewErrorf(pstore.RetCInternalError, "looking up lock %q: %v", name, err)
	}
	if !found {
		return 0, pstore.NewErrorf(pstore.RetCLockDoesNotExist, "a lock named %q does not exist", name)
	}

	lockID, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		countOpError("getLockID")
		return 0, pstore.NewErrorf(pstore.RetCInternalError, "corrupt id mapping for lock %q: %v", name, err)
	}
	return lockID, nil
}

func (l *lockMgrImpl) GetLockName(lockID uint64) (string, error) {
	li, err := l.readLockInfo(lockID)
	if err != nil {
		return "", err
	}
	return li.Name, nil
}

func (l *lockMgrImpl) GetPidForLock(name string) (int, error) {
	countOp("getPidForLock")

	lockID, err := l.GetLockID(name)
	if err != nil {
		countOpError("getPidForLock")
		return 0, err
	}

	li, err := l.readLockInfo(lockID)
	if err != nil {
		countOpError("getPidForLock")
		return 0, err
	}
	if !li.held(time.Now().Unix()) {
		return 0, nil
	}
	return li.OwningPid, nil
}

func (l *lockMgrImpl) RemoveLock(lockID uint64) error {
	countOp("removeLock")

	li, err := l.readLockInfo(lockID)
	if err != nil {
		countOpError("removeLock")
		return err
	}

	held, err := l.backend.Has(keyschema.LockTokenKey(lockID))
	if err != nil {
		countOpError("removeLock")
		return pstore.NewErrorf(pstore.RetCInternalError, "probing token of lock %d: %v", lockID, err)
	}
	if held {
		countOpError("removeLock")
		return pstore.NewErrorf(pstore.RetCLockRemovalError, "lock %d (%q) is currently held", lockID, li.Name)
	}

	// Same guard as creation, so a concurrent CreateOrGetLock of this name
	// cannot interleave with the removal steps.
	guardKey := keyschema.GenericLockKey(keyschema.LockEntityName(li.Name))
	ok, err := locking.Acquire(l.backend, guardKey, creationLockTTL, creationLockMaxRetries)
	if err != nil {
		countOpError("removeLock")
		return pstore.NewErrorf(pstore.RetCInternalError, "general purpose lock for lock %q: %v", li.Name, err)
	}
	if !ok {
		countOpError("removeLock")
		return pstore.NewErrorf(pstore.RetCGenericLockError, "unable to get a general purpose lock for lock %q", li.Name)
	}
	defer locking.Release(l.backend, guardKey)

	for _, key := range []string{
		keyschema.LockTokenKey(lockID),
		keyschema.LockInfoKey(lockID),
		keyschema.LockNameKey(li.Name),
	} {
		if err := l.backend.Delete(key); err != nil {
			countOpError("removeLock")
			return pstore.NewErrorf(pstore.RetCLockRemovalError, "removing lock %d (%q): %v", lockID, li.Name, err)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// ILockManager - Acquisition (docu see interface.go)
// --------------------------------------------------------------------------

func (l *lockMgrImpl) AcquireLock(lockID uint64, lease, maxWait time.Duration) error {
	countOp("acquireLock")

	// Validates the id and yields the name for the info record rewrite.
	li, err := l.readLockInfo(lockID)
	if err != nil {
		countOpError("acquireLock")
		return err
	}

	tokenKey := keyschema.LockTokenKey(lockID)
	owner := locking.OwnerSignature()
	ttl := leaseSeconds(lease)
	deadline := time.Now().Add(maxWait)

	for attempt := 0; attempt < acquireMaxRetries; attempt++ {
		ok, err := locking.TryAcquire(l.backend, tokenKey, owner, ttl)
		if err != nil {
			countOpError("acquireLock")
			return pstore.NewErrorf(pstore.RetCLockAcquireError, "acquiring lock %d: %v", lockID, err)
		}
		if ok {
			now := time.Now()
			update := lockInfo{
				UsageCount:     1,
				ExpirationUnix: now.Unix() + int64(ttl),
				OwningPid:      os.Getpid(),
				Name:           li.Name,
			}
			if err := l.writeLockInfo(lockID, update); err != nil {
				locking.Release(l.backend, tokenKey)
				countOpError("acquireLock")
				return pstore.NewErrorf(pstore.RetCLockInfoError, "updating info record of lock %d: %v", lockID, err)
			}
			return nil
		}

		// The token is taken. If its recorded lease has expired (a holder
		// crashed on a backend without reliable TTL eviction), reclaim the
		// token and retry immediately.
		current, err := l.readLockInfo(lockID)
		if err == nil && !current.held(time.Now().Unix()) {
			_ = l.backend.Delete(tokenKey)
			continue
		}

		if time.Now().After(deadline) {
			countOpError("acquireLock")
			return pstore.NewErrorf(pstore.RetCLockWaitTimeout, "gave up on lock %d after waiting %v", lockID, maxWait)
		}
		locking.JitterSleep()
	}

	countOpError("acquireLock")
	return pstore.NewErrorf(pstore.RetCLockAcquireError, "unable to acquire lock %d within %d attempts", lockID, acquireMaxRetries)
}

func (l *lockMgrImpl) ReleaseLock(lockID uint64) error {
	countOp("releaseLock")

	li, err := l.readLockInfo(lockID)
	if err != nil {
		countOpError("releaseLock")
		return err
	}

	if err := l.backend.Delete(keyschema.LockTokenKey(lockID)); err != nil {
		countOpError("releaseLock")
		return pstore.NewErrorf(pstore.RetCLockReleaseError, "releasing lock %d: %v", lockID, err)
	}

	// Back to the unowned record. The name survives the release.
	if err := l.writeLockInfo(lockID, lockInfo{Name: li.Name}); err != nil {
		countOpError("releaseLock")
		return pstore.NewErrorf(pstore.RetCLockInfoError, "resetting info record of lock %d: %v", lockID, err)
	}
	return nil
}

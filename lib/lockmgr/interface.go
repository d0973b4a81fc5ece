package lockmgr

import (
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ILockManager is the interface for the distributed lock manager: named,
// leased mutual exclusion locks shared by independent OS processes through
// a common storage backend.
//
// A lock is created once under a name and afterwards addressed by its
// numeric id. Acquisition grants a lease; a holder that neither releases
// nor renews loses the lock when the lease expires, so a crashed process
// can never block the others forever. All errors are *pstore.Error values
// carrying a machine readable return code.
type ILockManager interface {
	// CreateOrGetLock creates a named lock and returns its id, or resolves
	// the id of an already existing lock of that name.
	CreateOrGetLock(name string) (lockID uint64, err error)
	// GetLockID resolves a lock name to its id.
	// Fails with RetCLockDoesNotExist for unknown names.
	GetLockID(name string) (lockID uint64, err error)
	// GetLockName returns the name a lock was created under.
	// Fails with RetCInvalidLockID for unknown ids.
	GetLockName(lockID uint64) (name string, err error)
	// GetPidForLock returns the OS process id of the current lease holder
	// of the named lock, or 0 if the lock is not held.
	GetPidForLock(name string) (pid int, err error)

	// AcquireLock blocks until the lock is acquired with the given lease,
	// the wall clock budget maxWait is spent (RetCLockWaitTimeout), or the
	// internal retry budget is exhausted (RetCLockAcquireError). An expired
	// lease of another holder is reclaimed in passing.
	AcquireLock(lockID uint64, lease, maxWait time.Duration) (err error)
	// ReleaseLock gives the lock up. Releasing is not fenced: the call also
	// frees a lock held by someone else, so callers must only release locks
	// they acquired.
	ReleaseLock(lockID uint64) (err error)
	// RemoveLock deletes a lock with its name mapping and metadata.
	// Fails with RetCLockRemovalError while the lock is held.
	RemoveLock(lockID uint64) (err error)
}

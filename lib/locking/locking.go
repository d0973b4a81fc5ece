package locking

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/distproc/pstore/lib/backend"
)

// --------------------------------------------------------------------------
// Acquisition Primitive
// --------------------------------------------------------------------------

// TryAcquire makes one attempt to take the lock at lockKey: a conditional
// insert of the owner signature with the given TTL, followed by a read-back
// to verify ownership. The read-back guards against backends without
// read-your-writes consistency, where the conditional insert's result alone
// can be stale.
func TryAcquire(b backend.IBackend, lockKey string, owner []byte, ttlSeconds uint64) (bool, error) {
	if _, err := b.WriteIfAbsent(lockKey, owner, ttlSeconds); err != nil {
		return false, err
	}

	value, found, err := b.Read(lockKey)
	if err != nil {
		return false, err
	}
	return found && bytes.Equal(value, owner), nil
}

// Acquire loops TryAcquire with jittered sleeps up to the retry budget.
// The returned bool reports whether the lock was won; exhausting the budget
// is not an error.
func Acquire(b backend.IBackend, lockKey string, ttlSeconds uint64, maxRetries int) (bool, error) {
	owner := OwnerSignature()

	for attempt := 0; attempt < maxRetries; attempt++ {
		ok, err := TryAcquire(b, lockKey, owner, ttlSeconds)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		JitterSleep()
	}
	return false, nil
}

// Release drops the lock token. Deleting a token that expired or was never
// held is harmless.
func Release(b backend.IBackend, lockKey string) {
	_ = b.Delete(lockKey)
}

// --------------------------------------------------------------------------
// Owner Identity and Backoff
// --------------------------------------------------------------------------

// OwnerSignature identifies the calling process as a lock holder. The
// random component keeps two goroutines of one process distinguishable.
func OwnerSignature() []byte {
	sig := strconv.Itoa(os.Getpid())
	if n, err := rand.Int(rand.Reader, big.NewInt(1<<31)); err == nil {
		sig += "_" + n.String()
	}
	return []byte(sig)
}

// JitterSleep sleeps a randomized sub-second interval (10-100ms). The
// jitter is flat, not exponential, so many equally contending processes
// spread out instead of retrying in lockstep.
func JitterSleep() {
	ms := int64(10)
	if n, err := rand.Int(rand.Reader, big.NewInt(90)); err == nil {
		ms += n.Int64()
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

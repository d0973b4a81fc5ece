package lockmgr

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/backend/engines/memdb"
	"github.com/distproc/pstore/lib/pstore"
)

func newTestLockManager(t *testing.T) ILockManager {
	t.Helper()
	b := memdb.NewMemDB(nil)
	if err := b.Connect(&backend.Config{}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return NewLockManager(b)
}

func TestCreateOrGetLock(t *testing.T) {
	lm := newTestLockManager(t)

	id1, err := lm.CreateOrGetLock("resource-a")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id1 == 0 {
		t.Error("expected a non-zero lock id")
	}

	// Same name resolves to the same id.
	id2, err := lm.CreateOrGetLock("resource-a")
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected stable id, got %d then %d", id1, id2)
	}

	// A different name gets a different id.
	id3, err := lm.CreateOrGetLock("resource-b")
	if err != nil {
		t.Fatalf("create of second lock failed: %v", err)
	}
	if id3 == id1 {
		t.Errorf("two locks share id %d", id1)
	}

	name, err := lm.GetLockName(id1)
	if err != nil {
		t.Fatalf("name lookup failed: %v", err)
	}
	if name != "resource-a" {
		t.Errorf("expected name resource-a, got %q", name)
	}

	found, err := lm.GetLockID("resource-a")
	if err != nil {
		t.Fatalf("id lookup failed: %v", err)
	}
	if found != id1 {
		t.Errorf("expected id %d, got %d", id1, found)
	}
}

func TestLookupUnknown(t *testing.T) {
	lm := newTestLockManager(t)

	_, err := lm.GetLockID("never-created")
	if pstore.CodeOf(err) != pstore.RetCLockDoesNotExist {
		t.Errorf("expected LockDoesNotExist, got %v", err)
	}

	_, err = lm.GetLockName(424242)
	if pstore.CodeOf(err) != pstore.RetCInvalidLockID {
		t.Errorf("expected InvalidLockID, got %v", err)
	}

	err = lm.AcquireLock(424242, time.Second, time.Second)
	if pstore.CodeOf(err) != pstore.RetCInvalidLockID {
		t.Errorf("expected InvalidLockID, got %v", err)
	}
}

func TestAcquireRelease(t *testing.T) {
	lm := newTestLockManager(t)

	lockID, err := lm.CreateOrGetLock("mutex")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := lm.AcquireLock(lockID, 5*time.Second, time.Second); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	pid, err := lm.GetPidForLock("mutex")
	if err != nil {
		t.Fatalf("pid lookup failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected holder pid %d, got %d", os.Getpid(), pid)
	}

	if err := lm.ReleaseLock(lockID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	pid, err = lm.GetPidForLock("mutex")
	if err != nil {
		t.Fatalf("pid lookup after release failed: %v", err)
	}
	if pid != 0 {
		t.Errorf("expected pid 0 for a released lock, got %d", pid)
	}

	// Released locks are immediately re-acquirable.
	if err := lm.AcquireLock(lockID, 5*time.Second, time.Second); err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	lm := newTestLockManager(t)

	lockID, err := lm.CreateOrGetLock("contended")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := lm.AcquireLock(lockID, 10*time.Second, time.Second); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	start := time.Now()
	err = lm.AcquireLock(lockID, time.Second, 300*time.Millisecond)
	if pstore.CodeOf(err) != pstore.RetCLockWaitTimeout {
		t.Fatalf("expected LockWaitTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("gave up after %v, before the wait budget was spent", elapsed)
	}
}

func TestExpiredLeaseIsReclaimed(t *testing.T) {
	lm := newTestLockManager(t)

	lockID, err := lm.CreateOrGetLock("short-lease")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Hold with a one second lease and never release, simulating a holder
	// that died.
	if err := lm.AcquireLock(lockID, time.Second, time.Second); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if err := lm.AcquireLock(lockID, 5*time.Second, 3*time.Second); err != nil {
		t.Fatalf("expected to reclaim the expired lease, got %v", err)
	}
}

func TestMutualExclusion(t *testing.T) {
	lm := newTestLockManager(t)

	lockID, err := lm.CreateOrGetLock("critical-section")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const goroutines = 8
	const rounds = 5

	var inSection int32
	var mu sync.Mutex
	violations := 0
	counter := 0

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if err := lm.AcquireLock(lockID, 5*time.Second, 10*time.Second); err != nil {
					t.Errorf("acquire failed: %v", err)
					return
				}

				mu.Lock()
				inSection++
				if inSection > 1 {
					violations++
				}
				counter++
				inSection--
				mu.Unlock()

				if err := lm.ReleaseLock(lockID); err != nil {
					t.Errorf("release failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if violations != 0 {
		t.Errorf("%d goroutines were in the critical section at once", violations)
	}
	if counter != goroutines*rounds {
		t.Errorf("expected %d completed rounds, got %d", goroutines*rounds, counter)
	}
}

func TestRemoveLock(t *testing.T) {
	lm := newTestLockManager(t)

	lockID, err := lm.CreateOrGetLock("disposable")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Removal is rejected while the lock is held.
	if err := lm.AcquireLock(lockID, 10*time.Second, time.Second); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := lm.RemoveLock(lockID); pstore.CodeOf(err) != pstore.RetCLockRemovalError {
		t.Fatalf("expected LockRemovalError for a held lock, got %v", err)
	}

	if err := lm.ReleaseLock(lockID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := lm.RemoveLock(lockID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if _, err := lm.GetLockID("disposable"); pstore.CodeOf(err) != pstore.RetCLockDoesNotExist {
		t.Errorf("expected LockDoesNotExist after removal, got %v", err)
	}
	if _, err := lm.GetLockName(lockID); pstore.CodeOf(err) != pstore.RetCInvalidLockID {
		t.Errorf("expected InvalidLockID after removal, got %v", err)
	}

	// The name is free for a fresh lock again.
	newID, err := lm.CreateOrGetLock("disposable")
	if err != nil {
		t.Fatalf("re-create failed: %v", err)
	}
	if newID == lockID {
		t.Errorf("re-created lock reused id %d", lockID)
	}
}

func TestLockInfoRoundTrip(t *testing.T) {
	in := lockInfo{UsageCount: 1, ExpirationUnix: 1700000000, OwningPid: 4711, Name: "a lock with spaces_and_underscores"}

	out, err := decodeLockInfo(encodeLockInfo(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}

	if _, err := decodeLockInfo([]byte("not-a-record")); err == nil {
		t.Error("expected an error for a malformed record")
	}
}

// Package lockmgr implements the distributed lock manager: named, leased
// mutual exclusion locks shared by independent OS processes through the
// configured storage backend. It is the coordination counterpart of the
// process store and lives in the same backend keyspace.
//
// The lock manager only ever stores state in the backend and has no other
// internal state. It is therefore safe to create multiple instances on the
// same backend, even one per operation; as long as the same backend is used
// every time, all locks work as expected.
//
// Core functionality:
//   - Named lock creation with stable numeric ids
//   - Leased acquisition with a wall clock wait budget
//   - Reclamation of leases whose holder crashed
//   - Lookup of the lease holder's OS process id
//
// Implementation approach:
//
//	A lock is one token key in the backend, taken with a conditional
//	insert carrying the lease as TTL (see the locking package). Next to
//	the token lives a metadata record (usage count, lease expiration,
//	holder pid, lock name) that makes the lease observable: contenders
//	use it to detect and reclaim an expired lease even on backends whose
//	TTL eviction is lazy, and GetPidForLock answers from it without
//	touching the token.
//
// Fairness:
//
//	Acquisition is unfair. Contenders retry with flat jitter and whoever
//	wins the conditional insert holds the lock; there is no queue and a
//	fresh contender can overtake one that has been waiting.
//
// Thread safety:
//
//	All methods are safe for concurrent use. Two goroutines of one
//	process compete for a lock like two separate processes would.
package lockmgr

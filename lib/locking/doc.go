// Package locking provides the shared ephemeral lock primitive built on a
// backend's conditional insert with TTL. The higher layers fabricate all of
// their locks from it: the short-lived guards around multi-step store
// operations as well as the user facing distributed locks.
//
// A lock is one backend key holding the owner's signature. Whoever manages
// to insert the key holds the lock until release or TTL expiry; the TTL is
// what keeps a crashed holder from blocking everyone forever.
package locking

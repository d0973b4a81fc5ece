// Package memdb implements the backend contract with sharded in-process
// maps.
//
// The engine partitions the flat keyspace into shards (one per CPU by
// default) selected by a seeded FNV-1a hash, each shard holding a
// concurrent map. The conditional insert primitive is implemented with an
// atomic compute on the owning shard, which makes it a true single-winner
// operation even under heavy contention. Containers (the hash structures
// that hold store contents) live in a separate concurrent map keyed by
// container key.
//
// Expiry is wall-clock based. Reads treat an entry whose deadline has
// passed as absent, so TTL precision never depends on the background
// janitor; the janitor only sweeps expired entries to reclaim memory.
//
// The engine registers itself under the product name "memory". Since it is
// process local it provides no cross-process coordination; its role is as
// the reference implementation for protocol tests and for single-process
// deployments.
package memdb

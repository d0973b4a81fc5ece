// Package redisdb implements the backend contract against redis.
//
// The mapping is direct: flat keys are redis strings, the conditional
// insert with TTL is SET NX EX, counters are INCR, and store content
// containers are redis hashes (HSET/HGET/HDEL/HLEN/HKEYS with O(1) field
// access). One configured server yields a plain client, several yield a
// cluster client; since every operation of the backend contract touches a
// single key, both deployments behave identically.
//
// TTL precision, eviction and replication semantics are redis' own. In
// particular a replicated deployment may briefly serve stale reads after a
// write; the layers above tolerate this with bounded read-back retries
// where it matters.
//
// The adapter registers itself under the product name "redis".
package redisdb

// Package pstore implements the distributed process store: named key/value
// stores shared by independent OS processes on different machines, with the
// configured storage backend as their only synchronization point.
//
// A store is a logical namespace identified by a numeric id and addressed
// by name through a name->id mapping. Its items live in one backend
// container alongside exactly three reserved metadata fields (store name,
// key type name, value type name); Size always excludes those. Item keys
// are base64 encoded before they become container field names, so keys may
// contain arbitrary bytes including spaces.
//
// Consistency is best effort and documented, not hidden. The backend
// offers no multi-key transactions, so multi-step operations (CreateStore,
// RemoveStore, Clear) run as an ordered list of writes with best-effort
// compensating deletes on failure; a crash mid-way can leave partial state
// behind. Concurrent writers to the same item race under last write wins.
// The structural operations of one store are serialized through a
// short-lived store lock; Put/Get/Remove of items are not serialized
// against each other. The Safe variants add an existence check under the
// store lock, they do not fence concurrent writers.
//
// A separate TTL namespace holds store independent items with an optional
// expiry enforced by the backend.
//
// All errors carry a RetCode next to the message. Iterators are plain Go
// values; dropping one releases it.
package pstore

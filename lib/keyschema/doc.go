// Package keyschema maps the logical entities of the process store (stores,
// locks, data items) onto keys in the backend's flat keyspace.
//
// All functions are pure and hold no state. Each entity class carries a
// fixed prefix tag so that two classes can never produce the same backend
// key, no matter what names the caller picks. Item keys and entity names
// are base64 encoded before they become backend field identifiers, because
// raw keys may contain characters (spaces, separators) that backends reject
// in field names. The encoding is reversible; callers always see their
// original bytes again.
//
// The package also defines the three reserved metadata fields every store
// container carries (store name, key type name, value type name) and the
// key handling of the store independent TTL namespace.
package keyschema

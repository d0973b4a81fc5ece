// Package testing provides a standardised conformance suite for storage
// engines that implement the backend.IBackend interface.
//
// The process store protocol is only backend agnostic if every engine
// implements the primitives with identical semantics: single-winner
// conditional writes, absent-after-expiry TTL behavior, lost-update-free
// counters, and container field operations. This suite pins those semantics
// down so a new engine can be validated before the higher layers ever run
// on it.
//
// Example usage:
//
//	factory := func() backend.IBackend {
//		b := NewMyEngine()
//		_ = b.Connect(&backend.Config{})
//		return b
//	}
//	testing.RunBackendTests(t, "MyEngine", factory)
//
// Engines that need a live server (e.g. the redis engine) can gate the
// suite behind an environment variable in their own test file.
package testing

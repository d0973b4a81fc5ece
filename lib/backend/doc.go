// Package backend defines the contract between the process store and the
// storage engine it runs on.
//
// The package contains:
//   - IBackend: the interface every concrete storage engine implements.
//     It deliberately exposes only primitives that common NoSQL products
//     offer natively: plain reads/writes, one atomic conditional write
//     with TTL, an atomic counter, and field operations on a container
//     (hash) type. Everything the process store does is composed from
//     these, which is what keeps the protocol backend agnostic.
//   - Feature flags: engines advertise which primitives they support, so
//     callers can fail an unsupported operation cleanly instead of
//     silently no-oping.
//   - A startup-time registry mapping a product name to an engine factory.
//     Selecting a backend is a map lookup; there is no runtime library
//     loading.
//   - Parsing of the server list configuration format
//     (host:port:password:timeoutSeconds:useTLS:caCertPath).
//
// Concrete engines live in the engines/ subdirectory. The testing/
// subdirectory ships a conformance suite any engine can run against
// itself.
package backend
